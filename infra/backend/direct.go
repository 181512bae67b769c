package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gridpilot/gridpilot/auth"
	corebackend "github.com/gridpilot/gridpilot/core/backend"
	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/model"
)

// configRepairVersion is the first backend version whose remote configuration
// keys control array sizing and therefore must be checked at startup.
var configRepairVersion = [3]int{0, 10, 0}

// requiredConfig are the remote keys the backend needs for correct array
// sizing of the canonical horizon.
var requiredConfig = map[string]string{
	"optimization_hours": strconv.Itoa(model.HorizonHours),
	"prediction_hours":   strconv.Itoa(model.HorizonHours),
}

// DirectConfig configures the Direct adapter.
type DirectConfig struct {
	BaseURL       string    `json:"base_url"`
	ProbeTimeoutS int       `json:"probe_timeout_seconds"`
	Auth          auth.Conf `json:"auth"`
}

// Direct talks to a backend that natively speaks the canonical format. The
// request passes through essentially unchanged.
type Direct struct {
	corebackend.RuntimeTracker
	cfg    DirectConfig
	client *http.Client
	log    logger.Logger
}

// NewDirect probes the backend version and, for versions at or above the
// repair threshold, validates the remote configuration keys, writing a key
// only when its read-back value differs from the required one.
func NewDirect(cfg DirectConfig, log logger.Logger) (*Direct, error) {
	if log == nil {
		log = logger.Nop{}
	}
	probeTimeout := time.Duration(cfg.ProbeTimeoutS) * time.Second
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	d := &Direct{
		cfg:    cfg,
		client: &http.Client{},
		log:    log,
	}
	if cfg.Auth.Enabled() {
		d.client.Transport = auth.NewClientCred(cfg.Auth).Transport(nil)
	}
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	version, err := d.probeVersion(ctx)
	if err != nil {
		return nil, err
	}
	d.log.Infof("direct backend %s version %d.%d.%d", cfg.BaseURL, version[0], version[1], version[2])
	if versionAtLeast(version, configRepairVersion) {
		if err := d.repairConfig(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Name identifies the adapter in logs and metrics.
func (d *Direct) Name() string { return "direct" }

// Optimize forwards the canonical request unchanged and decodes the
// canonical response.
func (d *Direct) Optimize(ctx context.Context, req model.OptimizeRequest) (*model.OptimizeResponse, error) {
	start := time.Now()
	var resp model.OptimizeResponse
	err := doJSON(ctx, d.client, d.Name(), http.MethodPost, d.cfg.BaseURL+"/v1/optimize", req, &resp)
	d.Observe(time.Since(start))
	if err != nil {
		var se *httpStatusError
		if errors.As(err, &se) {
			if se.status >= 500 {
				return nil, corebackend.NewOptimizationError(d.Name(), fmt.Sprintf("status %d", se.status), se)
			}
			return nil, corebackend.NewValidationError(fmt.Sprintf("status %d", se.status), se)
		}
		return nil, err
	}
	return &resp, nil
}

type versionReply struct {
	Version string `json:"version"`
}

func (d *Direct) probeVersion(ctx context.Context) ([3]int, error) {
	var rep versionReply
	if err := doJSON(ctx, d.client, d.Name(), http.MethodGet, d.cfg.BaseURL+"/v1/version", nil, &rep); err != nil {
		return [3]int{}, err
	}
	v, err := parseVersion(rep.Version)
	if err != nil {
		return [3]int{}, corebackend.NewValidationError("version probe", err)
	}
	return v, nil
}

type configReply struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// repairConfig reads each required key and writes it back only on mismatch.
// The repair is idempotent: a correctly configured backend sees only reads.
func (d *Direct) repairConfig(ctx context.Context) error {
	for key, want := range requiredConfig {
		url := d.cfg.BaseURL + "/v1/config/" + key
		var rep configReply
		if err := doJSON(ctx, d.client, d.Name(), http.MethodGet, url, nil, &rep); err != nil {
			return corebackend.NewConfigError(fmt.Sprintf("read %s", key), err)
		}
		if rep.Value == want {
			continue
		}
		d.log.Warnf("backend config %s=%q, repairing to %q", key, rep.Value, want)
		body := configReply{Key: key, Value: want}
		if err := doJSON(ctx, d.client, d.Name(), http.MethodPut, url, body, nil); err != nil {
			return corebackend.NewConfigError(fmt.Sprintf("write %s", key), err)
		}
	}
	return nil
}

// parseVersion parses "major.minor.patch"; missing parts default to zero.
func parseVersion(s string) ([3]int, error) {
	var v [3]int
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	if len(parts) == 0 || parts[0] == "" {
		return v, fmt.Errorf("empty version string")
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return v, fmt.Errorf("version %q: %w", s, err)
		}
		v[i] = n
	}
	return v, nil
}

func versionAtLeast(v, min [3]int) bool {
	for i := 0; i < 3; i++ {
		if v[i] != min[i] {
			return v[i] > min[i]
		}
	}
	return true
}
