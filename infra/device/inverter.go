package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gridpilot/gridpilot/core/logger"
	"github.com/gridpilot/gridpilot/core/model"
)

type controlCommand struct {
	Mode     string  `json:"mode"`
	ACPowerW float64 `json:"ac_power_w"`
	DCPowerW float64 `json:"dc_power_w"`
}

// HTTPInverter writes operating modes to the inverter over its local REST
// API.
type HTTPInverter struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// NewHTTPInverter builds the inverter command writer.
func NewHTTPInverter(cfg Config, log logger.Logger) *HTTPInverter {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &HTTPInverter{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutS) * time.Second},
		log:    log,
	}
}

// Apply posts one mode command to the inverter.
func (i *HTTPInverter) Apply(ctx context.Context, state model.OverallState, acPowerW, dcPowerW float64) error {
	body, err := json.Marshal(controlCommand{Mode: state.String(), ACPowerW: acPowerW, DCPowerW: dcPowerW})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.cfg.ControlURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, b)
	}
	return nil
}

// NopInverter discards commands. Used when no control endpoint is
// configured, with the derived state still observable via MQTT and metrics.
type NopInverter struct{}

// Apply implements InverterController.
func (NopInverter) Apply(context.Context, model.OverallState, float64, float64) error { return nil }
