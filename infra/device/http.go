// Package device implements the telemetry reader over the inverter's and
// the EV-charge controller's local REST APIs.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gridpilot/gridpilot/core/logger"
)

// Config points at the two local endpoints the reader polls.
type Config struct {
	// InverterURL serves battery telemetry as
	// {"soc_percent": .., "max_charge_power_w": ..}.
	InverterURL string `json:"inverter_url"`
	// EvccURL serves the charge-controller state as
	// {"charging": bool, "mode": "pv"}. Empty disables EV coupling.
	EvccURL string `json:"evcc_url"`
	// ControlURL accepts mode commands. Empty means observe-only.
	ControlURL string `json:"control_url"`
	TimeoutS   int    `json:"timeout_s"`
}

// SetDefaults fills zero values with their defaults.
func (c *Config) SetDefaults() {
	if c.TimeoutS <= 0 {
		c.TimeoutS = 5
	}
}

type batteryReading struct {
	SOCPercent      float64 `json:"soc_percent"`
	MaxChargePowerW float64 `json:"max_charge_power_w"`
}

type evccReading struct {
	Charging bool   `json:"charging"`
	Mode     string `json:"mode"`
}

// HTTPTelemetry reads battery and charge-controller state over HTTP.
type HTTPTelemetry struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// NewHTTP builds the telemetry reader.
func NewHTTP(cfg Config, log logger.Logger) *HTTPTelemetry {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	return &HTTPTelemetry{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutS) * time.Second},
		log:    log,
	}
}

// CurrentSOC returns the battery state of charge in percent.
func (t *HTTPTelemetry) CurrentSOC(ctx context.Context) (float64, error) {
	var r batteryReading
	if err := t.get(ctx, t.cfg.InverterURL, &r); err != nil {
		return 0, err
	}
	return r.SOCPercent, nil
}

// MaxChargePower returns the battery's current charge power limit in W.
func (t *HTTPTelemetry) MaxChargePower(ctx context.Context) (float64, error) {
	var r batteryReading
	if err := t.get(ctx, t.cfg.InverterURL, &r); err != nil {
		return 0, err
	}
	return r.MaxChargePowerW, nil
}

// EvccState returns whether an EV-charging session is active and the
// controller mode. With no EvccURL configured it reports an idle charger.
func (t *HTTPTelemetry) EvccState(ctx context.Context) (bool, string, error) {
	if t.cfg.EvccURL == "" {
		return false, "", nil
	}
	var r evccReading
	if err := t.get(ctx, t.cfg.EvccURL, &r); err != nil {
		return false, "", err
	}
	return r.Charging, strings.ToLower(r.Mode), nil
}

func (t *HTTPTelemetry) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
