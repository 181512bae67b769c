// Package forecast provides HTTP backed forecast providers for PV yield,
// load, grid prices and outdoor temperature.
package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	corefc "github.com/gridpilot/gridpilot/core/forecast"
	"github.com/gridpilot/gridpilot/core/logger"
)

// SourceConfig describes one forecast endpoint. The endpoint must return a
// JSON body of the form {"values": [..]} holding a midnight-aligned series.
type SourceConfig struct {
	URL      string `json:"url"`
	TimeoutS int    `json:"timeout_s"`
	// Fallback is served when the endpoint is unreachable or returns a
	// short series, so one dead forecast source never blocks a cycle.
	Fallback float64 `json:"fallback"`
}

// Config groups the forecast endpoints consumed by the request builder.
// Endpoints left empty fall back to static series.
type Config struct {
	PV          SourceConfig `json:"pv"`
	Load        SourceConfig `json:"load"`
	GridPrice   SourceConfig `json:"grid_price"`
	FeedInPrice SourceConfig `json:"feedin_price"`
	Temperature SourceConfig `json:"temperature"`
}

type wireSeries struct {
	Values []float64 `json:"values"`
}

// HTTPProvider fetches one forecast series over HTTP.
type HTTPProvider struct {
	cfg    SourceConfig
	client *http.Client
	log    logger.Logger
}

// NewHTTP builds a provider for one endpoint.
func NewHTTP(cfg SourceConfig, log logger.Logger) *HTTPProvider {
	if cfg.TimeoutS <= 0 {
		cfg.TimeoutS = 10
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutS) * time.Second},
		log:    log,
	}
}

// Forecast fetches the series and normalizes it to slots entries. A fetch
// failure is logged and answered with the configured fallback so the
// caller always receives a full series.
func (p *HTTPProvider) Forecast(ctx context.Context, slots int) ([]float64, error) {
	values, err := p.fetch(ctx)
	if err != nil {
		p.log.Warnf("forecast fetch %s failed, using fallback %.2f: %v", p.cfg.URL, p.cfg.Fallback, err)
		return corefc.Normalize(nil, slots, p.cfg.Fallback), nil
	}
	return corefc.Normalize(values, slots, p.cfg.Fallback), nil
}

func (p *HTTPProvider) fetch(ctx context.Context) ([]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var series wireSeries
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return series.Values, nil
}

// Build assembles one provider per configured endpoint. Unconfigured
// endpoints become static zero series.
func Build(cfg Config, log logger.Logger) (pv, load, gridPrice, feedIn, temp corefc.Provider) {
	mk := func(sc SourceConfig) corefc.Provider {
		if sc.URL == "" {
			return corefc.Static([]float64{sc.Fallback})
		}
		return NewHTTP(sc, log)
	}
	return mk(cfg.PV), mk(cfg.Load), mk(cfg.GridPrice), mk(cfg.FeedInPrice), mk(cfg.Temperature)
}
