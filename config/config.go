package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridpilot/gridpilot/core/control"
	"github.com/gridpilot/gridpilot/core/metrics"
	"github.com/gridpilot/gridpilot/core/scheduler"
	"github.com/gridpilot/gridpilot/infra/backend"
	"github.com/gridpilot/gridpilot/infra/device"
	"github.com/gridpilot/gridpilot/infra/forecast"
	"github.com/gridpilot/gridpilot/infra/mqtt"
)

type Config struct {
	MQTT      mqtt.Config      `json:"mqtt"`
	Backend   backend.Config   `json:"backend"`
	Control   control.Config   `json:"control"`
	Scheduler scheduler.Config `json:"scheduler"`
	Forecast  forecast.Config  `json:"forecast"`
	Device    device.Config    `json:"device"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
	API       APIConfig        `json:"api"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Control.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Device.SetDefaults()
	cfg.Logging.SetDefaults()
	cfg.API.SetDefaults()
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-section requirements that the per-section
// validators cannot see.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend.Type) {
	case "direct", "transformed":
	default:
		return fmt.Errorf("unknown backend type %q", c.Backend.Type)
	}
	if c.Scheduler.Battery.CapacityWh <= 0 {
		return fmt.Errorf("scheduler.battery.capacity_wh is required")
	}
	if c.Device.InverterURL == "" {
		return fmt.Errorf("device.inverter_url is required")
	}
	return nil
}
