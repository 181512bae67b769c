package backend

import (
	"fmt"
	"strings"
	"time"

	corebackend "github.com/gridpilot/gridpilot/core/backend"
	"github.com/gridpilot/gridpilot/core/logger"
)

// Config selects and configures the solver adapter. Exactly one adapter is
// instantiated at startup; there is no runtime switching.
type Config struct {
	// Type is "direct" or "transformed".
	Type        string            `json:"type"`
	Direct      DirectConfig      `json:"direct"`
	Transformed TransformedConfig `json:"transformed"`
}

// New builds the configured Optimizer.
func New(cfg Config, slotDur time.Duration, log logger.Logger) (corebackend.Optimizer, error) {
	switch strings.ToLower(cfg.Type) {
	case "direct":
		return NewDirect(cfg.Direct, log)
	case "transformed":
		return NewTransformed(cfg.Transformed, slotDur, log), nil
	default:
		return nil, corebackend.NewConfigError(fmt.Sprintf("unknown backend type %q", cfg.Type), nil)
	}
}
