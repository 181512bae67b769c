package backend

import (
	"errors"
	"testing"
	"time"

	corebackend "github.com/gridpilot/gridpilot/core/backend"
)

func TestNewSelectsTransformed(t *testing.T) {
	opt, err := New(Config{Type: "Transformed"}, time.Hour, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if opt.Name() != "transformed" {
		t.Fatalf("name = %q", opt.Name())
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(Config{Type: "magic"}, time.Hour, nil)
	var ce *corebackend.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
