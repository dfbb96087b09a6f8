package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artpar/stackman/internal/core/config"
)

func TestSetupLogger_Levels(t *testing.T) {
	tests := []struct {
		level      string
		debugOn    bool
		infoOn     bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"warning", false, false},
		{"error", false, false},
		{"invalid", false, true}, // falls back to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := SetupLogger(config.LogSettings{Level: tt.level, Format: "text"})
			assert.Equal(t, tt.debugOn, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tt.infoOn, logger.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}

func TestSetupLogger_Formats(t *testing.T) {
	assert.NotNil(t, SetupLogger(config.LogSettings{Level: "info", Format: "json"}))
	assert.NotNil(t, SetupLogger(config.LogSettings{Level: "info", Format: "text"}))
	assert.NotNil(t, SetupLogger(config.LogSettings{Level: "info", Format: ""}))
}

func TestRun_Version(t *testing.T) {
	assert.Equal(t, ExitSuccess, run([]string{"-version"}))
}

func TestRun_NoCommand(t *testing.T) {
	assert.Equal(t, ExitUsage, run([]string{}))
}

func TestRun_UnknownEnvironment(t *testing.T) {
	assert.Equal(t, ExitConfigError, run([]string{"-env", "nonexistent", "status"}))
}
