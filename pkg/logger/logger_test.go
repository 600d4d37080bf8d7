package logger

import (
	"mentor_lms_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestApplyConfigSwitchesLevel(t *testing.T) {
	cfg := &config.Config{}

	cfg.Server.Mode = "debug"
	ApplyConfig(cfg)
	assert.Equal(t, zap.DebugLevel, Level())

	cfg.Server.Mode = "release"
	ApplyConfig(cfg)
	assert.Equal(t, zap.InfoLevel, Level())
}
