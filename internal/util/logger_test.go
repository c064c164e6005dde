package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLoggerLevel(t *testing.T) {
	t.Cleanup(func() { logger = nil })

	require.NoError(t, InitLogger("production", "warn"))
	assert.False(t, GetLogger().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Component("checkout").Core().Enabled(zapcore.WarnLevel))

	assert.Error(t, InitLogger("development", "loud"))
}
