package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pageza/recipebook/config"
)

func TestNew(t *testing.T) {
	l, err := New(false, "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = New(true, "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(false, "loud")
	assert.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}

func TestNewFollowsEnvironmentAliases(t *testing.T) {
	for _, name := range []string{"production", "prod", "PRODUCTION"} {
		l, err := New(config.ParseEnvironment(name).IsProduction(), "")
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zapcore.DebugLevel), name)
	}

	l, err := New(config.ParseEnvironment("development").IsProduction(), "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
