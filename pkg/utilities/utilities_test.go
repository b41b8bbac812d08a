package utilities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFromString("debug"))
	assert.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	assert.Equal(t, zapcore.ErrorLevel, levelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, levelFromString("loud"))
}

func TestInitWithoutSinksIsNop(t *testing.T) {
	logger, err := Init(Config{Level: "info"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestInitDevHonorsConsole(t *testing.T) {
	logger, err := Init(Config{Level: "debug", Dev: true})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.ErrorLevel))

	logger, err = Init(Config{Level: "debug", Dev: true, Console: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestIDs(t *testing.T) {
	id := NewAccountID()
	assert.True(t, IsAccountID(id))
	assert.False(t, IsAccountID("not-a-uuid"))

	a, b := NewSnowflakeID(), NewSnowflakeID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)

	assert.Len(t, NewRequestID(), 27)
}
