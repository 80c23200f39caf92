package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init("debug", "json"))
	assert.NotNil(t, L())
	assert.True(t, L().Core().Enabled(-1)) // debug enabled

	require.NoError(t, Init("warn", "console"))
	assert.False(t, L().Core().Enabled(0)) // info disabled
}

func TestInitBadLevelFallsBack(t *testing.T) {
	require.NoError(t, Init("verbose", "json"))
	assert.True(t, L().Core().Enabled(0))
	assert.False(t, L().Core().Enabled(-1))
}

func TestLBeforeInit(t *testing.T) {
	assert.NotNil(t, L())
	Sync()
}
