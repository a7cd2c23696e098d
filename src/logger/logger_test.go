package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerUsableBeforeInit(t *testing.T) {
	require.NotNil(t, L)
	assert.NotPanics(t, func() {
		L.Info("usable without initialization")
	})
}

func TestInitLoggerReplacesDefault(t *testing.T) {
	before := L
	InitLogger("debug")
	require.NotNil(t, L)
	assert.NotSame(t, before, L)
}
