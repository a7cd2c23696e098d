package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 2.5, SafeDiv(5, 2))
	assert.Equal(t, 0.0, SafeDiv(5, 0))
	assert.Equal(t, 0.0, SafeDiv(0, 0))
}

func TestParseDate(t *testing.T) {
	parsed := ParseDate("2024-02-16")
	assert.Equal(t, time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC), parsed)
	assert.True(t, ParseDate("16/02/2024").IsZero())
	assert.True(t, ParseDate("").IsZero())
}

func TestTruncateToDay(t *testing.T) {
	stamp := time.Date(2024, 2, 16, 17, 45, 12, 999, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC), TruncateToDay(stamp))
}

func TestRoundFloat(t *testing.T) {
	assert.Equal(t, 1.23, RoundFloat(1.2345, 2))
	assert.Equal(t, 1.24, RoundFloat(1.235, 2))
}
