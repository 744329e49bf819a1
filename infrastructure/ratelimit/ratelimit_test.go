package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowRespectsBurst(t *testing.T) {
	l := New(Config{EventsPerSecond: 1, Burst: 3})
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestResetRestoresBurst(t *testing.T) {
	l := New(Config{EventsPerSecond: 1, Burst: 1})
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
	l.Reset()
	assert.True(t, l.Allow())
}

func TestDefaultConfigFillsZeroFields(t *testing.T) {
	l := New(Config{})
	assert.NotNil(t, l)
	assert.True(t, l.Allow())
}
