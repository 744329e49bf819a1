package wrkrerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		code int
	}{
		{KindInvalidUsage, 0},
		{KindTransport, 0},
		{KindProtocol, 0},
		{KindScriptError, 20},
		{KindInvalidOptions, 30},
		{KindInvalidThreshold, 30},
		{KindFatal, 40},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.kind.ExitCode(), tc.kind)
	}
}

func TestWrapAndKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Transport("request failed", cause)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWithDetail(t *testing.T) {
	err := InvalidUsage("bad scheme %q", "ftp").WithDetail("scheme", "ftp")
	assert.Equal(t, "ftp", err.Details["scheme"])
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
