package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	recovered := make(chan error, 1)
	SafeGo(func() {
		panic("boom")
	}, func(err error) {
		recovered <- err
	})

	select {
	case err := <-recovered:
		require.Error(t, err)
		require.Contains(t, err.Error(), "boom")
	case <-time.After(time.Second):
		t.Fatal("recovery function was not called")
	}
}

func TestSafeGoPropagatesErrorPanic(t *testing.T) {
	boom := errors.New("boom")
	recovered := make(chan error, 1)
	SafeGo(func() {
		panic(boom)
	}, func(err error) {
		recovered <- err
	})

	select {
	case err := <-recovered:
		require.Same(t, boom, err)
	case <-time.After(time.Second):
		t.Fatal("recovery function was not called")
	}
}
