package shared

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogcio/wrkr/internal/value"
)

func TestGetSetDelete(t *testing.T) {
	s := New()
	_, ok := s.Get("k")
	assert.False(t, ok)

	s.Set("k", value.I64(42))
	v, ok := s.Get("k")
	require.True(t, ok)
	i, _ := v.AsI64()
	assert.EqualValues(t, 42, i)

	s.Delete("k")
	_, ok = s.Get("k")
	assert.False(t, ok)
}

func TestIncrAndCounter(t *testing.T) {
	s := New()
	assert.EqualValues(t, 1, s.Incr("c", 1))
	assert.EqualValues(t, 3, s.Incr("c", 2))
	assert.EqualValues(t, 3, s.Counter("c"))
}

func TestWaitWakesOnSet(t *testing.T) {
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Wait(ctx, "gate") }()

	time.Sleep(10 * time.Millisecond)
	s.Set("gate", value.Bool(true))

	require.NoError(t, <-done)
}

func TestBarrierReleasesAllParties(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Barrier(ctx, "sync", 3))
		}()
	}
	wg.Wait()
}
