package debounce

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var calls atomic.Int32
	d := New(30*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})

	for i := 0; i < 50; i++ {
		d.Schedule()
	}
	assert.Equal(t, Pending, d.State())

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Idle, d.State())
}

func TestDebouncer_FlushRunsPendingImmediately(t *testing.T) {
	var calls atomic.Int32
	d := New(time.Hour, func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		calls.Add(1)
		return nil
	})

	for i := 0; i < 50; i++ {
		d.Schedule()
	}
	ran, err := d.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), calls.Load(), "flush must return after the run completed")
	assert.Equal(t, 1, d.Runs())
}

func TestDebouncer_FlushAwaitsInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var finished atomic.Bool
	d := New(time.Millisecond, func(context.Context) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})

	d.Schedule()
	<-started
	assert.Equal(t, InFlight, d.State())

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	ran, err := d.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, finished.Load())
}

func TestDebouncer_FlushIdleIsNoop(t *testing.T) {
	d := New(time.Millisecond, func(context.Context) error {
		t.Fatal("action must not run")
		return nil
	})
	ran, err := d.Flush(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
}

func TestDebouncer_RunsDoNotOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	d := New(time.Hour, func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
		return nil
	})

	for i := 0; i < 5; i++ {
		d.Schedule()
		go d.Flush(context.Background())
	}
	d.Schedule()
	_, err := d.Flush(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return d.State() == Idle }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), maxActive.Load())
}

func TestDebouncer_FlushReturnsRunError(t *testing.T) {
	boom := errors.New("quota exceeded")
	d := New(time.Hour, func(context.Context) error { return boom })
	d.Schedule()
	_, err := d.Flush(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestDebouncer_Stop(t *testing.T) {
	var calls atomic.Int32
	d := New(10*time.Millisecond, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	d.Schedule()
	d.Stop()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, Idle, d.State())
}
