package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("every day", func(context.Context) error { return nil }, nil)
	assert.Error(t, err)

	_, err = New("@every 1s", nil, nil)
	assert.Error(t, err)
}

func TestScheduler_FiresPeriodically(t *testing.T) {
	var calls atomic.Int32
	s, err := New("@every 1s", func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("失败不影响后续触发")
	}, nil)
	require.NoError(t, err)

	assert.True(t, s.Next().IsZero())
	s.Start()
	assert.False(t, s.Next().IsZero())

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()

	stopped := calls.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s, err := New("@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, nil)
	require.NoError(t, err)
	s.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("任务未被触发")
	}
	s.Stop()
	assert.True(t, cancelled.Load())
}
