package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotStarted))
}

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "run-1"}))
	select {
	case id := <-done:
		assert.Equal(t, "run-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesFailures(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 2 {
			return errors.New("boom")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "retry"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestQueueRecoversFromPanic(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("handler exploded")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "panic"}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

func TestQueueFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("test", func(context.Context, Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, MaxRetries: -1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	var sawFull bool
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(Job{ID: "j"}); errors.Is(err, ErrFull) {
			sawFull = true
			break
		}
	}
	assert.True(t, sawFull)
}
