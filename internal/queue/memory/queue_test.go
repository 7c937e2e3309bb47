package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/onboarding"
)

func TestQueueFIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue(3)
	for _, id := range []string{"imp_1", "imp_2", "imp_3"} {
		require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: id}))
	}
	require.Equal(t, 3, q.Len())

	for _, want := range []string{"imp_1", "imp_2", "imp_3"} {
		got, err := q.Dequeue(context.Background())
		require.NoError(t, err)
		require.Equal(t, want, got.JobID)
	}
	require.Zero(t, q.Len())
}

func TestQueueDequeueWaitsForWork(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan onboarding.QueueItem, 1)
	go func() {
		item, err := q.Dequeue(context.Background())
		if err == nil {
			result <- item
		}
	}()

	require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}))
	select {
	case got := <-result:
		require.Equal(t, "imp_1", got.JobID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return the job")
	}
}

func TestQueueRejectsDuplicateWaitingJob(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}))
	require.ErrorIs(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}), ErrDuplicateJob)

	_, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	// Once dequeued the id may be queued again.
	require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}))
}

func TestQueueFullEnqueueHonoursContext(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, onboarding.QueueItem{JobID: "imp_2"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, q.Len())

	// The timed-out id was released.
	_, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_2"}))
}

func TestQueueDequeueCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewQueue(1).Dequeue(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	q.Close()
	q.Close()

	_, err := q.Dequeue(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, err, onboarding.ErrQueueClosed)
	require.ErrorIs(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}), ErrClosed)
}

func TestQueueCloseReleasesBlockedEnqueue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_1"}))

	errCh := make(chan error, 1)
	go func() { errCh <- q.Enqueue(context.Background(), onboarding.QueueItem{JobID: "imp_2"}) }()
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("blocked enqueue did not return after close")
	}
}
