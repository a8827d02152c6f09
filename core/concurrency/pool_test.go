package concurrency

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/taskring/api"
)

func TestPool_RejectsZeroWorkers(t *testing.T) {
	_, err := NewPool(0, 16)
	assert.ErrorIs(t, err, api.ErrInvalidWorkerCount)
}

func TestPool_AllTasksRun(t *testing.T) {
	p, err := NewPool(4, 1024)
	require.NoError(t, err)
	defer p.Close()

	var counter atomic.Int64
	for i := 0; i < 1000; i++ {
		require.NoError(t, p.Enqueue(func() { counter.Add(1) }))
	}
	p.WaitAll()
	assert.Equal(t, int64(1000), counter.Load())
	assert.Equal(t, uint64(1000), p.TotalEnqueued())
	assert.Equal(t, uint64(1000), p.TotalCompleted())
}

func TestPool_FuturesDeliverValues(t *testing.T) {
	p, err := NewPool(2, 64)
	require.NoError(t, err)
	defer p.Close()

	f1, err := Submit(p, func() (int, error) { return 99, nil })
	require.NoError(t, err)
	v, err := f1.Get()
	require.NoError(t, err)
	assert.Equal(t, 99, v)

	double := func(x int) (int, error) { return 2 * x, nil }
	f2, err := Submit(p, func() (int, error) { return double(21) })
	require.NoError(t, err)
	v, err = f2.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPool_FailuresCaptured(t *testing.T) {
	p, err := NewPool(2, 64)
	require.NoError(t, err)
	defer p.Close()

	boom := errors.New("intentional")
	var futures []*Future[int]
	for i := 0; i < 5; i++ {
		f, err := Submit(p, func() (int, error) { return 0, boom })
		require.NoError(t, err)
		futures = append(futures, f)
	}
	for i := 0; i < 5; i++ {
		f, err := Submit(p, func() (int, error) { return 42, nil })
		require.NoError(t, err)
		futures = append(futures, f)
	}
	p.WaitAll()

	for i, f := range futures[:5] {
		_, err := f.Get()
		assert.ErrorIs(t, err, boom, "future %d", i)
	}
	for i, f := range futures[5:] {
		v, err := f.Get()
		require.NoError(t, err, "future %d", i)
		assert.Equal(t, 42, v)
	}

	// Workers survive failing tasks.
	f, err := Submit(p, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestPool_PanicsCapturedAsErrors(t *testing.T) {
	p, err := NewPool(1, 16)
	require.NoError(t, err)
	defer p.Close()

	f, err := Submit(p, func() (string, error) { panic("kaboom") })
	require.NoError(t, err)
	_, err = f.Get()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestPool_WaitAllQuiescent(t *testing.T) {
	p, err := NewPool(4, 256)
	require.NoError(t, err)
	defer p.Close()

	for i := 0; i < 200; i++ {
		require.NoError(t, p.Enqueue(func() { time.Sleep(100 * time.Microsecond) }))
	}
	p.WaitAll()
	assert.Equal(t, uint64(0), p.QueueDepth())
	assert.Equal(t, int64(0), p.ActiveCount())
}

func TestPool_ActiveCounterOrderedBeforeExecution(t *testing.T) {
	p, err := NewPool(2, 64)
	require.NoError(t, err)
	defer p.Close()

	// A running task must observe itself in the active count: the counter
	// is incremented before execution starts.
	var observed atomic.Int64
	done := make(chan struct{})
	require.NoError(t, p.Enqueue(func() {
		observed.Store(p.ActiveCount())
		close(done)
	}))
	<-done
	p.WaitAll()
	assert.GreaterOrEqual(t, observed.Load(), int64(1))
}

func TestPool_QueueFullSurfacesAfterRetryBudget(t *testing.T) {
	p, err := NewPool(1, 4, WithEnqueueRetries(10))
	require.NoError(t, err)
	defer p.Close()

	// One slow task occupies the worker; four more fill the capacity-4 ring.
	block := make(chan struct{})
	require.NoError(t, p.Enqueue(func() { <-block }))
	waitForActive(t, p, 1)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Enqueue(func() { <-block }))
	}

	err = p.Enqueue(func() {})
	assert.ErrorIs(t, err, api.ErrQueueFull)

	close(block)
	p.WaitAll()
}

func TestPool_EnqueueAfterCloseFails(t *testing.T) {
	p, err := NewPool(2, 16)
	require.NoError(t, err)
	p.Close()

	err = p.Enqueue(func() {})
	assert.ErrorIs(t, err, api.ErrPoolStopped)
}

func TestPool_CloseDrainsQueuedTasks(t *testing.T) {
	p, err := NewPool(2, 256)
	require.NoError(t, err)

	var counter atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Enqueue(func() {
			time.Sleep(50 * time.Microsecond)
			counter.Add(1)
		}))
	}
	p.Close()
	// Committed work is never dropped: all 100 ran before Close returned.
	assert.Equal(t, int64(100), counter.Load())
}

func TestPool_CloseIsIdempotent(t *testing.T) {
	p, err := NewPool(1, 16)
	require.NoError(t, err)
	p.Close()
	p.Close()
}

// waitForActive blocks until the pool reports n active tasks.
func waitForActive(t *testing.T, p *Pool, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.ActiveCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("pool never reached %d active tasks", n)
		}
		time.Sleep(time.Millisecond)
	}
}
