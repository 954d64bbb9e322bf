package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSizes() Sizes {
	return Sizes{StartupInit: 0, ResourceLoad: 2, RenderBatch: 2, WorldLoad: 2}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for task")
	}
}

func shutdown(t *testing.T, r *Registry) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
}

// blockWorker occupies the single worker of name until the returned release
// func is called.
func blockWorker(t *testing.T, r *Registry, name Name) (release func()) {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	r.Submit(name, func(context.Context) {
		close(started)
		<-gate
	})
	waitClosed(t, started)
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func TestSubmit_RunsOnEveryPool(t *testing.T) {
	r := New(testSizes())
	defer shutdown(t, r)

	var ran atomic.Int32
	for _, name := range Names() {
		done := r.SubmitNotify(name, func(context.Context) { ran.Add(1) })
		waitClosed(t, done)
	}
	assert.Equal(t, int32(4), ran.Load())

	stats := r.Stats()
	require.Len(t, stats, 4)
	for _, s := range stats {
		assert.Equal(t, uint64(1), s.Completed, s.Name)
	}
}

func TestSubmit_UnknownPoolIsDropped(t *testing.T) {
	r := New(testSizes())
	defer shutdown(t, r)

	ran := false
	done := r.SubmitNotify("texture-upload", func(context.Context) { ran = true })
	waitClosed(t, done)
	assert.False(t, ran)
	assert.Zero(t, r.Workers("texture-upload"))
}

func TestSubmit_PanicIsContained(t *testing.T) {
	r := New(testSizes())
	defer shutdown(t, r)

	waitClosed(t, r.SubmitNotify(ResourceLoad, func(context.Context) {
		panic("texture decode failed")
	}))

	var ran atomic.Bool
	waitClosed(t, r.SubmitNotify(ResourceLoad, func(context.Context) { ran.Store(true) }))
	assert.True(t, ran.Load())

	s := r.Stats()[1]
	assert.Equal(t, ResourceLoad, s.Name)
	assert.Equal(t, uint64(1), s.Panicked)
	assert.Equal(t, uint64(1), s.Completed)
}

func TestSubmit_QueueFullDrops(t *testing.T) {
	r := New(Sizes{WorldLoad: 1, ResourceLoad: 1, RenderBatch: 1}, WithQueueSize(1))
	defer shutdown(t, r)

	release := blockWorker(t, r, WorldLoad)
	defer release()

	queued := r.SubmitNotify(WorldLoad, func(context.Context) {})

	var ran atomic.Bool
	dropped := r.SubmitNotify(WorldLoad, func(context.Context) { ran.Store(true) })
	waitClosed(t, dropped)

	s := r.Stats()[3]
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, 1, s.Queued)

	release()
	waitClosed(t, queued)
	require.NoError(t, r.WaitIdle(context.Background()))
	assert.False(t, ran.Load())
}

func TestSubmit_CachedPoolRunsConcurrently(t *testing.T) {
	r := New(testSizes())
	defer shutdown(t, r)

	const n = 4
	var wg sync.WaitGroup
	wg.Add(n)
	barrier := make(chan struct{})
	for i := 0; i < n; i++ {
		r.Submit(StartupInit, func(context.Context) {
			wg.Done()
			<-barrier
		})
	}

	// All n must be running at once to get past wg.Wait.
	reached := make(chan struct{})
	go func() {
		wg.Wait()
		close(reached)
	}()
	waitClosed(t, reached)
	close(barrier)

	require.NoError(t, r.WaitIdle(context.Background()))
	assert.Zero(t, r.Workers(StartupInit))
}

func TestResize_PreservesQueuedTasks(t *testing.T) {
	r := New(Sizes{RenderBatch: 1, ResourceLoad: 1, WorldLoad: 1})
	defer shutdown(t, r)

	release := blockWorker(t, r, RenderBatch)

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		r.Submit(RenderBatch, func(context.Context) { ran.Add(1) })
	}

	require.NoError(t, r.Resize(RenderBatch, 2))
	assert.Equal(t, 2, r.Workers(RenderBatch))

	release()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.WaitIdle(ctx))
	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, uint64(4), r.Stats()[2].Completed)
}

func TestResize_Errors(t *testing.T) {
	r := New(testSizes())

	assert.ErrorIs(t, r.Resize("texture-upload", 2), ErrUnknownPool)
	assert.Error(t, r.Resize(RenderBatch, -1))
	require.NoError(t, r.Resize(RenderBatch, 2))

	require.NoError(t, r.Retire(WorldLoad))
	assert.ErrorIs(t, r.Resize(WorldLoad, 3), ErrRetired)

	shutdown(t, r)
	assert.ErrorIs(t, r.Resize(RenderBatch, 1), ErrClosed)
	assert.ErrorIs(t, r.Retire(RenderBatch), ErrClosed)
}

func TestResize_ToCached(t *testing.T) {
	r := New(testSizes())
	defer shutdown(t, r)

	require.NoError(t, r.Resize(WorldLoad, 0))
	waitClosed(t, r.SubmitNotify(WorldLoad, func(context.Context) {}))
	assert.Zero(t, r.Workers(WorldLoad))
}

func TestRetire_RunsQueuedRefusesNew(t *testing.T) {
	r := New(Sizes{ResourceLoad: 1, RenderBatch: 1, WorldLoad: 1})
	defer shutdown(t, r)

	release := blockWorker(t, r, ResourceLoad)

	queued := r.SubmitNotify(ResourceLoad, func(context.Context) {})
	require.NoError(t, r.Retire(ResourceLoad))
	require.NoError(t, r.Retire(ResourceLoad))

	var late atomic.Bool
	waitClosed(t, r.SubmitNotify(ResourceLoad, func(context.Context) { late.Store(true) }))

	release()
	waitClosed(t, queued)

	s := r.Stats()[1]
	assert.True(t, s.Retired)
	assert.Equal(t, uint64(2), s.Completed)
	assert.Equal(t, uint64(1), s.Dropped)
	assert.False(t, late.Load())
}

func TestShutdown_CancelsAndDiscards(t *testing.T) {
	r := New(Sizes{ResourceLoad: 1, RenderBatch: 1, WorldLoad: 1})

	started := make(chan struct{})
	r.Submit(WorldLoad, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	})
	waitClosed(t, started)

	var ran atomic.Int32
	pending := make([]<-chan struct{}, 3)
	for i := range pending {
		pending[i] = r.SubmitNotify(WorldLoad, func(context.Context) { ran.Add(1) })
	}

	shutdown(t, r)
	for _, ch := range pending {
		waitClosed(t, ch)
	}
	assert.Zero(t, ran.Load())
	assert.Equal(t, uint64(3), r.Stats()[3].Discarded)
	assert.True(t, r.Closed())

	after := r.SubmitNotify(WorldLoad, func(context.Context) { ran.Add(1) })
	waitClosed(t, after)
	assert.Zero(t, ran.Load())

	assert.NoError(t, r.Shutdown(context.Background()))
}

func TestShutdown_GracePeriodElapses(t *testing.T) {
	r := New(testSizes())

	gate := make(chan struct{})
	defer close(gate)
	started := make(chan struct{})
	r.Submit(RenderBatch, func(context.Context) {
		close(started)
		<-gate
	})
	waitClosed(t, started)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Shutdown(ctx), ErrShutdownTimeout)
}

func TestShutdown_ConcurrentSubmitters(t *testing.T) {
	r := New(testSizes(), WithQueueSize(8))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, name := range Names() {
					r.Submit(name, func(context.Context) {})
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	shutdown(t, r)
	close(stop)
	wg.Wait()

	require.NoError(t, r.WaitIdle(context.Background()))
}

func TestWaitIdle_RespectsContext(t *testing.T) {
	r := New(testSizes())

	release := blockWorker(t, r, ResourceLoad)
	defer func() {
		release()
		shutdown(t, r)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.WaitIdle(ctx), context.DeadlineExceeded)
}

func TestSizes_Of(t *testing.T) {
	s := Sizes{StartupInit: 0, ResourceLoad: 4, RenderBatch: 2, WorldLoad: 2}
	assert.Equal(t, 4, s.Of(ResourceLoad))
	assert.Equal(t, 2, s.Of(RenderBatch))
	assert.Zero(t, s.Of("texture-upload"))
}
