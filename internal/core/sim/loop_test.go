package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/service"
)

func newTestLoop(t *testing.T, register func(*service.Registry)) *Loop {
	t.Helper()
	logger := log.New(log.LevelError)
	reg := service.NewRegistry(logger)
	if register != nil {
		register(reg)
	}
	reg.Seal()
	return NewLoop(reg, nil, logger, time.Millisecond)
}

func TestLoopExecutesSubmittedInvocation(t *testing.T) {
	loop := newTestLoop(t, func(reg *service.Registry) {
		reg.Register("simulation", "ping", func([]any) (any, error) { return "pong", nil })
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(ctx)
	}()

	out, err := loop.Invoke(ctx, "simulation", "ping", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)

	cancel()
	<-loopDone
}

func TestLoopSerializesInvocations(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	loop := newTestLoop(t, func(reg *service.Registry) {
		reg.Register("simulation", "slow", func([]any) (any, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return nil, nil
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loop.Invoke(ctx, "simulation", "slow", nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "at most one invocation in flight at any instant")
}

func TestLoopUnknownServiceFault(t *testing.T) {
	loop := newTestLoop(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	_, err := loop.Invoke(ctx, "simulation", "nope", nil)
	require.Error(t, err)
	assert.Equal(t, service.FaultNotFound, service.CodeOf(err))
}

func TestLoopQuitRunsFinalizers(t *testing.T) {
	loop := newTestLoop(t, nil)

	finalized := false
	loop.OnQuit(func() { finalized = true })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(context.Background())
	}()

	loop.Quit()
	<-done
	assert.True(t, finalized)

	_, err := loop.Invoke(context.Background(), "simulation", "ping", nil)
	assert.ErrorIs(t, err, ErrLoopStopped)
}

func TestLoopAnswersEveryInvokeAfterShutdown(t *testing.T) {
	loop := newTestLoop(t, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(context.Background())
	}()

	loop.Terminate()
	<-done

	// The queue has room and done is closed, so the enqueue select can
	// go either way. Every invocation must still come back with
	// ErrLoopStopped instead of blocking forever.
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := loop.Invoke(context.Background(), "simulation", "ping", nil)
			assert.ErrorIs(t, err, ErrLoopStopped)
		}()
	}
	wg.Wait()
}

func TestLoopTerminateSkipsFinalizers(t *testing.T) {
	loop := newTestLoop(t, nil)

	finalized := false
	loop.OnQuit(func() { finalized = true })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(context.Background())
	}()

	loop.Terminate()
	<-done
	assert.False(t, finalized, "terminate performs no finalization")
}
