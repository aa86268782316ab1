package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/simverse/simverse/internal/core/observability/log"
	"github.com/simverse/simverse/internal/core/observability/metrics"
	"github.com/simverse/simverse/internal/core/service"
)

// ErrLoopStopped is returned for invocations submitted to, or still
// queued on, a loop that has shut down.
var ErrLoopStopped = errors.New("simulation loop stopped")

// DefaultTickInterval matches a 60 Hz update rate.
const DefaultTickInterval = 16 * time.Millisecond

type invocation struct {
	component string
	service   string
	params    []any
	reply     chan invocationResult
}

type invocationResult struct {
	value any
	err   error
}

// Loop is the simulation's single update thread. Middlewares run their
// own I/O goroutines but hand every service call over to the loop, so
// at most one handler executes at any instant and never concurrently
// with a tick. Handlers therefore need no locking.
type Loop struct {
	registry  *service.Registry
	collector *metrics.Collector
	logger    log.Log

	tick    time.Duration
	pending chan *invocation

	done     chan struct{}
	stopOnce sync.Once

	finalizers []func()
	finalOnce  sync.Once
}

func NewLoop(registry *service.Registry, collector *metrics.Collector, logger log.Log, tick time.Duration) *Loop {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Loop{
		registry:  registry,
		collector: collector,
		logger:    logger.Named("loop"),
		tick:      tick,
		pending:   make(chan *invocation, 64),
		done:      make(chan struct{}),
	}
}

// OnQuit registers a finalizer run by Quit but skipped by Terminate.
// Must be called before Run.
func (l *Loop) OnQuit(fn func()) {
	l.finalizers = append(l.finalizers, fn)
}

// Done is closed once the loop will accept no further invocations.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Invoke hands a service call to the update thread and waits for its
// result. Every accepted invocation is answered, either with the
// handler's result or with ErrLoopStopped during shutdown.
func (l *Loop) Invoke(ctx context.Context, component, svc string, params []any) (any, error) {
	inv := &invocation{
		component: component,
		service:   svc,
		params:    params,
		reply:     make(chan invocationResult, 1),
	}

	select {
	case l.pending <- inv:
	case <-l.done:
		return nil, ErrLoopStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-inv.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		// The enqueue above can race with shutdown: when done closes
		// while pending has room, select may pick the send even though
		// the final drain already ran, and the invocation would never
		// be answered. Take a reply if one landed, otherwise report
		// the shutdown.
		select {
		case res := <-inv.reply:
			return res.value, res.err
		default:
			return nil, ErrLoopStopped
		}
	}
}

// Run drives the update thread until the context is cancelled or a
// quit/terminate service stops the loop. Queued invocations are drained
// between ticks and answered in submission order.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("update loop started", log.Duration("tick", l.tick))

	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.stop()
			l.drain()
			l.logger.Info("update loop stopped", log.String("reason", "context cancelled"))
			return nil
		case <-l.done:
			l.drain()
			l.logger.Info("update loop stopped", log.String("reason", "shutdown requested"))
			return nil
		case <-ticker.C:
			l.step()
		}
	}
}

// Quit finalizes the simulation and stops the loop.
func (l *Loop) Quit() {
	l.finalOnce.Do(func() {
		for _, fn := range l.finalizers {
			fn()
		}
	})
	l.stop()
}

// Terminate stops the loop without finalization.
func (l *Loop) Terminate() {
	l.stop()
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// step executes everything queued at tick time, then yields back to the
// ticker. A quit raised by a handler stops processing immediately; the
// remainder of the queue is answered by drain.
func (l *Loop) step() {
	for {
		select {
		case <-l.done:
			return
		case inv := <-l.pending:
			l.execute(inv)
		default:
			return
		}
	}
}

func (l *Loop) execute(inv *invocation) {
	start := time.Now()

	var res invocationResult
	reg, err := l.registry.Lookup(inv.component, inv.service)
	if err != nil {
		res.err = err
	} else {
		res.value, res.err = reg.Call(inv.params)
	}

	elapsed := time.Since(start)
	l.collector.ObserveInvocation(inv.service, res.err, elapsed)

	if res.err != nil {
		l.logger.Warn("service invocation failed",
			log.String("component", inv.component),
			log.String("service", inv.service),
			log.Error(res.err))
	} else {
		l.logger.Debug("service invocation completed",
			log.String("component", inv.component),
			log.String("service", inv.service),
			log.Duration("elapsed", elapsed))
	}

	inv.reply <- res
}

func (l *Loop) drain() {
	for {
		select {
		case inv := <-l.pending:
			inv.reply <- invocationResult{err: ErrLoopStopped}
		default:
			return
		}
	}
}
