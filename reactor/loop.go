// File: reactor/loop.go
// Author: momentics <momentics@gmail.com>
//
// Single-threaded event loop: drains the deferred run queue, polls
// for readiness and dispatches callbacks. One Loop drives any number
// of handles; all callbacks land on the goroutine running Run.

package reactor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
)

// Loop implements api.Reactor over a platform poller.
type Loop struct {
	cfg     control.Config
	p       poller
	metrics *control.MetricsRegistry

	// callbacks is keyed by fd. Registration may happen off-loop
	// before Run starts, hence sync.Map rather than a plain map.
	callbacks sync.Map // map[int]api.ReadyFunc

	mu       sync.Mutex
	deferred *queue.Queue // of func()

	running atomic.Bool
	closed  atomic.Bool
}

// NewLoop creates a loop with the given config. Fails with
// api.ErrNotSupported on platforms without a poller.
func NewLoop(cfg control.Config) (*Loop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, err
	}
	return &Loop{
		cfg:      cfg.Normalize(),
		p:        p,
		deferred: queue.New(),
	}, nil
}

// SetMetrics attaches a registry for loop counters. Call before Run.
func (l *Loop) SetMetrics(m *control.MetricsRegistry) { l.metrics = m }

// Register implements api.Reactor.
func (l *Loop) Register(fd int, interest api.Interest, cb api.ReadyFunc) error {
	if l.closed.Load() {
		return api.ErrLoopClosed
	}
	l.callbacks.Store(fd, cb)
	if err := l.p.add(fd, interest); err != nil {
		l.callbacks.Delete(fd)
		return err
	}
	return nil
}

// Modify implements api.Reactor.
func (l *Loop) Modify(fd int, interest api.Interest) error {
	if l.closed.Load() {
		return api.ErrLoopClosed
	}
	return l.p.mod(fd, interest)
}

// Unregister implements api.Reactor.
func (l *Loop) Unregister(fd int) error {
	l.callbacks.Delete(fd)
	if l.closed.Load() {
		return api.ErrLoopClosed
	}
	return l.p.del(fd)
}

// Defer implements api.Reactor. Safe from any goroutine; wakes a
// blocked poll wait so the callback runs promptly.
func (l *Loop) Defer(fn func()) {
	l.mu.Lock()
	l.deferred.Add(fn)
	l.mu.Unlock()
	_ = l.p.wake()
}

// Pending returns the number of queued deferred callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deferred.Length()
}

// Run drives the loop until ctx is canceled. Only one Run may be
// active at a time.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return api.NewError(api.ErrCodeInvalidArgument, "reactor.Run", "loop already running")
	}
	defer l.running.Store(false)

	// Interrupt a blocked wait when the context goes away.
	stop := context.AfterFunc(ctx, func() { _ = l.p.wake() })
	defer stop()

	events := make([]Event, l.cfg.MaxBatch)
	timeoutMs := int(l.cfg.PollTimeout.Milliseconds())
	for {
		if err := ctx.Err(); err != nil {
			l.runDeferred()
			return nil
		}

		l.runDeferred()

		n, err := l.p.wait(events, timeoutMs)
		if err != nil {
			return err
		}
		l.count("reactor.polls", 1)
		l.count("reactor.events", int64(n))

		for i := 0; i < n; i++ {
			ev := events[i]
			v, ok := l.callbacks.Load(ev.FD)
			if !ok {
				continue
			}
			cb := v.(api.ReadyFunc)
			// A panicking handler must not kill the loop.
			func() {
				defer func() { _ = recover() }()
				cb(ev.FD, ev.Ev)
			}()
		}
	}
}

// Close releases poller resources. Call after Run has returned.
func (l *Loop) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	return l.p.close()
}

func (l *Loop) runDeferred() {
	for {
		l.mu.Lock()
		if l.deferred.Length() == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.deferred.Remove().(func())
		l.mu.Unlock()

		l.count("reactor.deferred", 1)
		func() {
			defer func() { _ = recover() }()
			fn()
		}()
	}
}

func (l *Loop) count(key string, delta int64) {
	if l.metrics != nil {
		l.metrics.Add(key, delta)
	}
}

var _ api.Reactor = (*Loop)(nil)
