package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/cellgrid/internal/analysis"
	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/model"
	"github.com/vk/cellgrid/internal/scheduler"
)

// ErrClosed is returned by Update after Close.
var ErrClosed = errors.New("engine: closed")

// Engine owns the cylinders of one notebook.
type Engine struct {
	id       uuid.UUID
	logger   *slog.Logger
	store    *cylinderstore.Store
	cache    *analysis.Cache
	sched    *scheduler.Scheduler
	listener func(Event)

	mu      sync.Mutex
	busy    bool
	pending model.Notebook
	version uint64
	closed  bool
	subs    map[uint64]chan Event
	nextSub uint64
}

// New creates an idle engine.
func New(analyzer analysis.Analyzer, runner model.Runner, opts ...Option) (*Engine, error) {
	if runner == nil {
		return nil, fmt.Errorf("engine: runner is required")
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cache, err := analysis.New(analyzer, o.cacheSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:       uuid.New(),
		store:    cylinderstore.New(),
		cache:    cache,
		listener: o.listener,
		subs:     make(map[uint64]chan Event),
	}
	e.logger = o.logger.With("engine", e.id.String())

	schedOpts := []scheduler.Option{scheduler.WithObserver(func(ev scheduler.Event) {
		e.dispatch(fromScheduler(ev))
	})}
	if o.tracer != nil {
		schedOpts = append(schedOpts, scheduler.WithTracer(o.tracer))
	}
	e.sched = scheduler.New(cache, e.store, runner, schedOpts...)
	return e, nil
}

// ID identifies the engine in logs and published events.
func (e *Engine) ID() string { return e.id.String() }

// Update submits a new notebook snapshot. See the package documentation for
// when it blocks. The returned error is ctx's error if the loop was cancelled
// or ErrClosed.
func (e *Engine) Update(ctx context.Context, nb model.Notebook) error {
	nb = nb.Clone()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.pending = nb
	e.version++
	if e.busy {
		superseded := e.store.Supersede(staleAgainst(nb))
		e.mu.Unlock()
		e.logger.Debug("Queued notebook update.", "cells", len(nb.Order), "superseded", superseded)
		return nil
	}
	e.busy = true
	e.mu.Unlock()

	return e.loop(ctx)
}

// staleAgainst reports the in-flight runs nb invalidates: the cell is gone,
// its run was requested again, or its source changed.
func staleAgainst(nb model.Notebook) func(cylinderstore.Ticket) bool {
	live := nb.Positions()
	return func(t cylinderstore.Ticket) bool {
		if _, ok := live[t.Cell]; !ok {
			return true
		}
		cell := nb.Cells[t.Cell]
		return cell.RequestedRunTime != t.Requested || cell.Source != t.Source
	}
}

func (e *Engine) loop(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, e.logger)
	passes := 0
	for {
		e.mu.Lock()
		if e.closed {
			e.busy = false
			e.mu.Unlock()
			return ErrClosed
		}
		nb, version := e.pending, e.version
		e.mu.Unlock()

		ran, err := e.sched.Pass(ctx, nb)
		e.dispatch(Event{Kind: EventShadow, Shadow: e.store.Snapshot()})
		if err != nil {
			e.mu.Lock()
			e.busy = false
			e.mu.Unlock()
			e.logger.Warn("Scheduling loop stopped.", "passes", passes, "error", err)
			return err
		}
		passes++
		if ran {
			continue
		}

		e.mu.Lock()
		if version == e.version {
			e.busy = false
			e.mu.Unlock()
			e.logger.Debug("Notebook is quiescent.", "passes", passes, "counter", e.sched.Counter())
			return nil
		}
		e.mu.Unlock()
	}
}

// Shadow returns a copy of the observable state of every cell.
func (e *Engine) Shadow() cylinderstore.Shadow {
	return e.store.Snapshot()
}

// Busy reports whether a scheduling loop is running.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Subscribe returns a channel receiving every event, buffered to buf, and a
// function that ends the subscription. Events that do not fit the buffer are
// dropped. The channel is closed on cancel or Close.
func (e *Engine) Subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, max(buf, 1))

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

func (e *Engine) dispatch(ev Event) {
	ev.Engine = e.id.String()
	if e.listener != nil {
		e.listener(ev)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.logger.Debug("Dropped event for slow subscriber.", "subscriber", id, "event", ev.Kind.String())
		}
	}
}

// Close cancels every in-flight run, drops all cell state, ends all
// subscriptions and rejects further updates. A running loop stops at its
// next pass.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	cells := e.store.Len()
	e.store.Clear()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.logger.Info("Engine closed.", "cells", cells)
	return nil
}
