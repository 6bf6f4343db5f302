package scheduler

import (
	"context"

	"github.com/vk/cellgrid/internal/analysis"
	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vk/cellgrid/internal/scheduler"

// EventKind tags an Event.
type EventKind int

const (
	// EventCellStarted is emitted right before the Runner is invoked.
	EventCellStarted EventKind = iota + 1
	// EventCellFinished is emitted after a run's result was applied.
	EventCellFinished
	// EventCellDiscarded is emitted when a superseded run returns.
	EventCellDiscarded
)

func (k EventKind) String() string {
	switch k {
	case EventCellStarted:
		return "cell started"
	case EventCellFinished:
		return "cell finished"
	case EventCellDiscarded:
		return "cell discarded"
	default:
		return "unknown"
	}
}

// Event reports the activity of a single cell.
type Event struct {
	Kind    EventKind
	Cell    model.CellID
	Result  model.Result
	Counter model.RunCounter
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers fn to receive cell activity events. fn is called on
// the scheduler loop and must not block.
func WithObserver(fn func(Event)) Option {
	return func(s *Scheduler) { s.observe = fn }
}

// WithTracer overrides the OpenTelemetry tracer used for cell runs.
func WithTracer(tr trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = tr }
}

// Scheduler runs the incremental scheduling passes for one engine.
type Scheduler struct {
	cache  *analysis.Cache
	store  *cylinderstore.Store
	runner model.Runner

	// counter is the last RunCounter handed out.
	counter model.RunCounter

	observe func(Event)
	tracer  trace.Tracer
}

// New creates a scheduler over the given cache, store and runner.
func New(cache *analysis.Cache, store *cylinderstore.Store, runner model.Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		cache:   cache,
		store:   store,
		runner:  runner,
		counter: model.DontRun,
		observe: func(Event) {},
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counter returns the last RunCounter handed out.
func (s *Scheduler) Counter() model.RunCounter { return s.counter }

// Pass performs one scheduling pass over nb. It reports whether a cell was
// run; false means nb is quiescent. The only error is the cancellation of ctx.
func (s *Scheduler) Pass(ctx context.Context, nb model.Notebook) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	logger := ctxlog.FromContext(ctx)

	if removed := s.sweep(nb); len(removed) > 0 {
		logger.Debug("Removed cylinders of deleted cells.", "cells", removed)
	}
	for _, id := range nb.LiveOrder() {
		s.store.Ensure(id)
	}

	plan := s.Plan(ctx, nb)
	s.apply(ctx, plan)

	if len(plan.Fine) == 0 {
		logger.Debug("Pass is quiescent.", "cells", len(plan.Order), "rejected", len(plan.Errors))
		return false, nil
	}

	chosen := s.pick(plan)
	logger.Debug("Pass chose a cell.", "cell", chosen, "scheduled", len(plan.Fine), "ready", len(plan.Ready))
	if err := s.execute(ctx, plan, chosen); err != nil {
		return true, err
	}
	return true, nil
}

// sweep cancels and removes every cylinder whose cell left the notebook.
func (s *Scheduler) sweep(nb model.Notebook) []model.CellID {
	live := nb.Positions()
	var removed []model.CellID
	for _, id := range s.store.IDs() {
		if _, ok := live[id]; ok {
			continue
		}
		if s.store.Delete(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

// apply writes the outcome of classification: rejections, satisfied prose
// cells and the waiting flags of every scheduled runnable cell.
func (s *Scheduler) apply(ctx context.Context, plan *Plan) {
	logger := ctxlog.FromContext(ctx)

	for _, id := range plan.Order {
		cell := plan.Notebook.Cells[id]

		if err, rejected := plan.Errors[id]; rejected {
			upstream := plan.Graph.Upstream(id)
			s.store.Update(id, func(c *cylinderstore.Cylinder) {
				c.Result = model.Throw(err)
				c.Variables = nil
				c.LastRun = cell.RequestedRunTime
				c.UpstreamCells = upstream
				c.Waiting = false
			})
			logger.Debug("Cell rejected before running.", "cell", id, "error", err)
			continue
		}

		if plan.inert[id] {
			s.store.Update(id, func(c *cylinderstore.Cylinder) {
				c.Result = model.Result{}
				c.Variables = nil
				c.LastRun = cell.RequestedRunTime
				c.UpstreamCells = nil
				c.Waiting = false
			})
			continue
		}

		waiting := plan.fine[id]
		s.store.Update(id, func(c *cylinderstore.Cylinder) {
			c.Waiting = waiting && !c.Running
		})
	}
}

func (s *Scheduler) emit(ev Event) {
	s.observe(ev)
}
