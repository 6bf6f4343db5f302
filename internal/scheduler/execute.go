package scheduler

import (
	"context"
	"maps"
	"runtime"
	"slices"

	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// pick chooses the ready cell the author most recently asked to run. When no
// ready cell has an outstanding request, the first ready cell in topological
// order wins.
func (s *Scheduler) pick(p *Plan) model.CellID {
	var (
		best     model.CellID
		bestTime int64
		found    bool
	)
	for _, id := range p.Ready {
		cell := p.Notebook.Cells[id]
		cyl, _ := s.store.Get(id)
		if cell.RequestedRunTime <= cyl.LastRun {
			continue
		}
		if !found || cell.RequestedRunTime > bestTime {
			best, bestTime, found = id, cell.RequestedRunTime, true
		}
	}
	if !found {
		return p.Ready[0]
	}
	return best
}

// Inputs resolves the names id consumes against its current producers. A name
// is taken from the first producer, in topological order, whose edge carries
// it and whose last run exported it. Names no producer can supply are left
// out; the runner reports them.
func (s *Scheduler) Inputs(p *Plan, id model.CellID) map[string]model.Value {
	inputs := make(map[string]model.Value)
	for _, name := range model.ConsumedBy(p.Analyses[id]) {
		for _, up := range p.Graph.Upstream(id) {
			if !slices.Contains(p.Graph.Labels(up, id), name) {
				continue
			}
			cyl, ok := s.store.Get(up)
			if !ok {
				continue
			}
			if v, ok := cyl.Variable(name); ok {
				inputs[name] = v
				break
			}
		}
	}
	return inputs
}

// execute runs one cell and applies its result. It returns ctx's error when
// the pass was cancelled while the cell ran.
func (s *Scheduler) execute(ctx context.Context, p *Plan, id model.CellID) error {
	cell := p.Notebook.Cells[id]
	ctx, logger := ctxlog.WithCell(ctx, string(id))
	inputs := s.Inputs(p, id)

	// Let a previous run of the same cell observe its cancellation first.
	s.store.CancelRun(id)
	runtime.Gosched()

	runCtx, ticket, ok := s.store.BeginRun(ctx, id, cell.RequestedRunTime, cell.Source)
	if !ok {
		return ctx.Err()
	}
	s.emit(Event{Kind: EventCellStarted, Cell: id})
	logger.Info("Cell started.", "inputs", len(inputs))

	spanCtx, span := s.tracer.Start(runCtx, "cell.run", trace.WithAttributes(
		attribute.String("cell.id", string(id)),
		attribute.Int64("cell.requested_run_time", cell.RequestedRunTime),
		attribute.Int("cell.inputs", len(inputs)),
	))
	outcome, runErr := s.runner.Run(spanCtx, cell.Source, inputs)

	var (
		result    model.Result
		variables map[string]model.Value
	)
	if runErr != nil {
		result = model.Throw(&model.RuntimeError{Cell: id, Err: runErr})
	} else {
		result, variables = split(outcome)
	}

	upstream := p.Graph.Upstream(id)
	var counter model.RunCounter
	applied := s.store.FinishRun(runCtx, ticket, func(c *cylinderstore.Cylinder) {
		s.counter = s.counter.Next()
		counter = s.counter
		c.Result = result
		c.Variables = variables
		c.LastRun = cell.RequestedRunTime
		c.LastInternalRun = counter
		c.UpstreamCells = upstream
	})

	if !applied {
		span.SetStatus(codes.Unset, "superseded")
		span.End()
		logger.Debug("Cell run superseded; result discarded.")
		s.emit(Event{Kind: EventCellDiscarded, Cell: id})
		return ctx.Err()
	}

	span.SetAttributes(attribute.Int64("cell.counter", int64(counter)))
	if result.IsThrow() {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		logger.Warn("Cell threw.", "counter", counter, "error", runErr)
	} else {
		span.SetStatus(codes.Ok, "")
		logger.Info("Cell finished.", "counter", counter, "exports", len(variables))
	}
	span.End()

	s.emit(Event{Kind: EventCellFinished, Cell: id, Result: result, Counter: counter})
	return nil
}

// split turns a runner outcome into the cell's result and its exported
// bindings. The default binding is the displayed value and is not exported.
func split(o model.Outcome) (model.Result, map[string]model.Value) {
	value, ok := o.Values[model.DefaultBinding]
	if !ok {
		value = cty.NullVal(cty.DynamicPseudoType)
	}
	vars := maps.Clone(o.Values)
	delete(vars, model.DefaultBinding)
	if len(vars) == 0 {
		vars = nil
	}
	return model.Return(o.DisplayName, value), vars
}
