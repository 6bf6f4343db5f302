package engine

import (
	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/model"
	"github.com/vk/cellgrid/internal/scheduler"
)

// EventKind tags an Event.
type EventKind int

const (
	EventCellStarted EventKind = iota + 1
	EventCellFinished
	EventCellDiscarded
	// EventShadow carries the cell state after a scheduling pass.
	EventShadow
)

func (k EventKind) String() string {
	switch k {
	case EventCellStarted:
		return "cell_started"
	case EventCellFinished:
		return "cell_finished"
	case EventCellDiscarded:
		return "cell_discarded"
	case EventShadow:
		return "shadow"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners and subscribers.
type Event struct {
	Kind    EventKind
	Engine  string
	Cell    model.CellID
	Result  model.Result
	Counter model.RunCounter
	// Shadow is set for EventShadow only.
	Shadow cylinderstore.Shadow
}

func fromScheduler(ev scheduler.Event) Event {
	out := Event{Cell: ev.Cell, Result: ev.Result, Counter: ev.Counter}
	switch ev.Kind {
	case scheduler.EventCellStarted:
		out.Kind = EventCellStarted
	case scheduler.EventCellFinished:
		out.Kind = EventCellFinished
	case scheduler.EventCellDiscarded:
		out.Kind = EventCellDiscarded
	}
	return out
}
