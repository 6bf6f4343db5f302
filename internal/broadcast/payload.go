package broadcast

import (
	"fmt"
	"sort"

	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/engine"
	"github.com/vk/cellgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Event names emitted to the server.
const (
	EventCellStarted   = "cell:started"
	EventCellFinished  = "cell:finished"
	EventCellDiscarded = "cell:discarded"
	EventShadow        = "shadow"
)

// Payload converts ev into a Socket.IO event name and a JSON-friendly body.
func Payload(ev engine.Event) (string, map[string]any) {
	body := map[string]any{"engine": ev.Engine}
	switch ev.Kind {
	case engine.EventCellStarted:
		body["cell"] = string(ev.Cell)
		return EventCellStarted, body
	case engine.EventCellFinished:
		body["cell"] = string(ev.Cell)
		body["counter"] = int64(ev.Counter)
		body["result"] = resultPayload(ev.Result)
		return EventCellFinished, body
	case engine.EventCellDiscarded:
		body["cell"] = string(ev.Cell)
		return EventCellDiscarded, body
	default:
		body["cells"] = shadowPayload(ev.Shadow)
		return EventShadow, body
	}
}

func shadowPayload(s cylinderstore.Shadow) []map[string]any {
	ids := make([]string, 0, len(s.Cylinders))
	for id := range s.Cylinders {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		v := s.Cylinders[model.CellID(id)]
		out = append(out, map[string]any{
			"cell":              id,
			"last_run":          v.LastRun,
			"last_internal_run": int64(v.LastInternalRun),
			"running":           v.Running,
			"waiting":           v.Waiting,
			"result":            resultPayload(v.Result),
		})
	}
	return out
}

func resultPayload(r model.Result) map[string]any {
	out := map[string]any{"kind": r.Kind.String()}
	switch r.Kind {
	case model.ResultReturn:
		if r.Name != "" {
			out["name"] = r.Name
		}
		v, err := toNative(r.Value)
		if err != nil {
			out["value"] = r.Value.GoString()
		} else {
			out["value"] = v
		}
	case model.ResultThrow:
		out["error"] = r.Err.Error()
	}
	return out
}

// toNative converts a cty.Value to plain Go values that encode to JSON.
// Unknown and null values become nil.
func toNative(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	if ty.IsPrimitiveType() {
		switch ty {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			if i, acc := val.AsBigFloat().Int64(); acc == 0 {
				return i, nil
			}
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", ty.FriendlyName())
		}
	}
	if ty.IsObjectType() || ty.IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := toNative(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = native
		}
		return out, nil
	}
	if ty.IsTupleType() || ty.IsListType() || ty.IsSetType() {
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := toNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", ty.FriendlyName())
}
