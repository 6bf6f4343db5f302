// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the error taxonomy.
//
// Why three error types?
//
// The engine reacts differently to each. An AnalysisError or StaticError is
// found before anything runs and keeps the cell from running until the
// condition is resolved. A RuntimeError is just the stored outcome of a run
// and never halts scheduling. Callers tell them apart with errors.As.
package model

import (
	"fmt"
	"strings"
)

// AnalysisError wraps the parse failure of a cell.
type AnalysisError struct {
	Cell CellID
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("cell %s: %v", e.Cell, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// StaticErrorKind enumerates the conditions detected without running a cell.
type StaticErrorKind int

const (
	// TopLevelEscape is a top-level return or break in cell source.
	TopLevelEscape StaticErrorKind = iota + 1
	// DuplicateDefinition is a name produced by more than one cell.
	DuplicateDefinition
	// CyclicDependency is a cell transitively consuming its own output.
	CyclicDependency
)

func (k StaticErrorKind) String() string {
	switch k {
	case TopLevelEscape:
		return "top-level escape"
	case DuplicateDefinition:
		return "duplicate definition"
	case CyclicDependency:
		return "cyclic dependency"
	default:
		return "unknown static error"
	}
}

// CycleStep is one hop of a dependency cycle: Cell, then the name it exports
// to the next step. The closing step repeats the first cell with an empty
// Name.
type CycleStep struct {
	Cell CellID
	Name string
}

// StaticError rejects a cell before it runs. Conflicts lists the co-defining
// cells for DuplicateDefinition; Cycle holds the chain, starting and ending at
// Cell, for CyclicDependency.
type StaticError struct {
	Kind      StaticErrorKind
	Cell      CellID
	Conflicts []CellID
	Cycle     []CycleStep
}

func (e *StaticError) Error() string {
	switch e.Kind {
	case TopLevelEscape:
		return fmt.Sprintf("cell %s: top-level return/break not allowed", e.Cell)
	case DuplicateDefinition:
		ids := make([]string, len(e.Conflicts))
		for i, id := range e.Conflicts {
			ids[i] = string(id)
		}
		return fmt.Sprintf("cell %s: duplicate definition, also defined by %s", e.Cell, strings.Join(ids, ", "))
	case CyclicDependency:
		return fmt.Sprintf("cell %s: cyclic dependency %s", e.Cell, FormatCycle(e.Cycle))
	default:
		return fmt.Sprintf("cell %s: %s", e.Cell, e.Kind)
	}
}

// FormatCycle renders a cycle as "A -> B -> A (via a, b)".
func FormatCycle(cycle []CycleStep) string {
	cells := make([]string, 0, len(cycle))
	var names []string
	for _, step := range cycle {
		cells = append(cells, string(step.Cell))
		if step.Name != "" {
			names = append(names, step.Name)
		}
	}
	out := strings.Join(cells, " -> ")
	if len(names) > 0 {
		out += " (via " + strings.Join(names, ", ") + ")"
	}
	return out
}

// RuntimeError is the value a cell threw while running.
type RuntimeError struct {
	Cell CellID
	Err  error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("cell %s threw: %v", e.Cell, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
