// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines what a run leaves behind on a cell.
package model

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Value is the representation of every binding that flows between cells.
type Value = cty.Value

// DefaultBinding is the reserved key under which a runner reports the cell's
// display value.
const DefaultBinding = "default"

// ResultKind tags a Result.
type ResultKind int

const (
	// ResultNone is the zero Result of a cell that has not finished any run.
	ResultNone ResultKind = iota
	// ResultReturn is a successful run.
	ResultReturn
	// ResultThrow is a failed run or a statically rejected cell.
	ResultThrow
)

func (k ResultKind) String() string {
	switch k {
	case ResultReturn:
		return "return"
	case ResultThrow:
		return "throw"
	default:
		return "none"
	}
}

// Result is the tagged outcome of a cell. For ResultReturn, Name optionally
// names the displayed binding and Value is its value. For ResultThrow, Err is
// one of *AnalysisError, *StaticError or *RuntimeError.
type Result struct {
	Kind  ResultKind
	Name  string
	Value Value
	Err   error
}

// Return builds a successful Result.
func Return(name string, v Value) Result {
	return Result{Kind: ResultReturn, Name: name, Value: v}
}

// Throw builds a failed Result.
func Throw(err error) Result {
	return Result{Kind: ResultThrow, Err: err}
}

// IsReturn reports whether r is a successful result.
func (r Result) IsReturn() bool { return r.Kind == ResultReturn }

// IsThrow reports whether r is a failed result.
func (r Result) IsThrow() bool { return r.Kind == ResultThrow }

// Outcome is what a cell runner hands back on success. Values includes the
// reserved DefaultBinding; DisplayName, when set, names the binding that
// DefaultBinding mirrors.
type Outcome struct {
	Values      map[string]Value
	DisplayName string
}

// Runner executes one cell's code with its resolved inputs. A returned error
// is the cell's thrown value. Implementations must stop producing observable
// side effects promptly once ctx is cancelled; they may still return, in
// which case the engine discards the outcome if the run was superseded.
type Runner interface {
	Run(ctx context.Context, code string, inputs map[string]Value) (Outcome, error)
}
