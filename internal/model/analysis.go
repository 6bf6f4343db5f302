// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the closed set of outcomes of analyzing one cell.
//
// Why a sum type?
//
// A cell either defines and consumes names, fails to parse, or is not code at
// all. Modeling the three shapes as distinct variants behind a sealed
// interface makes every consumer handle each case explicitly with a type
// switch instead of probing optional fields.
package model

import "slices"

// Analysis is implemented by Defines, ParseError and NonExecutable only.
type Analysis interface {
	isAnalysis()
}

// Defines is the analysis of a cell that parsed successfully. Produced and
// Consumed are sorted and free of duplicates; a name the cell produces is
// never listed as consumed.
type Defines struct {
	Produced          []string
	Consumed          []string
	HasTopLevelEscape bool
}

// ParseError is the analysis of a cell whose source cannot be analyzed.
type ParseError struct {
	Err error
}

// NonExecutable is the analysis of a prose cell.
type NonExecutable struct{}

func (Defines) isAnalysis()       {}
func (ParseError) isAnalysis()    {}
func (NonExecutable) isAnalysis() {}

// Produces reports whether name is among the produced names.
func (d Defines) Produces(name string) bool {
	_, found := slices.BinarySearch(d.Produced, name)
	return found
}

// Normalize sorts and dedupes both name sets and removes self-consumed names.
func (d Defines) Normalize() Defines {
	produced := slices.Clone(d.Produced)
	slices.Sort(produced)
	produced = slices.Compact(produced)

	consumed := make([]string, 0, len(d.Consumed))
	for _, name := range d.Consumed {
		if _, self := slices.BinarySearch(produced, name); self {
			continue
		}
		consumed = append(consumed, name)
	}
	slices.Sort(consumed)
	consumed = slices.Compact(consumed)

	return Defines{Produced: produced, Consumed: consumed, HasTopLevelEscape: d.HasTopLevelEscape}
}

// ProducedBy returns the produced names of a, or nil for the non-Defines
// variants.
func ProducedBy(a Analysis) []string {
	if d, ok := a.(Defines); ok {
		return d.Produced
	}
	return nil
}

// ConsumedBy returns the consumed names of a, or nil for the non-Defines
// variants.
func ConsumedBy(a Analysis) []string {
	if d, ok := a.(Defines); ok {
		return d.Consumed
	}
	return nil
}
