// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the value types shared by every layer of the reactive
// cell engine: the notebook as supplied by the presentation layer, the
// per-cell analysis result, run counters and run results, and the error
// taxonomy.
//
// # Core Concepts
//
//   - Notebook: an ordered list of CellIDs plus the Cell records they name. It
//     is owned by the caller; the engine only reads it.
//
//   - Analysis: what a cell's source defines and consumes. It is a closed sum
//     type with the variants Defines, ParseError and NonExecutable.
//
//   - RunCounter: an engine-scoped logical clock. It is deliberately distinct
//     from the integer RequestedRunTime so the two cannot be mixed up.
//
//   - Result: the tagged Return/Throw outcome stored on a cell after it ran or
//     after a static check rejected it.
//
// Values flowing between cells are go-cty values, the same representation the
// default HCL cell runner evaluates.
package model
