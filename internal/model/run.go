// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the engine's logical clock.
package model

import (
	"math"
	"strconv"
)

// RunCounter orders internal runs. It is scoped to one engine instance and is
// unrelated to wall-clock time or to Cell.RequestedRunTime.
type RunCounter int64

const (
	// DontRun means there is no pending reason to run.
	DontRun RunCounter = 0
	// RunNow compares greater than every real counter value.
	RunNow RunCounter = math.MaxInt64
)

// NeverRan is the LastRun of a cylinder that has not completed any run, so
// every freshly seen cell is stale.
const NeverRan int64 = -1

// Next returns the counter that follows c.
func (c RunCounter) Next() RunCounter {
	if c == RunNow {
		return RunNow
	}
	return c + 1
}

func (c RunCounter) String() string {
	switch c {
	case DontRun:
		return "dont-run"
	case RunNow:
		return "run-now"
	default:
		return strconv.FormatInt(int64(c), 10)
	}
}

// MaxCounter returns the larger of a and b.
func MaxCounter(a, b RunCounter) RunCounter {
	if a > b {
		return a
	}
	return b
}
