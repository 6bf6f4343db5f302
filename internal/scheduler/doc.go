// Package scheduler decides, on every pass over a notebook snapshot, which
// cells are stale and runs exactly one of them.
//
// # How It Works
//
// A pass follows a fixed sequence:
//  1. Sweep: cylinders whose cell left the notebook are cancelled and removed.
//  2. Plan: analyses are refreshed, the dependency graph rebuilt and every cell
//     stamped with the RunCounter at which it should run. Cells whose stamp is
//     newer than their last internal run are scheduled.
//  3. Classify: scheduled cells that cannot run (parse error, top-level
//     escape, duplicate definition, dependency cycle) get a Throw result
//     immediately. Prose cells are marked satisfied.
//  4. If no runnable cell is scheduled, the pass is quiescent.
//  5. Otherwise one ready cell, one with no scheduled runnable producer, is
//     chosen, fed its inputs and handed to the Runner. Its result is applied
//     unless the run was superseded while in flight.
//
// The engine repeats passes until one is quiescent.
//
// # Staleness
//
// A cell must run immediately when the author requested it after its last
// completed run, when a producer it used last time was deleted, or when that
// producer no longer exports anything it consumes. Otherwise it inherits the
// largest stamp of its current producers, so a producer that re-ran after the
// cell did makes the cell stale in turn.
//
// # Concurrency
//
// One Scheduler serves one loop. Pass must not be called concurrently; the
// only suspension point is the Runner call, and the cylinder store it writes
// to is safe for the observers reading it meanwhile.
package scheduler
