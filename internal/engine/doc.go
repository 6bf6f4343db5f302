// Package engine is the public face of the reactive notebook runtime. It
// accepts notebook snapshots, drives the scheduler until the notebook is
// quiescent and publishes the resulting cell state.
//
// # Update Model
//
// Update hands the engine a complete snapshot. When the engine is idle the
// calling goroutine runs the scheduling loop itself and returns once no cell
// is stale. When a loop is already running, Update only replaces the pending
// snapshot, cancels in-flight runs the new snapshot invalidates, and returns;
// the running loop picks the snapshot up on its next pass. A burst of edits
// therefore collapses into the work needed for the last one.
//
// # Observing State
//
// Shadow returns a copy of every cell's observable state at any time.
// Subscribe delivers cell activity and a fresh Shadow after every pass.
// Slow subscribers miss events rather than stall the loop.
package engine
