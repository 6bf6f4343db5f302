// Package cylinderstore keeps one mutable run-state record, a Cylinder, per
// notebook cell.
//
// # Ownership
//
// Cylinders are created, updated and deleted only by the scheduler loop. The
// presentation layer never touches them; it reads a Shadow, an immutable copy
// of the observable fields taken after each pass.
//
// # Concurrency Model
//
// The scheduler loop is the only writer, but two things happen off the loop:
// observers take Shadow snapshots, and the engine cancels an in-flight run
// when a newer notebook supersedes it. Both go through the Store's mutex, so
// every method is safe for concurrent use. The cancellation handle of each
// cylinder is a context.CancelFunc, and a run identifier lets the scheduler
// tell whether the run it awaited is still the cylinder's current one.
package cylinderstore
