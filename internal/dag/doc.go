// Package dag builds the dependency graph between notebook cells and runs the
// pure graph algorithms the scheduler relies on.
//
// An edge from cell A to cell B labeled N means "B consumes the name N that A
// produces". The graph is rebuilt on every scheduling pass from the current
// analyses; it is cheap and holds no state worth persisting.
//
// Unlike a build system, the graph here is allowed to contain cycles and
// conflicting definitions. They are reported, not rejected:
//   - TopologicalOrder always returns every cell, using declared cell order to
//     break ties and to place cells that a cycle keeps from being ordered.
//   - Cycles enumerates elementary cycles for diagnostics.
//   - DuplicateDefinitions maps every co-defining cell to its co-definers.
package dag
