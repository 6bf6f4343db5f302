// Package analysis memoizes what each cell defines and consumes.
//
// The Cache is keyed by CellID and remembers the source text it analyzed, so
// a cell is re-analyzed only when its source changes. Prose cells never reach
// the Analyzer. Entries for cells that left the notebook are evicted with
// Retain, and the backing LRU bounds memory for very large notebooks; an
// entry dropped by the LRU is simply recomputed on the next lookup.
package analysis
