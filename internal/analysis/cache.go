package analysis

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/model"
)

// DefaultSize is the entry bound used when New is given a non-positive size.
const DefaultSize = 1024

// Analyzer inspects one cell's source. A returned error means the source
// cannot be analyzed and becomes a model.ParseError.
type Analyzer interface {
	Analyze(source string) (model.Defines, error)
}

// AnalyzerFunc adapts a plain function to the Analyzer interface.
type AnalyzerFunc func(source string) (model.Defines, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(source string) (model.Defines, error) { return f(source) }

type entry struct {
	source string
	result model.Analysis
}

// Cache is a per-cell, content-checked memo of analysis results. It is not
// safe for concurrent use; the scheduler loop owns it.
type Cache struct {
	analyzer Analyzer
	entries  *lru.Cache[model.CellID, entry]

	hits   int
	misses int
}

// New creates a cache in front of analyzer holding at most size entries.
func New(analyzer Analyzer, size int) (*Cache, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analysis: analyzer is required")
	}
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[model.CellID, entry](size)
	if err != nil {
		return nil, fmt.Errorf("analysis: create cache: %w", err)
	}
	return &Cache{analyzer: analyzer, entries: entries}, nil
}

// Analyze returns the analysis of cell, reusing the cached one when the
// source is unchanged.
func (c *Cache) Analyze(ctx context.Context, cell model.Cell) model.Analysis {
	if cell.Kind == model.KindText {
		c.entries.Remove(cell.ID)
		return model.NonExecutable{}
	}

	if e, ok := c.entries.Get(cell.ID); ok && e.source == cell.Source {
		c.hits++
		return e.result
	}

	c.misses++
	var result model.Analysis
	defines, err := c.analyzer.Analyze(cell.Source)
	if err != nil {
		ctxlog.FromContext(ctx).Debug("Cell failed analysis.", "cell", cell.ID, "error", err)
		result = model.ParseError{Err: &model.AnalysisError{Cell: cell.ID, Err: err}}
	} else {
		result = defines.Normalize()
	}
	c.entries.Add(cell.ID, entry{source: cell.Source, result: result})
	return result
}

// Retain evicts every entry whose id is not in keep and returns how many
// entries were removed.
func (c *Cache) Retain(keep map[model.CellID]int) int {
	removed := 0
	for _, id := range c.entries.Keys() {
		if _, ok := keep[id]; !ok {
			c.entries.Remove(id)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries.
func (c *Cache) Len() int { return c.entries.Len() }

// Stats returns the number of lookups served from the cache and the number
// that invoked the analyzer.
func (c *Cache) Stats() (hits, misses int) { return c.hits, c.misses }
