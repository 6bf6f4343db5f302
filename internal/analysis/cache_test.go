package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cellgrid/internal/model"
)

// countingAnalyzer treats "name <- dep dep" lines as definitions and counts
// its invocations.
type countingAnalyzer struct {
	calls int
}

func (a *countingAnalyzer) Analyze(source string) (model.Defines, error) {
	a.calls++
	if strings.Contains(source, "!!") {
		return model.Defines{}, errors.New("unexpected token")
	}
	var d model.Defines
	for _, line := range strings.Split(source, "\n") {
		name, deps, ok := strings.Cut(line, "<-")
		if !ok {
			continue
		}
		d.Produced = append(d.Produced, strings.TrimSpace(name))
		d.Consumed = append(d.Consumed, strings.Fields(deps)...)
	}
	return d, nil
}

func newTestCache(t *testing.T, size int) (*Cache, *countingAnalyzer) {
	t.Helper()
	a := &countingAnalyzer{}
	c, err := New(a, size)
	require.NoError(t, err)
	return c, a
}

func TestAnalyze_MemoizesBySource(t *testing.T) {
	c, a := newTestCache(t, 0)
	ctx := context.Background()
	cell := model.Cell{ID: "A", Source: "x <- y"}

	first := c.Analyze(ctx, cell)
	second := c.Analyze(ctx, cell)

	assert.Equal(t, 1, a.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, model.Defines{Produced: []string{"x"}, Consumed: []string{"y"}}, first)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestAnalyze_RecomputesOnSourceChange(t *testing.T) {
	c, a := newTestCache(t, 0)
	ctx := context.Background()

	c.Analyze(ctx, model.Cell{ID: "A", Source: "x <- y"})
	got := c.Analyze(ctx, model.Cell{ID: "A", Source: "x <- z"})

	assert.Equal(t, 2, a.calls)
	assert.Equal(t, []string{"z"}, model.ConsumedBy(got))
}

func TestAnalyze_TextCellsSkipAnalyzer(t *testing.T) {
	c, a := newTestCache(t, 0)
	got := c.Analyze(context.Background(), model.Cell{ID: "T", Kind: model.KindText, Source: "x <- y"})

	assert.Equal(t, model.NonExecutable{}, got)
	assert.Zero(t, a.calls)
	assert.Zero(t, c.Len())
}

func TestAnalyze_ParseErrorIsCached(t *testing.T) {
	c, a := newTestCache(t, 0)
	ctx := context.Background()
	cell := model.Cell{ID: "A", Source: "!!"}

	got := c.Analyze(ctx, cell)
	c.Analyze(ctx, cell)

	pe, ok := got.(model.ParseError)
	require.True(t, ok)
	var ae *model.AnalysisError
	require.ErrorAs(t, pe.Err, &ae)
	assert.Equal(t, model.CellID("A"), ae.Cell)
	assert.Equal(t, 1, a.calls)
}

func TestRetain_EvictsMissingCells(t *testing.T) {
	c, a := newTestCache(t, 0)
	ctx := context.Background()
	c.Analyze(ctx, model.Cell{ID: "A", Source: "x <- "})
	c.Analyze(ctx, model.Cell{ID: "B", Source: "y <- x"})

	removed := c.Retain(map[model.CellID]int{"A": 0})

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())

	c.Analyze(ctx, model.Cell{ID: "B", Source: "y <- x"})
	assert.Equal(t, 3, a.calls, "evicted entry is recomputed")
}

func TestAnalyze_BoundedSizeStaysCorrect(t *testing.T) {
	c, a := newTestCache(t, 1)
	ctx := context.Background()

	c.Analyze(ctx, model.Cell{ID: "A", Source: "x <- "})
	c.Analyze(ctx, model.Cell{ID: "B", Source: "y <- x"})
	got := c.Analyze(ctx, model.Cell{ID: "A", Source: "x <- "})

	assert.Equal(t, 3, a.calls)
	assert.Equal(t, []string{"x"}, model.ProducedBy(got))
}

func TestNew_RequiresAnalyzer(t *testing.T) {
	_, err := New(nil, 10)
	assert.ErrorContains(t, err, "analyzer is required")
}
