package dag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/cellgrid/internal/model"
)

func ids(s ...string) []model.CellID {
	out := make([]model.CellID, len(s))
	for i, v := range s {
		out[i] = model.CellID(v)
	}
	return out
}

func defines(produced, consumed []string) model.Analysis {
	return model.Defines{Produced: produced, Consumed: consumed}.Normalize()
}

func TestNew(t *testing.T) {
	g := New(ids("a", "b", "a"))
	require.NotNil(t, g)
	assert.Equal(t, ids("a", "b"), g.Order())
	assert.Equal(t, 1, g.Position("b"))
	assert.Equal(t, -1, g.Position("zzz"))
}

func TestAddEdge(t *testing.T) {
	t.Run("success case", func(t *testing.T) {
		g := New(ids("a", "b"))
		require.NoError(t, g.AddEdge("a", "b", "x"))
		require.NoError(t, g.AddEdge("a", "b", "w"))
		require.NoError(t, g.AddEdge("a", "b", "x"))

		assert.True(t, g.Connected("a", "b"))
		assert.False(t, g.Connected("b", "a"))
		assert.Equal(t, []string{"w", "x"}, g.Labels("a", "b"))
		assert.Equal(t, ids("a"), g.Upstream("b"))
		assert.Equal(t, ids("b"), g.Downstream("a"))
	})

	t.Run("error cases", func(t *testing.T) {
		g := New(ids("a", "b"))

		assert.ErrorContains(t, g.AddEdge("dne", "a", "x"), "source cell not found")
		assert.ErrorContains(t, g.AddEdge("a", "dne", "x"), "destination cell not found")
		assert.ErrorContains(t, g.AddEdge("a", "a", "x"), "self-referential edge")
	})
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	t.Run("links consumers to producers", func(t *testing.T) {
		g := Build(ctx, ids("A", "B", "C"), map[model.CellID]model.Analysis{
			"A": defines([]string{"x"}, nil),
			"B": defines([]string{"y"}, []string{"x"}),
			"C": defines(nil, []string{"x", "y", "unknown"}),
		})

		assert.Equal(t, map[model.CellID][]string{"A": {"x"}, "B": {"y"}}, g.Incoming("C"))
		assert.Equal(t, map[model.CellID][]string{"B": {"x"}, "C": {"x"}}, g.Outgoing("A"))
		assert.Empty(t, g.Upstream("A"))
	})

	t.Run("parse errors and prose contribute nothing", func(t *testing.T) {
		g := Build(ctx, ids("A", "B", "T"), map[model.CellID]model.Analysis{
			"A": model.ParseError{},
			"B": defines(nil, []string{"x"}),
			"T": model.NonExecutable{},
		})

		assert.Empty(t, g.Upstream("B"))
		assert.Empty(t, g.Producers("x"))
	})

	t.Run("duplicate producers each get an edge", func(t *testing.T) {
		g := Build(ctx, ids("A", "B", "C"), map[model.CellID]model.Analysis{
			"A": defines([]string{"x"}, nil),
			"B": defines([]string{"x"}, nil),
			"C": defines(nil, []string{"x"}),
		})

		assert.Equal(t, ids("A", "B"), g.Upstream("C"))
		assert.Equal(t, ids("A", "B"), g.Producers("x"))
	})
}

func TestTopologicalOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		order    []model.CellID
		analyses map[model.CellID]model.Analysis
		want     []model.CellID
	}{
		{
			name:  "empty graph",
			order: nil,
			want:  []model.CellID{},
		},
		{
			name:  "consumer declared before producer",
			order: ids("B", "A"),
			analyses: map[model.CellID]model.Analysis{
				"A": defines([]string{"x"}, nil),
				"B": defines(nil, []string{"x"}),
			},
			want: ids("A", "B"),
		},
		{
			name:  "independent cells keep declared order",
			order: ids("C", "A", "B"),
			analyses: map[model.CellID]model.Analysis{
				"A": defines([]string{"a"}, nil),
				"B": defines([]string{"b"}, nil),
				"C": defines([]string{"c"}, nil),
			},
			want: ids("C", "A", "B"),
		},
		{
			name:  "diamond",
			order: ids("D", "C", "B", "A"),
			analyses: map[model.CellID]model.Analysis{
				"A": defines([]string{"a"}, nil),
				"B": defines([]string{"b"}, []string{"a"}),
				"C": defines([]string{"c"}, []string{"a"}),
				"D": defines(nil, []string{"b", "c"}),
			},
			want: ids("A", "C", "B", "D"),
		},
		{
			name:  "cycle members are still emitted",
			order: ids("A", "B", "C"),
			analyses: map[model.CellID]model.Analysis{
				"A": defines([]string{"a"}, []string{"b"}),
				"B": defines([]string{"b"}, []string{"a"}),
				"C": defines(nil, []string{"a"}),
			},
			want: ids("A", "B", "C"),
		},
		{
			name:  "free cell precedes a blocked cycle",
			order: ids("A", "B", "F"),
			analyses: map[model.CellID]model.Analysis{
				"A": defines([]string{"a"}, []string{"b"}),
				"B": defines([]string{"b"}, []string{"a"}),
				"F": defines([]string{"f"}, nil),
			},
			want: ids("F", "A", "B"),
		},
		{
			name:  "consumer declared above a cycle follows it",
			order: ids("C", "A", "B"),
			analyses: map[model.CellID]model.Analysis{
				"A": defines([]string{"a"}, []string{"b"}),
				"B": defines([]string{"b"}, []string{"a"}),
				"C": defines([]string{"y"}, []string{"a"}),
			},
			want: ids("A", "B", "C"),
		},
		{
			name:  "downstream cycle waits for the cycle feeding it",
			order: ids("X", "Y", "P", "Q"),
			analyses: map[model.CellID]model.Analysis{
				"P": defines([]string{"p"}, []string{"q"}),
				"Q": defines([]string{"q"}, []string{"p"}),
				"X": defines([]string{"x"}, []string{"y", "p"}),
				"Y": defines([]string{"y"}, []string{"x"}),
			},
			want: ids("P", "Q", "X", "Y"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Build(ctx, tt.order, tt.analyses)
			assert.Equal(t, tt.want, g.TopologicalOrder())
		})
	}
}

func TestCycles(t *testing.T) {
	ctx := context.Background()

	t.Run("acyclic graph has no cycles", func(t *testing.T) {
		g := Build(ctx, ids("A", "B"), map[model.CellID]model.Analysis{
			"A": defines([]string{"a"}, nil),
			"B": defines(nil, []string{"a"}),
		})
		assert.Empty(t, g.Cycles())
	})

	t.Run("two-cell cycle", func(t *testing.T) {
		g := Build(ctx, ids("A", "B"), map[model.CellID]model.Analysis{
			"A": defines([]string{"a"}, []string{"b"}),
			"B": defines([]string{"b"}, []string{"a"}),
		})

		cycles := g.Cycles()
		require.Len(t, cycles, 1)
		assert.Equal(t, Cycle{
			{Cell: "A", Name: "a"},
			{Cell: "B", Name: "b"},
			{Cell: "A"},
		}, cycles[0])
		assert.Equal(t, ids("A", "B"), cycles[0].Cells())
		assert.Equal(t, "A -> B -> A (via a, b)", model.FormatCycle(cycles[0]))

		fromB := cycles[0].From("B")
		assert.Equal(t, Cycle{
			{Cell: "B", Name: "b"},
			{Cell: "A", Name: "a"},
			{Cell: "B"},
		}, fromB)
		assert.Nil(t, cycles[0].From("Z"))
	})

	t.Run("overlapping cycles are enumerated separately", func(t *testing.T) {
		// A <-> B and A -> C -> A
		g := Build(ctx, ids("A", "B", "C", "D"), map[model.CellID]model.Analysis{
			"A": defines([]string{"a"}, []string{"b", "c"}),
			"B": defines([]string{"b"}, []string{"a"}),
			"C": defines([]string{"c"}, []string{"a"}),
			"D": defines(nil, []string{"a"}),
		})

		cycles := g.Cycles()
		require.Len(t, cycles, 2)
		assert.Equal(t, ids("A", "B"), cycles[0].Cells())
		assert.Equal(t, ids("A", "C"), cycles[1].Cells())

		through := CyclesThrough(cycles, "C")
		require.Len(t, through, 1)
		assert.Equal(t, ids("C", "A"), through[0].Cells())
		assert.Empty(t, CyclesThrough(cycles, "D"))
	})

	t.Run("three-cell ring", func(t *testing.T) {
		g := Build(ctx, ids("A", "B", "C"), map[model.CellID]model.Analysis{
			"A": defines([]string{"a"}, []string{"c"}),
			"B": defines([]string{"b"}, []string{"a"}),
			"C": defines([]string{"c"}, []string{"b"}),
		})

		cycles := g.Cycles()
		require.Len(t, cycles, 1)
		assert.Equal(t, "A -> B -> C -> A (via a, b, c)", model.FormatCycle(cycles[0]))
	})
}

func TestDuplicateDefinitions(t *testing.T) {
	ctx := context.Background()
	g := Build(ctx, ids("A", "B", "C", "D"), map[model.CellID]model.Analysis{
		"A": defines([]string{"x"}, nil),
		"B": defines([]string{"x", "y"}, nil),
		"C": defines([]string{"x"}, nil),
		"D": defines([]string{"z"}, nil),
	})

	dups := g.DuplicateDefinitions()
	assert.Equal(t, map[model.CellID][]model.CellID{
		"A": ids("B", "C"),
		"B": ids("A", "C"),
		"C": ids("A", "B"),
	}, dups)
	assert.Equal(t, []string{"x"}, g.DuplicateNames())
}
