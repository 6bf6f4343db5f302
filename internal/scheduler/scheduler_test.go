package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/cellgrid/internal/analysis"
	"github.com/vk/cellgrid/internal/cylinderstore"
	"github.com/vk/cellgrid/internal/hclcell"
	"github.com/vk/cellgrid/internal/model"
	"github.com/vk/cellgrid/internal/testutil"
)

type harness struct {
	sched  *Scheduler
	store  *cylinderstore.Store
	runner *testutil.RecordingRunner
	events []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cache, err := analysis.New(hclcell.NewAnalyzer(), 0)
	require.NoError(t, err)
	h := &harness{
		store:  cylinderstore.New(),
		runner: &testutil.RecordingRunner{Next: hclcell.NewRunner()},
	}
	h.sched = New(cache, h.store, h.runner, WithObserver(func(ev Event) { h.events = append(h.events, ev) }))
	return h
}

// drain runs passes until one is quiescent and returns how many cells ran.
func (h *harness) drain(t *testing.T, nb model.Notebook) int {
	t.Helper()
	for i := 0; i < 100; i++ {
		ran, err := h.sched.Pass(context.Background(), nb)
		require.NoError(t, err)
		if !ran {
			return i
		}
	}
	t.Fatal("scheduler did not reach quiescence")
	return 0
}

func (h *harness) cylinder(t *testing.T, id string) cylinderstore.Cylinder {
	t.Helper()
	c, ok := h.store.Get(model.CellID(id))
	require.True(t, ok, "cylinder %s not found", id)
	return c
}

func (h *harness) staticKind(t *testing.T, id string) model.StaticErrorKind {
	t.Helper()
	c := h.cylinder(t, id)
	require.True(t, c.Result.IsThrow(), "cell %s did not throw", id)
	var se *model.StaticError
	require.True(t, errors.As(c.Result.Err, &se), "cell %s threw %v", id, c.Result.Err)
	return se.Kind
}

func TestPass_RunsDependencyChainOnce(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("B", `y = x + 1`),
		testutil.Code("A", `x = 1`),
	)

	require.Equal(t, 2, h.drain(t, nb))

	a, b := h.cylinder(t, "A"), h.cylinder(t, "B")
	testutil.RequireInt(t, 1, a.Result.Value)
	testutil.RequireInt(t, 2, b.Result.Value)
	require.Equal(t, "y", b.Result.Name)
	require.Equal(t, []model.CellID{"A"}, b.UpstreamCells)
	require.Less(t, a.LastInternalRun, b.LastInternalRun)
	require.Equal(t, int64(1), b.LastRun)
	require.False(t, b.Waiting)
	require.False(t, b.Running)

	runs := h.runner.Runs()
	require.Len(t, runs, 2)
	require.Equal(t, `x = 1`, runs[0].Code)
	testutil.RequireInt(t, 1, runs[1].Inputs["x"])
}

func TestPass_RerunsOnlyWhatChanged(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", `x = 1`),
		testutil.Code("B", `y = x + 1`),
		testutil.Code("C", `z = 10`),
	)
	h.drain(t, nb)
	h.runner.Reset()

	nb = testutil.Edit(nb, "B", `y = x + 2`)
	require.Equal(t, 1, h.drain(t, nb))
	require.Equal(t, 1, h.runner.Count(`y = x + 2`))

	h.runner.Reset()
	nb = testutil.Edit(nb, "A", `x = 5`)
	require.Equal(t, 2, h.drain(t, nb))
	runs := h.runner.Runs()
	require.Equal(t, `x = 5`, runs[0].Code)
	require.Equal(t, `y = x + 2`, runs[1].Code)
	require.Zero(t, h.runner.Count(`z = 10`))
	testutil.RequireInt(t, 7, h.cylinder(t, "B").Result.Value)
}

func TestPass_NothingToDoIsQuiescent(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(testutil.Code("A", `x = 1`))
	h.drain(t, nb)

	ran, err := h.sched.Pass(context.Background(), nb)
	require.NoError(t, err)
	require.False(t, ran)
}

func TestPass_PrefersMostRecentlyRequestedReadyCell(t *testing.T) {
	h := newHarness(t)
	a := testutil.Code("A", `x = 1`)
	b := testutil.Code("B", `y = 2`)
	b.RequestedRunTime = 5
	nb := model.NewNotebook(a, b)

	ran, err := h.sched.Pass(context.Background(), nb)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, `y = 2`, h.runner.Runs()[0].Code)

	_, err = h.sched.Pass(context.Background(), nb)
	require.NoError(t, err)
	require.Equal(t, `x = 1`, h.runner.Runs()[1].Code)
}

func TestPass_DuplicateDefinition(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", `x = 1`),
		testutil.Code("B", `x = 2`),
		testutil.Code("C", `y = x`),
	)
	h.drain(t, nb)

	require.Equal(t, model.DuplicateDefinition, h.staticKind(t, "A"))
	require.Equal(t, model.DuplicateDefinition, h.staticKind(t, "B"))
	require.Contains(t, h.cylinder(t, "A").Result.Err.Error(), "also defined by B")
	require.Nil(t, h.cylinder(t, "A").Variables)

	c := h.cylinder(t, "C")
	require.True(t, c.Result.IsThrow())
	var re *model.RuntimeError
	require.ErrorAs(t, c.Result.Err, &re)
	require.Contains(t, re.Error(), "Unknown variable")

	// Renaming one definition clears the conflict on both cells.
	h.runner.Reset()
	nb = testutil.Edit(nb, "B", `z = 2`)
	require.Equal(t, 3, h.drain(t, nb))
	require.True(t, h.cylinder(t, "A").Result.IsReturn())
	require.True(t, h.cylinder(t, "B").Result.IsReturn())
	testutil.RequireInt(t, 1, h.cylinder(t, "C").Result.Value)
	require.Equal(t, `z = 2`, h.runner.Runs()[0].Code)
}

func TestPass_CyclicDependency(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", `a = b`),
		testutil.Code("B", `b = a`),
		testutil.Code("C", `c = 1`),
	)
	require.Equal(t, 1, h.drain(t, nb))

	require.Equal(t, model.CyclicDependency, h.staticKind(t, "A"))
	require.Equal(t, model.CyclicDependency, h.staticKind(t, "B"))
	require.Contains(t, h.cylinder(t, "A").Result.Err.Error(), "A -> B -> A (via a, b)")
	require.Contains(t, h.cylinder(t, "B").Result.Err.Error(), "B -> A -> B (via b, a)")
	require.True(t, h.cylinder(t, "C").Result.IsReturn())
	require.Zero(t, h.runner.Count(`a = b`))

	// Breaking the cycle lets both cells run.
	nb = testutil.Edit(nb, "A", `a = 1`)
	require.Equal(t, 2, h.drain(t, nb))
	testutil.RequireInt(t, 1, h.cylinder(t, "B").Result.Value)
}

func TestPass_TopLevelEscapeAndParseError(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", "x = 1\nreturn = x"),
		testutil.Code("B", `y = `),
	)
	require.Zero(t, h.drain(t, nb))

	require.Equal(t, model.TopLevelEscape, h.staticKind(t, "A"))

	b := h.cylinder(t, "B")
	require.True(t, b.Result.IsThrow())
	var ae *model.AnalysisError
	require.ErrorAs(t, b.Result.Err, &ae)
	require.Equal(t, model.CellID("B"), ae.Cell)
	require.Equal(t, int64(1), b.LastRun)
}

func TestPass_DeletedProducerRerunsConsumer(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", `x = 1`),
		testutil.Code("B", `y = x`),
	)
	h.drain(t, nb)

	nb = testutil.Remove(nb, "A")
	require.Equal(t, 1, h.drain(t, nb))

	require.False(t, h.store.Has("A"))
	b := h.cylinder(t, "B")
	require.True(t, b.Result.IsThrow())
	require.Empty(t, b.UpstreamCells)
	require.Nil(t, b.Variables)
}

func TestPass_ProducerStopsExportingName(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", `x = 1`),
		testutil.Code("B", `y = x`),
	)
	h.drain(t, nb)

	nb = testutil.Edit(nb, "A", `w = 1`)
	require.Equal(t, 2, h.drain(t, nb))
	require.True(t, h.cylinder(t, "B").Result.IsThrow())
}

func TestPass_TextCellsNeverRun(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Text("T", "# Heading"),
		testutil.Code("A", `x = 1`),
	)
	require.Equal(t, 1, h.drain(t, nb))

	tc := h.cylinder(t, "T")
	require.Equal(t, model.ResultNone, tc.Result.Kind)
	require.Equal(t, int64(1), tc.LastRun)
	require.Zero(t, h.runner.Count("# Heading"))
}

func TestPass_ObserverSeesStartAndFinish(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(testutil.Code("A", `x = 1`))
	h.drain(t, nb)

	require.Len(t, h.events, 2)
	require.Equal(t, EventCellStarted, h.events[0].Kind)
	require.Equal(t, EventCellFinished, h.events[1].Kind)
	require.Equal(t, model.CellID("A"), h.events[1].Cell)
	require.Equal(t, h.sched.Counter(), h.events[1].Counter)
}

func TestPass_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran, err := h.sched.Pass(ctx, model.NewNotebook(testutil.Code("A", `x = 1`)))
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ran)
}

func TestPlan_WaitingAndReady(t *testing.T) {
	h := newHarness(t)
	nb := model.NewNotebook(
		testutil.Code("A", `x = 1`),
		testutil.Code("B", `y = x`),
		testutil.Code("C", `z = 3`),
	)
	for _, id := range nb.Order {
		h.store.Ensure(id)
	}

	p := h.sched.Plan(context.Background(), nb)
	require.Equal(t, []model.CellID{"A", "B", "C"}, p.Fine)
	require.Equal(t, []model.CellID{"A", "C"}, p.Ready)
	require.Equal(t, model.RunNow, p.ShouldRunAt["B"])
	require.True(t, p.IsScheduled("C"))

	h.sched.apply(context.Background(), p)
	require.True(t, h.cylinder(t, "B").Waiting)
}
