package testutil

import (
	"context"
	"sync"

	"github.com/vk/cellgrid/internal/model"
)

// RunRecord is one call observed by a RecordingRunner.
type RunRecord struct {
	Code   string
	Inputs map[string]model.Value
}

// RecordingRunner wraps a runner and records every call made through it.
type RecordingRunner struct {
	Next model.Runner

	mu   sync.Mutex
	runs []RunRecord
}

// Run records the call and delegates to Next.
func (r *RecordingRunner) Run(ctx context.Context, code string, inputs map[string]model.Value) (model.Outcome, error) {
	r.mu.Lock()
	r.runs = append(r.runs, RunRecord{Code: code, Inputs: inputs})
	r.mu.Unlock()
	return r.Next.Run(ctx, code, inputs)
}

// Runs returns the recorded calls in order.
func (r *RecordingRunner) Runs() []RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RunRecord(nil), r.runs...)
}

// Count returns how many times code was run.
func (r *RecordingRunner) Count(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, run := range r.runs {
		if run.Code == code {
			n++
		}
	}
	return n
}

// Reset forgets all recorded calls.
func (r *RecordingRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = nil
}

// GatedRunner blocks runs of the gated code until the test releases them or
// the run is cancelled. Other code is delegated immediately.
type GatedRunner struct {
	Next model.Runner
	Code string

	// Started receives the code of every gated run once it blocks.
	Started chan string

	release chan struct{}
	once    sync.Once
}

// NewGatedRunner gates runs of code.
func NewGatedRunner(next model.Runner, code string) *GatedRunner {
	return &GatedRunner{
		Next:    next,
		Code:    code,
		Started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

// Release unblocks every current and future gated run.
func (g *GatedRunner) Release() {
	g.once.Do(func() { close(g.release) })
}

// Run implements model.Runner.
func (g *GatedRunner) Run(ctx context.Context, code string, inputs map[string]model.Value) (model.Outcome, error) {
	if code == g.Code {
		g.Started <- code
		select {
		case <-g.release:
		case <-ctx.Done():
			return model.Outcome{}, ctx.Err()
		}
	}
	return g.Next.Run(ctx, code, inputs)
}
