package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// NewLogger returns a debug-level text logger writing to buf. The output is
// also echoed to the test log when CELLGRID_TEST_LOGS=true.
func NewLogger(t *testing.T, buf *SafeBuffer) *slog.Logger {
	t.Helper()
	var w io.Writer = buf
	if os.Getenv("CELLGRID_TEST_LOGS") == "true" {
		t.Cleanup(func() { t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String()) })
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
