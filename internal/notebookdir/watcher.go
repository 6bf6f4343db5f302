package notebookdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/fsutil"
)

// DefaultDebounce is the quiet period after the last file event before the
// notebook is reloaded.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads a notebook directory when its cell files change. Bursts of
// events within the debounce window are coalesced into one reload.
type Watcher struct {
	loader   *Loader
	fsw      *fsnotify.Watcher
	debounce time.Duration
	onChange func(ctx context.Context) error
	started  atomic.Bool
}

// NewWatcher watches the loader's directory tree. onChange is called after
// every debounced burst of relevant events; calls never overlap.
func NewWatcher(loader *Loader, debounce time.Duration, onChange func(ctx context.Context) error) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	w := &Watcher{loader: loader, fsw: fsw, debounce: debounce, onChange: onChange}
	if err := w.addDirectories(); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Close releases the underlying file watcher of a watcher that will not be
// run. Run releases it on its own.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks until ctx is cancelled, dispatching debounced reloads. It
// returns nil on cancellation and an error if the watcher broke.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}
	logger := ctxlog.FromContext(ctx)

	var (
		mu      sync.Mutex
		timer   *time.Timer
		dirty   bool
		running sync.Mutex
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		// Serialize callbacks; a burst arriving during a reload re-arms the timer.
		running.Lock()
		defer running.Unlock()

		mu.Lock()
		if !dirty {
			mu.Unlock()
			return
		}
		dirty = false
		mu.Unlock()

		if w.onChange == nil {
			return
		}
		if err := w.onChange(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Reload after file change failed.", "error", err)
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			logger.Warn("Failed to close file watcher.", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(ctx, evt.Name)
			}
			if !w.relevant(evt) {
				continue
			}
			logger.Debug("Notebook file changed.", "path", evt.Name, "op", evt.Op.String())

			mu.Lock()
			dirty = true
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; a full reload covers them.
				mu.Lock()
				dirty = true
				mu.Unlock()
				go fire()
				continue
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

// relevant reports whether evt can change the notebook: a cell file was
// touched, or a directory that may have held cell files disappeared.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if evt.Op == fsnotify.Chmod {
		return false
	}
	if fsutil.HasExtension(evt.Name, Extensions...) {
		return !hidden(w.loader.Root(), evt.Name)
	}
	return evt.Has(fsnotify.Remove) || evt.Has(fsnotify.Rename)
}

func (w *Watcher) addDirectories() error {
	root := w.loader.Root()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk directory tree: %w", err)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || hidden(w.loader.Root(), path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to watch new directory.", "path", path, "error", err)
	}
}

// hidden reports whether path lies under a dot-directory below root.
func hidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
