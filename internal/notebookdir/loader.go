package notebookdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/fsutil"
	"github.com/vk/cellgrid/internal/model"
)

const (
	CodeExt = ".hcl"
	TextExt = ".md"
)

// Extensions lists the file extensions that become cells.
var Extensions = []string{CodeExt, TextExt}

type known struct {
	source    string
	requested int64
}

// Loader reads a directory into successive notebook snapshots. It remembers
// what it read before, so a cell is only requested again when its file
// content changed.
type Loader struct {
	root string

	mu    sync.Mutex
	cells map[model.CellID]known
	clock int64
}

// NewLoader creates a loader for the directory root.
func NewLoader(root string) *Loader {
	return &Loader{root: root, cells: make(map[model.CellID]known)}
}

// Root returns the directory the loader reads.
func (l *Loader) Root() string { return l.root }

// Load reads the directory and returns its notebook. New cells and cells
// whose content changed since the previous Load get a fresh
// RequestedRunTime.
func (l *Loader) Load(ctx context.Context) (model.Notebook, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(l.root)
	if os.IsNotExist(err) {
		return model.Notebook{}, fmt.Errorf("notebook directory not found: %s", l.root)
	}
	if err != nil {
		return model.Notebook{}, fmt.Errorf("error accessing notebook directory %s: %w", l.root, err)
	}
	if !info.IsDir() {
		return model.Notebook{}, fmt.Errorf("notebook path is not a directory: %s", l.root)
	}

	files, err := fsutil.FindFiles(l.root, Extensions...)
	if err != nil {
		return model.Notebook{}, fmt.Errorf("failed to scan notebook directory %s: %w", l.root, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock++

	cells := make([]model.Cell, 0, len(files))
	seen := make(map[model.CellID]string, len(files))
	next := make(map[model.CellID]known, len(files))
	changed := 0
	for _, path := range files {
		id, kind, err := l.identify(path)
		if err != nil {
			return model.Notebook{}, err
		}
		if other, dup := seen[id]; dup {
			return model.Notebook{}, fmt.Errorf("cell %s is defined by both %s and %s", id, other, path)
		}
		seen[id] = path

		content, err := os.ReadFile(path)
		if err != nil {
			return model.Notebook{}, fmt.Errorf("failed to read cell file %s: %w", path, err)
		}
		source := string(content)

		k, ok := l.cells[id]
		if !ok || k.source != source {
			k = known{source: source, requested: l.clock}
			changed++
		}
		next[id] = k
		cells = append(cells, model.Cell{ID: id, Kind: kind, Source: source, RequestedRunTime: k.requested})
	}

	removed := 0
	for id := range l.cells {
		if _, ok := next[id]; !ok {
			removed++
		}
	}
	l.cells = next

	logger.Debug("Loaded notebook directory.", "path", l.root, "cells", len(cells), "changed", changed, "removed", removed)
	return model.NewNotebook(cells...), nil
}

func (l *Loader) identify(path string) (model.CellID, model.Kind, error) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve cell path %s: %w", path, err)
	}
	ext := filepath.Ext(rel)
	id := model.CellID(filepath.ToSlash(strings.TrimSuffix(rel, ext)))
	if ext == TextExt {
		return id, model.KindText, nil
	}
	return id, model.KindCode, nil
}
