package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/engine"
	"github.com/vk/cellgrid/internal/hclcell"
	"github.com/vk/cellgrid/internal/model"
	"github.com/vk/cellgrid/internal/notebookdir"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	engine     *engine.Engine
	loader     *notebookdir.Loader
	httpServer *http.Server

	mu     sync.Mutex
	latest model.Notebook
	outMu  sync.Mutex
}

// NewApp is the constructor for the main application. Reports are written to
// outW and logs to logW.
func NewApp(outW, logW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	eng, err := engine.New(hclcell.NewAnalyzer(), hclcell.NewRunner(),
		engine.WithLogger(logger),
		engine.WithAnalysisCacheSize(cfg.AnalysisCacheSize),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	logger.Debug("Engine created.", "engine", eng.ID())

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		engine: eng,
		loader: notebookdir.NewLoader(cfg.NotebookPath),
	}, nil
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}

// Close releases the engine.
func (a *App) Close() error {
	return a.engine.Close()
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
