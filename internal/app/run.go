package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vk/cellgrid/internal/broadcast"
	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/engine"
	"github.com/vk/cellgrid/internal/model"
	"github.com/vk/cellgrid/internal/notebookdir"
)

// ErrCellsFailed is returned by a one-shot Run when any cell threw.
var ErrCellsFailed = errors.New("cells failed")

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	if a.config.BroadcastURL != "" {
		stop, err := a.startBroadcast(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	if !a.config.Watch {
		nb, err := a.loader.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load notebook: %w", err)
		}
		a.logger.Info("🚀 Running notebook...", "cells", len(nb.Order))
		if err := a.engine.Update(ctx, nb); err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}
		a.logger.Info("🏁 Notebook is up to date.")
		a.report(nb)
		return a.failures(nb)
	}

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(ctx, a.config.HealthcheckPort)
		defer a.closeHealthcheckServer(ctx)
	}

	var reports sync.WaitGroup
	defer reports.Wait()
	submit := func(ctx context.Context) error {
		return a.submit(ctx, &reports)
	}

	watcher, err := notebookdir.NewWatcher(a.loader, a.config.Debounce, submit)
	if err != nil {
		return fmt.Errorf("failed to watch notebook: %w", err)
	}
	if err := submit(ctx); err != nil {
		_ = watcher.Close()
		return err
	}
	a.logger.Info("👀 Watching notebook for changes.", "path", a.config.NotebookPath)
	return watcher.Run(ctx)
}

// submit loads the directory and hands the snapshot to the engine without
// waiting for it, so a later change can supersede work still in flight. The
// goroutine that ends up driving the engine to quiescence prints the report.
func (a *App) submit(ctx context.Context, reports *sync.WaitGroup) error {
	nb, err := a.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load notebook: %w", err)
	}
	a.setLatest(nb)

	reports.Add(1)
	go func() {
		defer reports.Done()
		if err := a.engine.Update(ctx, nb); err != nil {
			if ctx.Err() == nil && !errors.Is(err, engine.ErrClosed) {
				ctxlog.FromContext(ctx).Error("Notebook update failed.", "error", err)
			}
			return
		}
		if a.engine.Busy() {
			return
		}
		a.report(a.getLatest())
	}()
	return nil
}

func (a *App) startBroadcast(ctx context.Context) (func(), error) {
	pub, err := broadcast.Dial(ctx, broadcast.Config{
		URL:       a.config.BroadcastURL,
		Namespace: a.config.BroadcastNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broadcast server: %w", err)
	}

	events, cancel := a.engine.Subscribe(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			pub.Publish(ev)
		}
	}()

	return func() {
		cancel()
		<-done
		_ = pub.Close()
		a.logger.Debug("Broadcast stopped.", "sent", pub.Sent())
	}, nil
}

// failures returns ErrCellsFailed if any cell of nb threw.
func (a *App) failures(nb model.Notebook) error {
	shadow := a.engine.Shadow()
	failed := 0
	for _, id := range nb.LiveOrder() {
		if v, ok := shadow.Cylinder(id); ok && v.Result.IsThrow() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrCellsFailed, failed, len(nb.LiveOrder()))
	}
	return nil
}
