package main

import (
	"context"
	"fmt"

	"github.com/CodeFreezeAI/xcf/internal/action"
	"github.com/CodeFreezeAI/xcf/internal/automation"
	"github.com/CodeFreezeAI/xcf/internal/catalog"
	"github.com/CodeFreezeAI/xcf/internal/dispatch"
	"github.com/CodeFreezeAI/xcf/internal/history"
	"github.com/CodeFreezeAI/xcf/internal/logging"
	"github.com/CodeFreezeAI/xcf/internal/session"
	"github.com/CodeFreezeAI/xcf/internal/sys"
	"github.com/CodeFreezeAI/xcf/internal/ui"
	"github.com/CodeFreezeAI/xcf/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds the collaborators for one process.
type app struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	history    *history.Store
}

func newApp(cmd *cobra.Command, reg *action.Registry, f *flags) (*app, error) {
	cm, err := sys.NewConfigManager(reg.ToolName())
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := cm.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if f.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cm.GetDataPath("logs/"+reg.ToolName()+".log"))
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: logging disabled: %v\n", reg.ToolName(), err)
		logger = logging.Nop()
	}

	a := &app{logger: logger}

	var recorder history.Recorder = history.Nop{}
	if hs, err := history.Open(cm.GetDataPath("history.db")); err != nil {
		logger.Warn("run history unavailable", zap.Error(err))
	} else {
		a.history = hs
		recorder = hs
	}

	store := session.NewFileStore(cfg.State.Path, logger)
	cache := catalog.NewCache(catalog.NewScanner(cfg.Catalog.Roots, cfg.Catalog.MaxDepth, logger))
	out := cmd.OutOrStdout()

	a.dispatcher = dispatch.New(dispatch.Options{
		Registry: reg,
		Store:    store,
		Catalog:  cache,
		Backend: automation.NewExecBackend(automation.Options{
			Timeout:      cfg.Automation.Timeout,
			BuildCommand: cfg.Automation.BuildCommand,
			RunCommand:   cfg.Automation.RunCommand,
			Output:       out,
		}, logger),
		History:       recorder,
		Settings:      cm,
		Printer:       ui.New(out, cfg.UI.Color && !f.noColor).WithErrors(cmd.ErrOrStderr()),
		Logger:        logger,
		Input:         cmd.InOrStdin(),
		OnInteractive: watchRoots(cfg.Catalog.Roots, cfg.Catalog.MaxDepth, cache, logger),
	})

	logger.Debug("started",
		zap.String("version", Version),
		zap.Strings("roots", cfg.Catalog.Roots),
		zap.String("state", store.Path()))
	return a, nil
}

// watchRoots returns a hook that keeps the catalog cache fresh while an
// interactive session runs.
func watchRoots(roots []string, maxDepth int, cache *catalog.Cache, logger *zap.Logger) func(context.Context) func() {
	return func(context.Context) func() {
		w, err := watcher.New(maxDepth, catalog.DefaultIgnore, logger)
		if err != nil {
			logger.Warn("file watching unavailable", zap.Error(err))
			return nil
		}
		for _, root := range roots {
			if err := w.AddRoot(root); err != nil {
				logger.Warn("cannot watch root", zap.String("root", root), zap.Error(err))
			}
		}
		w.Subscribe(func(e watcher.Event) {
			logger.Debug("catalog invalidated", zap.Stringer("event", e.Type), zap.String("path", e.Path))
			cache.Invalidate()
		})
		w.Start()
		return w.Stop
	}
}

// Close flushes the log and closes the history database.
func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("closing history", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
