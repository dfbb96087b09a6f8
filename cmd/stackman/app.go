package main

import (
	"log/slog"

	"github.com/artpar/stackman/internal/core/config"
	"github.com/artpar/stackman/internal/engine"
	"github.com/artpar/stackman/internal/shell/backupstore"
	"github.com/artpar/stackman/internal/shell/dockerapi"
	"github.com/artpar/stackman/internal/shell/executor"
)

// appOptions carries the parsed command line into construction.
type appOptions struct {
	ConfigPath  string
	Environment string
	HistoryDSN  string
	Follow      bool
}

// app wires the engine components for one CLI invocation.
type app struct {
	opts      appOptions
	resolver  *config.Resolver
	manager   *engine.Manager
	backups   *engine.BackupManager
	monitor   *engine.Monitor
	gateway   *executor.Gateway
	inspector *dockerapi.Client // nil when the runtime API is unreachable
	logger    *slog.Logger
}

// newApp loads configuration and builds the component graph. The history
// database is opened lazily by the commands that use it.
func newApp(opts appOptions) (*app, error) {
	resolver, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger := SetupLogger(resolver.Logging())
	slog.SetDefault(logger)

	gateway := executor.NewGateway(executor.NewCLIRunner(logger), logger)

	manager, err := engine.NewManager(resolver, gateway, opts.Environment, logger)
	if err != nil {
		return nil, err
	}
	// Reject undeclared environments up front, with the declared set in the
	// error message.
	if err := manager.SwitchEnvironment(opts.Environment); err != nil {
		return nil, err
	}

	store := backupstore.New(resolver.Backup().Destination)
	backups := engine.NewBackupManager(store, gateway, resolver.Backup(), logger)

	// The API inspector is optional; probing falls back to CLI queries.
	inspector, err := dockerapi.NewClient("", logger)
	if err != nil {
		logger.Debug("runtime API unavailable, health probes use the CLI", "error", err)
		inspector = nil
	}

	var monitorInspector dockerapi.Inspector
	if inspector != nil {
		monitorInspector = inspector
	}
	monitor := engine.NewMonitor(resolver, gateway, monitorInspector, logger)

	return &app{
		opts:      opts,
		resolver:  resolver,
		manager:   manager,
		backups:   backups,
		monitor:   monitor,
		gateway:   gateway,
		inspector: inspector,
		logger:    logger,
	}, nil
}

// orchestrator builds a deployment orchestrator with the given history store.
func (a *app) orchestrator(history *engine.History) *engine.Orchestrator {
	return engine.NewOrchestrator(a.resolver, a.gateway, a.backups, history, a.logger)
}

// openHistory opens the deploy history database. Callers close it.
func (a *app) openHistory() (*engine.History, error) {
	return engine.OpenHistory(a.opts.HistoryDSN, a.logger)
}

// Close releases held connections.
func (a *app) Close() {
	if a.inspector != nil {
		a.inspector.Close()
	}
}
