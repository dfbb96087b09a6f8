// Package engine wires the resolved settings, the executor gateway and the
// backup store into the lifecycle operations the CLI exposes.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/artpar/stackman/internal/core/compose"
	"github.com/artpar/stackman/internal/core/config"
	"github.com/artpar/stackman/internal/core/domain"
	"github.com/artpar/stackman/internal/shell/executor"
)

// =============================================================================
// Manager
// =============================================================================

// Manager is the top-level facade: it owns the resolved settings and the
// current environment selector and delegates lifecycle operations to the
// gateway. SwitchEnvironment must not race an in-flight deploy on the same
// instance; operations are otherwise independent.
type Manager struct {
	resolver *config.Resolver
	gateway  *executor.Gateway
	env      string
	logger   *slog.Logger
}

// NewManager validates the settings and creates a manager bound to env.
// Validation errors are fatal; warnings are logged and tolerated.
func NewManager(resolver *config.Resolver, gateway *executor.Gateway, env string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "manager")

	errs, warnings := resolver.Validate()
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	for _, w := range warnings {
		logger.Warn("configuration warning", "warning", w)
	}

	return &Manager{
		resolver: resolver,
		gateway:  gateway,
		env:      env,
		logger:   logger,
	}, nil
}

// Environment returns the current environment name.
func (m *Manager) Environment() string {
	return m.env
}

// EnvironmentConfig returns the current environment's resolved config.
func (m *Manager) EnvironmentConfig() domain.EnvironmentConfig {
	return m.resolver.Environment(m.env)
}

// Target builds the gateway target for the current environment.
func (m *Manager) Target() executor.Target {
	envCfg := m.resolver.Environment(m.env)
	return executor.Target{
		ComposeTarget: envCfg.ComposeTarget,
		EnvVars:       m.resolver.EnvVars(m.env),
		BuildOptions:  envCfg.BuildOptions,
	}
}

// SwitchEnvironment moves the selector to a declared environment. An
// undeclared name is rejected and the selector stays unchanged.
func (m *Manager) SwitchEnvironment(name string) error {
	if !m.resolver.HasEnvironment(name) {
		available := m.resolver.EnvironmentNames()
		sort.Strings(available)
		return fmt.Errorf("%w: %q (available: %s)", domain.ErrUnknownEnvironment, name, strings.Join(available, ", "))
	}
	m.env = name
	m.logger.Info("switched environment", "environment", name)
	return nil
}

// =============================================================================
// Lifecycle Operations
// =============================================================================

// run translates a gateway result into the operation's (output, error) pair.
func (m *Manager) run(op string, result executor.Result) (string, error) {
	if !result.Succeeded {
		return result.Stdout, fmt.Errorf("%s failed in %s environment: %s", op, m.env, firstLine(result.Stderr))
	}
	return result.Stdout, nil
}

// Start starts services; an empty service name starts everything.
func (m *Manager) Start(ctx context.Context, service string) (string, error) {
	m.logger.Info("starting services", "environment", m.env, "service", service)
	return m.run("start", m.gateway.Up(ctx, m.Target(), service))
}

// Stop stops services.
func (m *Manager) Stop(ctx context.Context, service string) (string, error) {
	m.logger.Info("stopping services", "environment", m.env, "service", service)
	return m.run("stop", m.gateway.Stop(ctx, m.Target(), service))
}

// Restart restarts services.
func (m *Manager) Restart(ctx context.Context, service string) (string, error) {
	m.logger.Info("restarting services", "environment", m.env, "service", service)
	return m.run("restart", m.gateway.Restart(ctx, m.Target(), service))
}

// Remove removes stopped service containers.
func (m *Manager) Remove(ctx context.Context, service string) (string, error) {
	m.logger.Info("removing services", "environment", m.env, "service", service)
	return m.run("remove", m.gateway.Remove(ctx, m.Target(), service))
}

// Build builds service images with the environment's build options.
func (m *Manager) Build(ctx context.Context, service string) (string, error) {
	m.logger.Info("building services", "environment", m.env, "service", service)
	return m.run("build", m.gateway.Build(ctx, m.Target(), service))
}

// Pull pulls service images.
func (m *Manager) Pull(ctx context.Context, service string) (string, error) {
	m.logger.Info("pulling images", "environment", m.env, "service", service)
	return m.run("pull", m.gateway.Pull(ctx, m.Target(), service))
}

// Logs fetches service logs.
func (m *Manager) Logs(ctx context.Context, service string, follow bool) (string, error) {
	return m.run("logs", m.gateway.Logs(ctx, m.Target(), service, follow))
}

// Status returns the human-readable service listing.
func (m *Manager) Status(ctx context.Context) (string, error) {
	return m.run("status", m.gateway.Ps(ctx, m.Target()))
}

// =============================================================================
// Configuration Surface
// =============================================================================

// ShowConfig renders the effective settings tree.
func (m *Manager) ShowConfig() (string, error) {
	return m.resolver.Render()
}

// CheckSetup validates the settings structurally and checks that the current
// environment's compose target exists and parses. A missing or unparseable
// compose target is a warning: the file may legitimately appear later.
func (m *Manager) CheckSetup() (errs, warnings []string) {
	errs, warnings = m.resolver.Validate()

	envCfg := m.resolver.Environment(m.env)
	content, err := os.ReadFile(envCfg.ComposeTarget)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("compose target %s not readable: %v", envCfg.ComposeTarget, err))
		return errs, warnings
	}
	if _, err := compose.Parse(string(content)); err != nil {
		warnings = append(warnings, fmt.Sprintf("compose target %s does not parse: %v", envCfg.ComposeTarget, err))
	}
	return errs, warnings
}

// DeclaredServices lists the services declared in the current environment's
// compose target.
func (m *Manager) DeclaredServices() ([]string, error) {
	envCfg := m.resolver.Environment(m.env)
	content, err := os.ReadFile(envCfg.ComposeTarget)
	if err != nil {
		return nil, fmt.Errorf("read compose target: %w", err)
	}
	def, err := compose.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse compose target: %w", err)
	}
	return def.ServiceNames(), nil
}
