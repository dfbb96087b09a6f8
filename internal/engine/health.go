package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/artpar/stackman/internal/core/config"
	"github.com/artpar/stackman/internal/core/domain"
	"github.com/artpar/stackman/internal/shell/dockerapi"
	"github.com/artpar/stackman/internal/shell/executor"
)

// =============================================================================
// Health Monitor
// =============================================================================

// Monitor performs on-demand health probes and the bounded polling loop.
// Probing is best-effort by design: a failed query is data (unknown health),
// never an error.
type Monitor struct {
	resolver  *config.Resolver
	gateway   *executor.Gateway
	inspector dockerapi.Inspector // optional; nil falls back to CLI probes
	logger    *slog.Logger

	// Clock seams for the watch loop. Tests substitute both.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewMonitor creates a health monitor. inspector may be nil.
func NewMonitor(resolver *config.Resolver, gateway *executor.Gateway, inspector dockerapi.Inspector, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		resolver:  resolver,
		gateway:   gateway,
		inspector: inspector,
		logger:    logger.With("component", "monitor"),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Probe checks one service. Absence of the container or a failed query
// yields running=false with unknown health.
func (m *Monitor) Probe(ctx context.Context, service string) domain.HealthRecord {
	record := domain.HealthRecord{
		Service:   service,
		Health:    domain.HealthStatusUnknown,
		RawStatus: "Not found",
		Timestamp: m.now(),
	}

	if m.inspector != nil {
		if state, err := m.inspector.ContainerState(ctx, service); err == nil {
			record.Running = state.Running
			record.RawStatus = state.Status
			if state.Health != "" {
				record.Health = domain.NormalizeHealthStatus(state.Health)
			}
			return record
		}
	}

	status := m.gateway.ContainerStatus(ctx, service)
	if !status.Succeeded {
		return record
	}
	text := strings.TrimSpace(status.Stdout)
	if text != "" {
		record.RawStatus = text
		record.Running = strings.Contains(text, "Up") || strings.Contains(strings.ToLower(text), "running")
	}

	if health := m.gateway.ContainerHealth(ctx, service); health.Succeeded {
		if verdict := strings.TrimSpace(health.Stdout); verdict != "" {
			record.Health = domain.NormalizeHealthStatus(verdict)
		}
	}

	return record
}

// ProbeAll enumerates the environment's current services and probes each by
// name. Entries without a resolvable name are skipped.
func (m *Monitor) ProbeAll(ctx context.Context, env string) []domain.HealthRecord {
	report := m.Status(ctx, env)

	var records []domain.HealthRecord
	for _, svc := range report.Services {
		if svc.Name == "" {
			continue
		}
		records = append(records, m.Probe(ctx, svc.Name))
	}
	return records
}

// Status samples the environment's service listing into a report. A failed
// listing produces a report carrying the error, not a Go error.
func (m *Monitor) Status(ctx context.Context, env string) domain.StatusReport {
	envCfg := m.resolver.Environment(env)
	target := executor.Target{
		ComposeTarget: envCfg.ComposeTarget,
		EnvVars:       m.resolver.EnvVars(env),
	}

	result := m.gateway.PsJSON(ctx, target)
	if !result.Succeeded {
		return domain.StatusReport{
			Timestamp: m.now(),
			Err:       "failed to get service status",
		}
	}
	return executor.ParseServiceListing(result.Stdout, m.now())
}

// =============================================================================
// Watch Loop
// =============================================================================

// Watch runs the polling loop: sample, emit, sleep, until the duration
// elapses or the context is canceled. A zero duration runs until canceled.
// Cancellation takes effect at the tick boundary, never mid-report.
// Disabled monitoring short-circuits with no ticks and ErrMonitoringDisabled.
func (m *Monitor) Watch(ctx context.Context, env string, duration time.Duration, emit func(domain.StatusReport)) error {
	settings := m.resolver.Monitoring()
	if !settings.Enabled {
		return domain.ErrMonitoringDisabled
	}

	interval := time.Duration(settings.Interval) * time.Second
	start := m.now()
	m.logger.Info("starting service monitoring", "environment", env, "interval", interval, "duration", duration)

	for {
		emit(m.Status(ctx, env))

		if err := m.sleep(ctx, interval); err != nil {
			m.logger.Info("monitoring stopped", "environment", env)
			return nil
		}
		if duration > 0 && m.now().Sub(start) >= duration {
			m.logger.Info("monitoring window elapsed", "environment", env)
			return nil
		}
	}
}
