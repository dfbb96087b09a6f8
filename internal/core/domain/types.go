// Package domain contains the core domain types for Stackman.
package domain

import (
	"strings"
	"time"
)

// =============================================================================
// Deployment Strategy
// =============================================================================

// Strategy selects the deployment algorithm for a deploy run.
type Strategy string

const (
	StrategyRecreate  Strategy = "recreate"
	StrategyRolling   Strategy = "rolling"
	StrategyBlueGreen Strategy = "blue-green"
)

// Known reports whether the strategy is one of the supported values.
func (s Strategy) Known() bool {
	switch s {
	case StrategyRecreate, StrategyRolling, StrategyBlueGreen:
		return true
	}
	return false
}

// DeploymentPolicy is the deployment section of the settings tree, read once
// per deploy invocation and never persisted back.
type DeploymentPolicy struct {
	Strategy          Strategy `json:"strategy"`
	RollbackOnFailure bool     `json:"rollback_on_failure"`
	PreDeployHooks    []string `json:"pre_deploy_hooks,omitempty"`
	PostDeployHooks   []string `json:"post_deploy_hooks,omitempty"`
}

// DeployOutcome is the terminal result of a deploy state machine run.
// Success is the programmatic signal; Message is the human-readable outcome.
type DeployOutcome struct {
	Success    bool     `json:"success"`
	RolledBack bool     `json:"rolled_back"`
	Message    string   `json:"message"`
	Warnings   []string `json:"warnings,omitempty"`
}

// DeployRun is one completed deploy recorded in the history store.
type DeployRun struct {
	ID          string    `json:"id" db:"id"`
	Environment string    `json:"environment" db:"environment"`
	Strategy    string    `json:"strategy" db:"strategy"`
	Success     bool      `json:"success" db:"success"`
	RolledBack  bool      `json:"rolled_back" db:"rolled_back"`
	Outcome     string    `json:"outcome" db:"outcome"`
	StartedAt   time.Time `json:"started_at" db:"started_at"`
	FinishedAt  time.Time `json:"finished_at" db:"finished_at"`
}

// =============================================================================
// Environment Types
// =============================================================================

// DefaultComposeTarget is the conventional compose file name used when an
// environment does not declare one.
const DefaultComposeTarget = "docker-compose.yml"

// EnvironmentConfig holds the per-environment settings.
type EnvironmentConfig struct {
	ComposeTarget string   `json:"compose_target"`
	EnvFile       string   `json:"env_file,omitempty"`
	BuildOptions  []string `json:"build_options,omitempty"`
}

// =============================================================================
// Backup Types
// =============================================================================

// BackupRecord describes a named group of snapshot artifacts plus metadata.
// A record is only valid once its metadata descriptor has been written.
type BackupRecord struct {
	Name          string    `json:"name"`
	Timestamp     time.Time `json:"timestamp"`
	Environment   string    `json:"environment"`
	ComposeTarget string    `json:"compose_target"`
	EnvFile       string    `json:"env_file,omitempty"`
	Artifacts     []string  `json:"artifacts"`
}

// BackupValidation is the result of checking a backup record's integrity.
type BackupValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// =============================================================================
// Service Status Types
// =============================================================================

// ServiceState is the normalized run state of a compose service.
type ServiceState string

const (
	ServiceStateRunning ServiceState = "running"
	ServiceStateStopped ServiceState = "stopped"
	ServiceStateUnknown ServiceState = "unknown"
)

// NormalizeServiceState maps the free-text state reported by the container
// runtime onto the three states the monitor distinguishes.
func NormalizeServiceState(raw string) ServiceState {
	switch strings.ToLower(raw) {
	case "running", "up":
		return ServiceStateRunning
	case "exited", "stopped", "dead":
		return ServiceStateStopped
	}
	return ServiceStateUnknown
}

// ServiceStatusSample is a point-in-time observation of one service.
type ServiceStatusSample struct {
	Name       string       `json:"name"`
	State      ServiceState `json:"state"`
	StatusText string       `json:"status"`
	Ports      string       `json:"ports,omitempty"`
	CreatedAt  string       `json:"created,omitempty"`
}

// StatusReport is one monitoring tick: an ordered set of samples plus the
// capture timestamp. Immutable once produced.
type StatusReport struct {
	Services  []ServiceStatusSample `json:"services"`
	Timestamp time.Time             `json:"timestamp"`
	Err       string                `json:"error,omitempty"`
}

// Summary counts the samples by normalized state.
func (r StatusReport) Summary() (running, stopped, unknown int) {
	for _, s := range r.Services {
		switch s.State {
		case ServiceStateRunning:
			running++
		case ServiceStateStopped:
			stopped++
		default:
			unknown++
		}
	}
	return running, stopped, unknown
}

// =============================================================================
// Health Types
// =============================================================================

// HealthStatus is the health-check verdict for a single service.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// NormalizeHealthStatus maps the runtime's free-text health field.
func NormalizeHealthStatus(raw string) HealthStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "healthy":
		return HealthStatusHealthy
	case "unhealthy":
		return HealthStatusUnhealthy
	}
	return HealthStatusUnknown
}

// HealthRecord is an on-demand health probe result. Produced fresh for every
// probe, never cached.
type HealthRecord struct {
	Service   string       `json:"service"`
	Running   bool         `json:"running"`
	Health    HealthStatus `json:"health_status"`
	RawStatus string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}
