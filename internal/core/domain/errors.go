package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Taxonomy
// =============================================================================

var (
	// ErrBackupDisabled is returned by backup creation when the backup
	// section of the settings disables backups.
	ErrBackupDisabled = errors.New("backups are disabled")

	// ErrMonitoringDisabled is returned by the watch loop when monitoring
	// is disabled in the settings.
	ErrMonitoringDisabled = errors.New("monitoring is not enabled")

	// ErrUnknownEnvironment rejects a switch to an undeclared environment.
	// The current environment selector stays unchanged.
	ErrUnknownEnvironment = errors.New("environment not found")
)

// ConfigError reports a settings source that exists but cannot be loaded.
// Fatal at process start.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps a load failure with the offending path.
func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{Path: path, Err: err}
}

// DeploymentError reports a failed strategy step or hook. It carries enough
// context for the orchestrator to decide between rollback and plain failure.
type DeploymentError struct {
	Step   string // e.g. "pull", "pre_deploy_hook"
	Detail string
}

func (e *DeploymentError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("deployment step %s failed: %s", e.Step, e.Detail)
	}
	return fmt.Sprintf("deployment step %s failed", e.Step)
}

// BackupError reports a failed snapshot or restore step. Inside a deploy it
// degrades the run to Failed.
type BackupError struct {
	Op   string // "create", "restore", "sweep"
	Name string
	Err  error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// MonitoringError is reserved for probe-layer failures. The current monitor
// absorbs probe failures into "unknown" health instead of raising, so this
// only surfaces from the watch loop itself.
type MonitoringError struct {
	Err error
}

func (e *MonitoringError) Error() string {
	return fmt.Sprintf("monitoring: %v", e.Err)
}

func (e *MonitoringError) Unwrap() error {
	return e.Err
}
