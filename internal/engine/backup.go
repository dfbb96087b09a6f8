package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/artpar/stackman/internal/core/compose"
	"github.com/artpar/stackman/internal/core/config"
	"github.com/artpar/stackman/internal/core/domain"
	"github.com/artpar/stackman/internal/shell/backupstore"
	"github.com/artpar/stackman/internal/shell/executor"
)

// Artifact name suffixes. One backup record is the group of blobs sharing a
// name prefix; the metadata descriptor is written last and is what makes the
// record valid.
const (
	suffixCompose  = "_compose.yml"
	suffixEnv      = "_env"
	suffixState    = "_state.json"
	suffixMetadata = "_metadata.json"
)

// asideOld is the rename-aside suffix for plain restores; rollback inside a
// failed deploy uses asideFailed so the broken revision stays inspectable.
const (
	asideOld    = ".old"
	asideFailed = ".failed"
)

// =============================================================================
// Backup Manager
// =============================================================================

// BackupManager snapshots and restores deployment state: the compose target,
// the env file, and a point-in-time service-state dump.
type BackupManager struct {
	store    *backupstore.Store
	gateway  *executor.Gateway
	settings config.BackupSettings
	logger   *slog.Logger
	now      func() time.Time
}

// NewBackupManager creates a backup manager over the given store.
func NewBackupManager(store *backupstore.Store, gateway *executor.Gateway, settings config.BackupSettings, logger *slog.Logger) *BackupManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupManager{
		store:    store,
		gateway:  gateway,
		settings: settings,
		logger:   logger.With("component", "backup"),
		now:      time.Now,
	}
}

// Create snapshots the environment's current deployment under the given
// name (timestamp-derived when empty). Disabled backups yield
// ErrBackupDisabled, not a record. The metadata descriptor is written last:
// until it exists the record is invalid and never listed.
func (m *BackupManager) Create(ctx context.Context, env string, envCfg domain.EnvironmentConfig, target executor.Target, name string) (*domain.BackupRecord, error) {
	if !m.settings.Enabled {
		return nil, domain.ErrBackupDisabled
	}

	now := m.now()
	if name == "" {
		name = "backup_" + now.Format("20060102_150405")
	}

	record := domain.BackupRecord{
		Name:          name,
		Timestamp:     now,
		Environment:   env,
		ComposeTarget: envCfg.ComposeTarget,
		EnvFile:       envCfg.EnvFile,
	}

	if data, err := os.ReadFile(envCfg.ComposeTarget); err == nil {
		if err := m.store.Put(name+suffixCompose, data); err != nil {
			return nil, &domain.BackupError{Op: "create", Name: name, Err: err}
		}
		record.Artifacts = append(record.Artifacts, name+suffixCompose)
	}

	if envCfg.EnvFile != "" {
		if data, err := os.ReadFile(envCfg.EnvFile); err == nil {
			if err := m.store.Put(name+suffixEnv, data); err != nil {
				return nil, &domain.BackupError{Op: "create", Name: name, Err: err}
			}
			record.Artifacts = append(record.Artifacts, name+suffixEnv)
		}
	}

	state := m.gateway.PsJSON(ctx, target)
	if !state.Succeeded {
		m.logger.Warn("state dump failed, snapshotting without it", "backup", name, "stderr", state.Stderr)
	}
	if err := m.store.Put(name+suffixState, []byte(state.Stdout)); err != nil {
		return nil, &domain.BackupError{Op: "create", Name: name, Err: err}
	}
	record.Artifacts = append(record.Artifacts, name+suffixState)

	meta, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, &domain.BackupError{Op: "create", Name: name, Err: err}
	}
	if err := m.store.Put(name+suffixMetadata, meta); err != nil {
		return nil, &domain.BackupError{Op: "create", Name: name, Err: err}
	}

	m.logger.Info("backup created", "backup", name, "environment", env, "artifacts", len(record.Artifacts))
	return &record, nil
}

// List enumerates valid backup records, newest first. Records with missing
// or corrupt metadata are skipped, not raised.
func (m *BackupManager) List() ([]domain.BackupRecord, error) {
	names, err := m.store.ListPrefix("")
	if err != nil {
		return nil, &domain.BackupError{Op: "list", Name: "", Err: err}
	}

	var records []domain.BackupRecord
	for _, blob := range names {
		if !strings.HasSuffix(blob, suffixMetadata) {
			continue
		}
		data, err := m.store.Get(blob)
		if err != nil {
			continue
		}
		var record domain.BackupRecord
		if err := json.Unmarshal(data, &record); err != nil {
			m.logger.Debug("skipping corrupt backup metadata", "blob", blob, "error", err)
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// Find returns the named record, or nil when absent.
func (m *BackupManager) Find(name string) *domain.BackupRecord {
	data, err := m.store.Get(name + suffixMetadata)
	if err != nil {
		return nil
	}
	var record domain.BackupRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil
	}
	return &record
}

// Restore copies the record's snapshots over the live targets and restarts
// services. Existing live files are renamed aside with ".old" first, so a
// failed copy-in still leaves a recovery path. Returns the success flag.
func (m *BackupManager) Restore(ctx context.Context, envCfg domain.EnvironmentConfig, target executor.Target, record domain.BackupRecord) bool {
	return m.restoreWithSuffix(ctx, envCfg, target, record, asideOld)
}

func (m *BackupManager) restoreWithSuffix(ctx context.Context, envCfg domain.EnvironmentConfig, target executor.Target, record domain.BackupRecord, aside string) bool {
	m.logger.Info("restoring backup", "backup", record.Name, "aside_suffix", aside)

	if err := m.restoreArtifact(record.Name+suffixCompose, envCfg.ComposeTarget, aside); err != nil {
		m.logger.Error("compose restore failed", "backup", record.Name, "error", err)
		return false
	}
	if envCfg.EnvFile != "" {
		if err := m.restoreArtifact(record.Name+suffixEnv, envCfg.EnvFile, aside); err != nil {
			m.logger.Error("env file restore failed", "backup", record.Name, "error", err)
			return false
		}
	}

	m.gateway.Stop(ctx, target, "")
	up := m.gateway.Up(ctx, target, "")
	if !up.Succeeded {
		m.logger.Error("restore start failed", "backup", record.Name, "stderr", up.Stderr)
		return false
	}

	m.logger.Info("restore completed", "backup", record.Name)
	return true
}

// restoreArtifact sequences rename-aside-then-copy for one live file. An
// absent snapshot is a no-op.
func (m *BackupManager) restoreArtifact(blob, livePath, aside string) error {
	data, err := m.store.Get(blob)
	if err != nil {
		if errors.Is(err, backupstore.ErrNotFound) {
			return nil
		}
		return err
	}

	if _, err := os.Stat(livePath); err == nil {
		if err := os.Rename(livePath, livePath+aside); err != nil {
			return fmt.Errorf("rename aside %s: %w", livePath, err)
		}
	}
	if err := os.WriteFile(livePath, data, 0644); err != nil {
		return fmt.Errorf("copy in %s: %w", livePath, err)
	}
	return nil
}

// Validate checks a record's integrity: the compose snapshot and metadata
// must exist and the metadata must parse. A referenced live compose path
// that no longer exists is only a warning, as is a snapshot that no longer
// parses as a compose definition.
func (m *BackupManager) Validate(name string) domain.BackupValidation {
	v := domain.BackupValidation{Valid: true}

	if !m.store.Exists(name + suffixCompose) {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf("missing required artifact: %s", name+suffixCompose))
	}

	meta, err := m.store.Get(name + suffixMetadata)
	if err != nil {
		v.Valid = false
		v.Errors = append(v.Errors, fmt.Sprintf("missing required artifact: %s", name+suffixMetadata))
		return v
	}

	var record domain.BackupRecord
	if err := json.Unmarshal(meta, &record); err != nil {
		v.Valid = false
		v.Errors = append(v.Errors, "invalid metadata JSON")
		return v
	}

	if record.ComposeTarget != "" {
		if _, err := os.Stat(record.ComposeTarget); err != nil {
			v.Warnings = append(v.Warnings, fmt.Sprintf("compose target referenced in metadata not found: %s", record.ComposeTarget))
		}
	}

	if snapshot, err := m.store.Get(name + suffixCompose); err == nil {
		if _, err := compose.Parse(string(snapshot)); err != nil {
			v.Warnings = append(v.Warnings, fmt.Sprintf("compose snapshot does not parse: %v", err))
		}
	}

	return v
}

// Sweep removes every record older than retentionDays, metadata included.
// A non-positive retention disables sweeping entirely. Returns the number of
// records removed.
func (m *BackupManager) Sweep(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		m.logger.Info("backup retention disabled, nothing swept")
		return 0, nil
	}

	records, err := m.List()
	if err != nil {
		return 0, err
	}

	cutoff := m.now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, record := range records {
		if !record.Timestamp.Before(cutoff) {
			continue
		}
		for _, suffix := range []string{suffixCompose, suffixEnv, suffixState, suffixMetadata} {
			if err := m.store.Delete(record.Name + suffix); err != nil {
				m.logger.Warn("sweep delete failed", "backup", record.Name, "error", err)
			}
		}
		removed++
		m.logger.Info("swept expired backup", "backup", record.Name, "age_days", int(m.now().Sub(record.Timestamp).Hours()/24))
	}

	return removed, nil
}
