package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stackman/internal/core/config"
	"github.com/artpar/stackman/internal/core/domain"
	"github.com/artpar/stackman/internal/shell/backupstore"
	"github.com/artpar/stackman/internal/shell/executor"
)

type backupFixture struct {
	mgr     *BackupManager
	store   *backupstore.Store
	runner  *scriptedRunner
	compose string
	envFile string
}

func newBackupFixture(t *testing.T, enabled bool) *backupFixture {
	t.Helper()
	dir := t.TempDir()

	composePath := filepath.Join(dir, "docker-compose.yml")
	require.NoError(t, os.WriteFile(composePath, []byte(testComposeContent), 0644))
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("DB_HOST=localhost\n"), 0644))

	runner := &scriptedRunner{}
	store := backupstore.New(filepath.Join(dir, "backups"))
	mgr := NewBackupManager(store, executor.NewGateway(runner, nil), config.BackupSettings{
		Enabled:       enabled,
		Destination:   store.Dir(),
		RetentionDays: 30,
	}, nil)

	return &backupFixture{mgr: mgr, store: store, runner: runner, compose: composePath, envFile: envPath}
}

func (f *backupFixture) envCfg() domain.EnvironmentConfig {
	return domain.EnvironmentConfig{ComposeTarget: f.compose, EnvFile: f.envFile}
}

func (f *backupFixture) target() executor.Target {
	return executor.Target{ComposeTarget: f.compose}
}

func TestBackupCreate_Disabled(t *testing.T) {
	f := newBackupFixture(t, false)

	record, err := f.mgr.Create(context.Background(), "prod", f.envCfg(), f.target(), "")

	assert.Nil(t, record)
	assert.ErrorIs(t, err, domain.ErrBackupDisabled)
}

func TestBackupCreate_SnapshotsAllArtifacts(t *testing.T) {
	f := newBackupFixture(t, true)

	record, err := f.mgr.Create(context.Background(), "prod", f.envCfg(), f.target(), "nightly")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "nightly", record.Name)
	assert.Equal(t, "prod", record.Environment)
	assert.ElementsMatch(t, []string{"nightly_compose.yml", "nightly_env", "nightly_state.json"}, record.Artifacts)

	snapshot, err := f.store.Get("nightly" + suffixCompose)
	require.NoError(t, err)
	assert.Equal(t, testComposeContent, string(snapshot))

	envSnapshot, err := f.store.Get("nightly" + suffixEnv)
	require.NoError(t, err)
	assert.Equal(t, "DB_HOST=localhost\n", string(envSnapshot))

	assert.True(t, f.store.Exists("nightly"+suffixState))
	assert.True(t, f.store.Exists("nightly"+suffixMetadata))
}

func TestBackupCreate_DefaultNameFromTimestamp(t *testing.T) {
	f := newBackupFixture(t, true)
	f.mgr.now = func() time.Time { return time.Date(2026, 8, 27, 14, 30, 0, 0, time.UTC) }

	record, err := f.mgr.Create(context.Background(), "prod", f.envCfg(), f.target(), "")
	require.NoError(t, err)

	assert.Equal(t, "backup_20260827_143000", record.Name)
}

func TestBackupCreate_StateDumpFailureStillSnapshots(t *testing.T) {
	f := newBackupFixture(t, true)
	f.runner.fail("status", "daemon unreachable")

	record, err := f.mgr.Create(context.Background(), "prod", f.envCfg(), f.target(), "partial")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, f.store.Exists("partial"+suffixMetadata))
}

func TestBackupList_NewestFirstSkipsCorrupt(t *testing.T) {
	f := newBackupFixture(t, true)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	f.mgr.now = func() time.Time { return base }
	_, err := f.mgr.Create(ctx, "prod", f.envCfg(), f.target(), "first")
	require.NoError(t, err)

	f.mgr.now = func() time.Time { return base.Add(24 * time.Hour) }
	_, err = f.mgr.Create(ctx, "prod", f.envCfg(), f.target(), "second")
	require.NoError(t, err)

	require.NoError(t, f.store.Put("broken"+suffixMetadata, []byte("{not json")))

	records, err := f.mgr.List()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Name)
	assert.Equal(t, "first", records[1].Name)
}

func TestBackupFind(t *testing.T) {
	f := newBackupFixture(t, true)

	_, err := f.mgr.Create(context.Background(), "prod", f.envCfg(), f.target(), "tagged")
	require.NoError(t, err)

	assert.NotNil(t, f.mgr.Find("tagged"))
	assert.Nil(t, f.mgr.Find("absent"))
}

func TestBackupRestore_RenamesAsideThenCopiesIn(t *testing.T) {
	f := newBackupFixture(t, true)
	ctx := context.Background()

	record, err := f.mgr.Create(ctx, "prod", f.envCfg(), f.target(), "snap")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(f.compose, []byte("services: {}\n"), 0644))
	f.runner.ops = nil

	ok := f.mgr.Restore(ctx, f.envCfg(), f.target(), *record)
	assert.True(t, ok)

	restored, err := os.ReadFile(f.compose)
	require.NoError(t, err)
	assert.Equal(t, testComposeContent, string(restored))

	aside, err := os.ReadFile(f.compose + asideOld)
	require.NoError(t, err)
	assert.Equal(t, "services: {}\n", string(aside))

	assert.Equal(t, []string{"stop", "up"}, f.runner.ops)
}

func TestBackupRestore_StartFailure(t *testing.T) {
	f := newBackupFixture(t, true)
	ctx := context.Background()

	record, err := f.mgr.Create(ctx, "prod", f.envCfg(), f.target(), "snap")
	require.NoError(t, err)

	f.runner.fail("up", "port already allocated")
	assert.False(t, f.mgr.Restore(ctx, f.envCfg(), f.target(), *record))
}

func TestBackupValidate(t *testing.T) {
	f := newBackupFixture(t, true)
	ctx := context.Background()

	_, err := f.mgr.Create(ctx, "prod", f.envCfg(), f.target(), "good")
	require.NoError(t, err)

	t.Run("intact record", func(t *testing.T) {
		v := f.mgr.Validate("good")
		assert.True(t, v.Valid)
		assert.Empty(t, v.Errors)
		assert.Empty(t, v.Warnings)
	})

	t.Run("missing compose snapshot", func(t *testing.T) {
		require.NoError(t, f.store.Delete("good"+suffixCompose))
		v := f.mgr.Validate("good")
		assert.False(t, v.Valid)
		require.Len(t, v.Errors, 1)
		assert.Contains(t, v.Errors[0], suffixCompose)
	})

	t.Run("missing metadata", func(t *testing.T) {
		v := f.mgr.Validate("never-created")
		assert.False(t, v.Valid)
	})

	t.Run("corrupt metadata", func(t *testing.T) {
		require.NoError(t, f.store.Put("mangled"+suffixCompose, []byte(testComposeContent)))
		require.NoError(t, f.store.Put("mangled"+suffixMetadata, []byte("[")))
		v := f.mgr.Validate("mangled")
		assert.False(t, v.Valid)
		assert.Contains(t, v.Errors[0], "metadata")
	})

	t.Run("vanished live target is a warning", func(t *testing.T) {
		record := domain.BackupRecord{Name: "stale", ComposeTarget: filepath.Join(t.TempDir(), "gone.yml")}
		meta, err := json.Marshal(record)
		require.NoError(t, err)
		require.NoError(t, f.store.Put("stale"+suffixCompose, []byte(testComposeContent)))
		require.NoError(t, f.store.Put("stale"+suffixMetadata, meta))

		v := f.mgr.Validate("stale")
		assert.True(t, v.Valid)
		require.NotEmpty(t, v.Warnings)
		assert.Contains(t, v.Warnings[0], "not found")
	})
}

func TestBackupSweep(t *testing.T) {
	f := newBackupFixture(t, true)
	ctx := context.Background()

	now := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)
	for _, backup := range []struct {
		name string
		age  int
	}{
		{"recent", 10},
		{"aging", 40},
		{"ancient", 100},
	} {
		f.mgr.now = func() time.Time { return now.AddDate(0, 0, -backup.age) }
		_, err := f.mgr.Create(ctx, "prod", f.envCfg(), f.target(), backup.name)
		require.NoError(t, err)
	}
	f.mgr.now = func() time.Time { return now }

	removed, err := f.mgr.Sweep(30)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	records, err := f.mgr.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "recent", records[0].Name)
	assert.False(t, f.store.Exists("ancient"+suffixState))
}

func TestBackupSweep_DisabledRetention(t *testing.T) {
	f := newBackupFixture(t, true)

	_, err := f.mgr.Create(context.Background(), "prod", f.envCfg(), f.target(), "keep")
	require.NoError(t, err)

	for _, retention := range []int{0, -5} {
		removed, err := f.mgr.Sweep(retention)
		require.NoError(t, err)
		assert.Zero(t, removed)
	}
	assert.NotNil(t, f.mgr.Find("keep"))
}
