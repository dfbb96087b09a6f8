package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/stackman/internal/core/domain"
)

func TestResolver_MissingMonitoringSectionYieldsDefaults(t *testing.T) {
	r := NewResolver(Merge(map[string]any{}, Defaults()))

	mon := r.Monitoring()
	assert.False(t, mon.Enabled)
	assert.Equal(t, 60, mon.Interval)
}

func TestResolver_Environment_Declared(t *testing.T) {
	r := NewResolver(Merge(map[string]any{
		"environments": map[string]any{
			"prod": map[string]any{
				"compose_target": "docker-compose.prod.yml",
				"env_file":       ".env.prod",
				"build_options":  []any{"--no-cache", "--pull"},
			},
		},
	}, Defaults()))

	env := r.Environment("prod")
	assert.Equal(t, "docker-compose.prod.yml", env.ComposeTarget)
	assert.Equal(t, ".env.prod", env.EnvFile)
	assert.Equal(t, []string{"--no-cache", "--pull"}, env.BuildOptions)
}

func TestResolver_Environment_UndeclaredFallsBackToDefault(t *testing.T) {
	r := NewResolver(Defaults())

	env := r.Environment("does-not-exist")
	assert.Equal(t, domain.EnvironmentConfig{ComposeTarget: "docker-compose.yml"}, env)
	assert.False(t, r.HasEnvironment("does-not-exist"))
}

func TestResolver_DeploymentPolicy(t *testing.T) {
	r := NewResolver(Merge(map[string]any{
		"deployment": map[string]any{
			"strategy":            "rolling",
			"rollback_on_failure": false,
			"pre_deploy_hooks":    []any{"echo pre"},
			"post_deploy_hooks":   []any{"echo post1", "echo post2"},
		},
	}, Defaults()))

	policy := r.Deployment()
	assert.Equal(t, domain.StrategyRolling, policy.Strategy)
	assert.False(t, policy.RollbackOnFailure)
	assert.Equal(t, []string{"echo pre"}, policy.PreDeployHooks)
	assert.Len(t, policy.PostDeployHooks, 2)
}

func TestResolver_EnvVars_FileThenProcessOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	content := "# comment line\n\nDB_HOST=localhost\nDB_PORT=5432\nSTACKMAN_MODE=from-file\nmalformed line\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	r := NewResolver(Merge(map[string]any{
		"environments": map[string]any{
			"dev": map[string]any{"env_file": envFile},
		},
	}, Defaults()))

	t.Setenv("STACKMAN_MODE", "from-process")
	t.Setenv("DOCKER_HOST", "tcp://10.0.0.1:2375")

	vars := r.EnvVars("dev")
	assert.Equal(t, "localhost", vars["DB_HOST"])
	assert.Equal(t, "5432", vars["DB_PORT"])
	assert.Equal(t, "from-process", vars["STACKMAN_MODE"], "process value takes precedence")
	assert.Equal(t, "tcp://10.0.0.1:2375", vars["DOCKER_HOST"], "allow-listed variable forwarded")
	assert.NotContains(t, vars, "malformed line")
}

func TestResolver_EnvVars_MissingFileIsBestEffort(t *testing.T) {
	r := NewResolver(Merge(map[string]any{
		"environments": map[string]any{
			"dev": map[string]any{"env_file": "/nonexistent/.env"},
		},
	}, Defaults()))

	vars := r.EnvVars("dev")
	assert.NotNil(t, vars)
}

func TestResolver_Render(t *testing.T) {
	r := NewResolver(Defaults())
	out, err := r.Render()
	require.NoError(t, err)
	assert.Contains(t, out, "monitoring:")
	assert.Contains(t, out, "interval: 60")
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), r.Tree())
}

func TestLoad_MalformedFileIsConfigError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("environments:\n  dev: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_FileMergedWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stackman.yml")
	content := "monitoring:\n  enabled: true\nenvironments:\n  staging:\n    compose_target: docker-compose.staging.yml\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	r, err := Load(path)
	require.NoError(t, err)

	mon := r.Monitoring()
	assert.True(t, mon.Enabled)
	assert.Equal(t, 60, mon.Interval, "interval inherited from defaults")

	assert.True(t, r.HasEnvironment("staging"))
	assert.Equal(t, "docker-compose.staging.yml", r.Environment("staging").ComposeTarget)
	assert.Equal(t, "recreate", string(r.Deployment().Strategy))
}
