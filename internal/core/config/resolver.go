package config

import (
	"bufio"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artpar/stackman/internal/core/domain"
)

// EnvPrefix marks process environment variables that are forwarded to the
// executor alongside env-file values.
const EnvPrefix = "STACKMAN_"

// envAllowList is the set of non-prefixed process variables that are always
// forwarded when set.
var envAllowList = []string{"DOCKER_HOST", "COMPOSE_PROJECT_NAME"}

// =============================================================================
// Resolver
// =============================================================================

// Resolver answers typed questions about a merged settings tree. The tree is
// read-only after construction; Resolver holds no other state.
type Resolver struct {
	tree map[string]any
}

// NewResolver wraps a merged settings tree.
func NewResolver(tree map[string]any) *Resolver {
	if tree == nil {
		tree = Defaults()
	}
	return &Resolver{tree: tree}
}

// Tree returns the underlying settings tree.
func (r *Resolver) Tree() map[string]any {
	return r.tree
}

// Validate runs the structural checks against the wrapped tree.
func (r *Resolver) Validate() (errs, warnings []string) {
	return Validate(r.tree)
}

// Render returns the effective settings tree as YAML, for the config command.
func (r *Resolver) Render() (string, error) {
	out, err := yaml.Marshal(r.tree)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// =============================================================================
// Section Accessors
// =============================================================================

// ProjectSettings is the project section.
type ProjectSettings struct {
	Name    string
	Version string
}

// MonitoringSettings is the monitoring section.
type MonitoringSettings struct {
	Enabled  bool
	Interval int // seconds between polls
}

// BackupSettings is the backup section.
type BackupSettings struct {
	Enabled       bool
	Destination   string
	RetentionDays int
}

// LogSettings is the logging section.
type LogSettings struct {
	Level  string
	Format string
}

func (r *Resolver) Project() ProjectSettings {
	sec := r.section("project")
	return ProjectSettings{
		Name:    getString(sec, "name", "stackman"),
		Version: getString(sec, "version", ""),
	}
}

func (r *Resolver) Monitoring() MonitoringSettings {
	sec := r.section("monitoring")
	return MonitoringSettings{
		Enabled:  getBool(sec, "enabled", false),
		Interval: getInt(sec, "interval", 60),
	}
}

// Deployment reads the deployment policy. Read once per deploy invocation.
func (r *Resolver) Deployment() domain.DeploymentPolicy {
	sec := r.section("deployment")
	return domain.DeploymentPolicy{
		Strategy:          domain.Strategy(getString(sec, "strategy", string(domain.StrategyRecreate))),
		RollbackOnFailure: getBool(sec, "rollback_on_failure", true),
		PreDeployHooks:    getStringList(sec, "pre_deploy_hooks"),
		PostDeployHooks:   getStringList(sec, "post_deploy_hooks"),
	}
}

func (r *Resolver) Backup() BackupSettings {
	sec := r.section("backup")
	return BackupSettings{
		Enabled:       getBool(sec, "enabled", false),
		Destination:   getString(sec, "destination", "./backups"),
		RetentionDays: getInt(sec, "retention_days", 30),
	}
}

func (r *Resolver) Logging() LogSettings {
	sec := r.section("logging")
	return LogSettings{
		Level:  getString(sec, "level", "info"),
		Format: getString(sec, "format", "text"),
	}
}

// =============================================================================
// Environment Resolution
// =============================================================================

// Environment returns the named environment's config. An undeclared name
// yields the synthetic default environment; this is a deliberate fallback,
// not a failure. Callers that must reject unknown names (environment
// switching) check HasEnvironment first.
func (r *Resolver) Environment(name string) domain.EnvironmentConfig {
	envs := r.section("environments")
	raw, ok := envs[name]
	if !ok {
		return domain.EnvironmentConfig{ComposeTarget: domain.DefaultComposeTarget}
	}
	envCfg, ok := raw.(map[string]any)
	if !ok {
		return domain.EnvironmentConfig{ComposeTarget: domain.DefaultComposeTarget}
	}
	return domain.EnvironmentConfig{
		ComposeTarget: getString(envCfg, "compose_target", domain.DefaultComposeTarget),
		EnvFile:       getString(envCfg, "env_file", ""),
		BuildOptions:  getStringList(envCfg, "build_options"),
	}
}

// HasEnvironment reports whether the environment is declared.
func (r *Resolver) HasEnvironment(name string) bool {
	_, ok := r.section("environments")[name]
	return ok
}

// EnvironmentNames lists the declared environment names.
func (r *Resolver) EnvironmentNames() []string {
	envs := r.section("environments")
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	return names
}

// =============================================================================
// Environment Variables
// =============================================================================

// EnvVars resolves the variable mapping handed to the executor for an
// environment: the env_file contents (KEY=VALUE lines, blanks and comments
// skipped) overlaid with prefixed or allow-listed process variables.
// Process-level values take precedence over file values.
func (r *Resolver) EnvVars(name string) map[string]string {
	vars := make(map[string]string)

	envCfg := r.Environment(name)
	if envCfg.EnvFile != "" {
		readEnvFile(envCfg.EnvFile, vars)
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(key, EnvPrefix) || allowListed(key) {
			vars[key] = value
		}
	}

	return vars
}

func allowListed(key string) bool {
	for _, allowed := range envAllowList {
		if key == allowed {
			return true
		}
	}
	return false
}

// readEnvFile parses KEY=VALUE lines into vars. An unreadable file is
// skipped; env-file resolution is best-effort.
func readEnvFile(path string, vars map[string]string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[key] = value
	}
}

// =============================================================================
// Tree Helpers
// =============================================================================

func (r *Resolver) section(key string) map[string]any {
	if sec, ok := r.tree[key].(map[string]any); ok {
		return sec
	}
	return nil
}

func getString(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

func getBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func getInt(m map[string]any, key string, def int) int {
	if v, ok := m[key]; ok {
		if n, isInt := asInt(v); isInt {
			return n
		}
	}
	return def
}

func getStringList(m map[string]any, key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
