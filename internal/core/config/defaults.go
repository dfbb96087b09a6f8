// Package config implements settings loading, merging, validation and
// per-environment resolution for Stackman.
//
// Settings travel as a raw tree (map[string]any) so that merging and
// validation can reason about what the user actually wrote; typed accessors
// on Resolver decode the sections the engine consumes.
package config

// =============================================================================
// Default Settings Tree
// =============================================================================

// Defaults returns the hard-coded default settings tree. Every top-level
// section has a default value; a partially specified user tree inherits the
// missing pieces through Merge.
func Defaults() map[string]any {
	return map[string]any{
		"project": map[string]any{
			"name":    "stackman",
			"version": "1.0.0",
		},
		"environments": map[string]any{
			"dev": map[string]any{
				"compose_target": "docker-compose.yml",
			},
		},
		"monitoring": map[string]any{
			"enabled":  false,
			"interval": 60,
		},
		"deployment": map[string]any{
			"strategy":            "recreate",
			"rollback_on_failure": true,
			"max_surge":           1,
			"max_unavailable":     0,
		},
		"backup": map[string]any{
			"enabled":        false,
			"destination":    "./backups",
			"retention_days": 30,
		},
		"logging": map[string]any{
			"level":  "info",
			"format": "text",
		},
	}
}
