package config

import (
	"fmt"

	"github.com/artpar/stackman/internal/core/domain"
)

// =============================================================================
// Structural Validation
// =============================================================================

// Validate performs structural checks on a settings tree and returns the
// collected errors and warnings. It never panics and never throws: a
// malformed tree produces messages, not failures.
func Validate(tree map[string]any) (errs, warnings []string) {
	if envs, ok := tree["environments"]; !ok {
		warnings = append(warnings, "no environments defined in config")
	} else if envMap, isMap := envs.(map[string]any); !isMap {
		errs = append(errs, "environments must be a mapping")
	} else {
		for name, raw := range envMap {
			errs = append(errs, validateEnvironment(name, raw)...)
		}
	}

	if dep, ok := tree["deployment"]; ok {
		depMap, isMap := dep.(map[string]any)
		if !isMap {
			errs = append(errs, "deployment must be a mapping")
		} else if raw, ok := depMap["strategy"]; ok {
			s, _ := raw.(string)
			if !domain.Strategy(s).Known() {
				warnings = append(warnings, fmt.Sprintf("unknown deployment strategy %q", raw))
			}
		}
	}

	if mon, ok := tree["monitoring"]; ok {
		monMap, isMap := mon.(map[string]any)
		if !isMap {
			errs = append(errs, "monitoring must be a mapping")
		} else {
			if raw, ok := monMap["enabled"]; ok {
				if _, isBool := raw.(bool); !isBool {
					errs = append(errs, "monitoring.enabled must be a boolean")
				}
			}
			if raw, ok := monMap["interval"]; ok {
				if n, isInt := asInt(raw); !isInt || n <= 0 {
					errs = append(errs, "monitoring.interval must be a positive integer")
				}
			}
		}
	}

	return errs, warnings
}

func validateEnvironment(name string, raw any) []string {
	envCfg, ok := raw.(map[string]any)
	if !ok {
		return []string{fmt.Sprintf("environment %q must be a mapping", name)}
	}

	var errs []string
	if target, ok := envCfg["compose_target"]; ok {
		if _, isStr := target.(string); !isStr {
			errs = append(errs, fmt.Sprintf("environment %q compose_target must be a string", name))
		}
	}

	if raw, ok := envCfg["build_options"]; ok {
		opts, isList := raw.([]any)
		if !isList {
			errs = append(errs, fmt.Sprintf("environment %q build_options must be a list", name))
		} else {
			for _, opt := range opts {
				if _, isStr := opt.(string); !isStr {
					errs = append(errs, fmt.Sprintf("environment %q build_options must contain strings", name))
					break
				}
			}
		}
	}

	return errs
}

// asInt accepts the integer shapes YAML decoders produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}
