package config

// =============================================================================
// Merge
// =============================================================================

// Merge overlays loaded settings onto defaults, one level deep. For each
// default section: absent in loaded means the section is copied wholesale;
// present and mapping-typed on both sides means default sub-keys fill the
// gaps. A loaded leaf value is never overwritten. Keys unknown to the
// defaults pass through untouched.
//
// Merge never mutates its inputs, and it is idempotent:
// Merge(Merge(cfg, d), d) == Merge(cfg, d).
func Merge(loaded, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(loaded))
	for k, v := range loaded {
		out[k] = v
	}

	for key, defVal := range defaults {
		cur, ok := out[key]
		if !ok {
			out[key] = copyValue(defVal)
			continue
		}

		defMap, defIsMap := defVal.(map[string]any)
		curMap, curIsMap := cur.(map[string]any)
		if !defIsMap || !curIsMap {
			continue // loaded leaf wins
		}

		merged := make(map[string]any, len(defMap)+len(curMap))
		for k, v := range curMap {
			merged[k] = v
		}
		for k, v := range defMap {
			if _, exists := merged[k]; !exists {
				merged[k] = copyValue(v)
			}
		}
		out[key] = merged
	}

	return out
}

// copyValue copies maps so later mutation of a merged tree cannot reach back
// into the shared defaults. Scalars and slices are returned as-is.
func copyValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for k, sub := range m {
		out[k] = copyValue(sub)
	}
	return out
}
