// Package config loads Focal's optional .focal.kdl configuration file (spec
// §6 expansion) and merges it with CLI flag overrides. Grounded on the
// teacher's internal/config package: its presence-checked merge strategy
// (project settings override a base config, but exclusions accumulate) is
// kept, applied to Focal's much smaller config surface — exclusion globs,
// the indexer's byte cap, the watcher's debounce window, and the log level —
// rather than the teacher's full indexing/search/semantic-scoring surface,
// which Focal's spec does not have.
package config

// Config is Focal's merged runtime configuration. The zero value is not
// meaningful on its own; use Default() for built-in defaults, then Merge
// file and CLI layers on top.
type Config struct {
	Exclude         []string
	MaxFileBytes    int64
	WatchDebounceMs int
	LogLevel        string
	HTTPPort        int
}

// Default returns the built-in defaults spec §4.B/§4.D/§6 name explicitly:
// a 500,000-byte size cap, a 500ms watch debounce, info-level logging, and
// port 3100 for --http mode.
func Default() Config {
	return Config{
		MaxFileBytes:    500_000,
		WatchDebounceMs: 500,
		LogLevel:        "info",
		HTTPPort:        3100,
	}
}

// Merge layers override on top of base: scalar fields replace base's value
// only when override sets a non-zero value (presence-checked, the teacher's
// mergeConfigs idiom); Exclude patterns accumulate and deduplicate instead of
// replacing, so a project's .focal.kdl can only add exclusions, never
// silently drop the built-in defaults.
func Merge(base, override Config) Config {
	merged := base

	if override.MaxFileBytes > 0 {
		merged.MaxFileBytes = override.MaxFileBytes
	}
	if override.WatchDebounceMs > 0 {
		merged.WatchDebounceMs = override.WatchDebounceMs
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	if override.HTTPPort > 0 {
		merged.HTTPPort = override.HTTPPort
	}
	merged.Exclude = dedupe(append(append([]string{}, base.Exclude...), override.Exclude...))
	return merged
}

func dedupe(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
