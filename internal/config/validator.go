package config

import (
	"github.com/focal-dev/focal/internal/errs"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate rejects out-of-range values before a config reaches the indexer
// or watcher, grounded on the teacher's SearchRanking.Validate bounds-check
// idiom, applied to Focal's own fields.
func (c Config) Validate() error {
	if c.MaxFileBytes <= 0 {
		return errs.BadRequestf("max-file-bytes must be positive, got %d", c.MaxFileBytes)
	}
	if c.WatchDebounceMs < 0 {
		return errs.BadRequestf("watch-debounce-ms must be non-negative, got %d", c.WatchDebounceMs)
	}
	if c.LogLevel != "" && !validLogLevels[c.LogLevel] {
		return errs.BadRequestf("log-level must be one of debug/info/warn/error, got %q", c.LogLevel)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return errs.BadRequestf("http-port must be in [0, 65535], got %d", c.HTTPPort)
	}
	return nil
}
