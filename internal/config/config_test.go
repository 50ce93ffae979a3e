package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ExclusionsAccumulateAndDedup(t *testing.T) {
	base := Config{Exclude: []string{"**/node_modules/**", "**/vendor/**"}}
	override := Config{Exclude: []string{"**/vendor/**", "**/dist/**"}}

	merged := Merge(base, override)

	assert.ElementsMatch(t, []string{"**/node_modules/**", "**/vendor/**", "**/dist/**"}, merged.Exclude)
}

func TestMerge_ScalarsOnlyOverrideWhenSet(t *testing.T) {
	base := Default()
	override := Config{MaxFileBytes: 1_000_000}

	merged := Merge(base, override)

	assert.Equal(t, int64(1_000_000), merged.MaxFileBytes)
	assert.Equal(t, base.WatchDebounceMs, merged.WatchDebounceMs)
	assert.Equal(t, base.LogLevel, merged.LogLevel)
	assert.Equal(t, base.HTTPPort, merged.HTTPPort)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	cfg, found, err := Load(dir)

	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, cfg)
}

func TestLoad_ParsesKDL(t *testing.T) {
	dir := t.TempDir()
	content := `
exclude "**/fixtures/**" "**/generated/**"
max-file-bytes 250000
watch-debounce-ms 750
log-level "debug"
http-port 4100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".focal.kdl"), []byte(content), 0o644))

	cfg, found, err := Load(dir)

	require.NoError(t, err)
	require.True(t, found)
	assert.ElementsMatch(t, []string{"**/fixtures/**", "**/generated/**"}, cfg.Exclude)
	assert.Equal(t, int64(250000), cfg.MaxFileBytes)
	assert.Equal(t, 750, cfg.WatchDebounceMs)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4100, cfg.HTTPPort)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults ok", Default(), false},
		{"zero max file bytes", Config{MaxFileBytes: 0}, true},
		{"negative debounce", Config{MaxFileBytes: 1, WatchDebounceMs: -1}, true},
		{"bad log level", Config{MaxFileBytes: 1, LogLevel: "verbose"}, true},
		{"port out of range", Config{MaxFileBytes: 1, HTTPPort: 99999}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
