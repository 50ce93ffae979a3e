package indexing

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// detectBuildArtifactGlobs reads manifest files at root and returns
// additional exclusion globs for the build output directories they declare,
// so the default exclusion list doesn't need to hardcode every ecosystem's
// convention. Adapted from internal/config/build_artifact_detector.go,
// generalized from a fixed output-directories report into exclusion globs
// the walker consumes the same way as its static defaults.
func detectBuildArtifactGlobs(root string) []string {
	var globs []string
	globs = append(globs, detectRustArtifactGlobs(root)...)
	globs = append(globs, detectJSArtifactGlobs(root)...)
	globs = append(globs, detectPythonArtifactGlobs(root)...)
	return globs
}

func detectRustArtifactGlobs(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return nil
	}
	var manifest struct {
		Profile struct {
			Release struct {
				TargetDir string `toml:"target-dir"`
			} `toml:"release"`
		} `toml:"profile"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	dir := manifest.Profile.Release.TargetDir
	if dir == "" {
		return nil
	}
	return []string{"**/" + dir + "/**"}
}

func detectJSArtifactGlobs(root string) []string {
	var globs []string

	if data, err := os.ReadFile(filepath.Join(root, "tsconfig.json")); err == nil {
		var tsconfig struct {
			CompilerOptions struct {
				OutDir string `json:"outDir"`
			} `json:"compilerOptions"`
		}
		if json.Unmarshal(data, &tsconfig) == nil && tsconfig.CompilerOptions.OutDir != "" {
			globs = append(globs, "**/"+cleanRelDir(tsconfig.CompilerOptions.OutDir)+"/**")
		}
	}

	for _, name := range []string{"vite.config.js", "vite.config.ts"} {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if dir := scanForOutDir(string(data)); dir != "" {
			globs = append(globs, "**/"+cleanRelDir(dir)+"/**")
		}
	}
	return globs
}

func detectPythonArtifactGlobs(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return nil
	}
	var manifest struct {
		Tool struct {
			Poetry struct {
				Build struct {
					TargetDir string `toml:"target-dir"`
				} `toml:"build"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil
	}
	dir := manifest.Tool.Poetry.Build.TargetDir
	if dir == "" {
		return nil
	}
	return []string{"**/" + cleanRelDir(dir) + "/**"}
}

func cleanRelDir(dir string) string {
	dir = filepath.ToSlash(filepath.Clean(dir))
	for len(dir) > 0 && dir[0] == '/' {
		dir = dir[1:]
	}
	return dir
}

// scanForOutDir does a light string scan for `outDir: "..."` in a vite
// config without executing JS, mirroring the teacher's same-named
// string-scanning fallback for files it can't fully parse.
func scanForOutDir(src string) string {
	const marker = "outDir"
	idx := strings.Index(src, marker)
	if idx < 0 {
		return ""
	}
	rest := src[idx+len(marker):]
	q1 := strings.IndexAny(rest, "\"'")
	if q1 < 0 {
		return ""
	}
	quote := rest[q1]
	rest = rest[q1+1:]
	q2 := strings.IndexByte(rest, quote)
	if q2 < 0 {
		return ""
	}
	return rest[:q2]
}
