// Package indexing implements the full-index / reference-resolution /
// incremental-update pipeline (spec §4.B): walk, filter, hash, parse,
// extract, write, resolve.
package indexing

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultExcludes are applied to every repository regardless of manifest
// detection, grounded on the teacher's constants.go project-marker lists.
var defaultExcludes = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/target/**",
	"**/dist/**",
	"**/build/**",
	"**/.focal/**",
	"**/__pycache__/**",
	"**/.venv/**",
}

// excludeSet decides whether a root-relative, slash-separated path should be
// skipped during a walk: glob patterns (defaults, manifest-derived build
// outputs, caller overrides) plus .gitignore rules.
type excludeSet struct {
	globs     []string
	gitignore *gitignoreMatcher
}

func newExcludeSet(root string, extra []string) *excludeSet {
	es := &excludeSet{}
	es.globs = append(es.globs, defaultExcludes...)
	es.globs = append(es.globs, extra...)
	es.globs = append(es.globs, detectBuildArtifactGlobs(root)...)
	es.gitignore = loadGitignore(root)
	return es
}

func (es *excludeSet) isExcluded(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range es.globs {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return es.gitignore.matches(relPath)
}

// gitignoreMatcher is a minimal, allocation-light .gitignore reader: one
// doublestar glob pattern per line, negation via a leading "!".
// Grounded on the teacher's internal/config/gitignore.go, trimmed to the
// subset the indexer's walk actually needs (no regex compilation cache —
// the walk itself is the only caller, once per repository root).
type gitignoreMatcher struct {
	patterns []gitignorePattern
}

type gitignorePattern struct {
	pattern string
	negate  bool
	dirOnly bool
}

func loadGitignore(root string) *gitignoreMatcher {
	m := &gitignoreMatcher{}
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return m
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p := gitignorePattern{}
		if strings.HasPrefix(line, "!") {
			p.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			p.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		p.pattern = strings.TrimPrefix(line, "/")
		m.patterns = append(m.patterns, p)
	}
	return m
}

func (m *gitignoreMatcher) matches(relPath string) bool {
	if m == nil {
		return false
	}
	ignored := false
	for _, p := range m.patterns {
		if gitignorePatternMatches(p.pattern, relPath) {
			ignored = !p.negate
		}
	}
	return ignored
}

// gitignorePatternMatches treats a bare pattern as matching any path
// component (the common case: "build", "*.log"), and a pattern containing a
// "/" as rooted at the repository root.
func gitignorePatternMatches(pattern, relPath string) bool {
	if strings.Contains(pattern, "/") {
		matched, _ := doublestar.Match(pattern, relPath)
		if matched {
			return true
		}
		return matched
	}
	for _, comp := range strings.Split(relPath, "/") {
		if matched, _ := doublestar.Match(pattern, comp); matched {
			return true
		}
	}
	return false
}
