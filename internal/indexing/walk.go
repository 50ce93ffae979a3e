package indexing

import (
	"os"
	"path/filepath"
)

// defaultMaxFileBytes is the size cap step 1 applies before parsing (spec
// §4.B: "Files larger than a configured byte cap (default 500 000 bytes)
// are skipped").
const defaultMaxFileBytes = 500_000

// walkResult is one accepted file, relative to root, ready for the
// hash/parse/extract step.
type walkResult struct {
	relPath string
	absPath string
	ext     string
}

// walkRepository walks root recursively, applying excludes and the registry's
// supported-extension set, and returns every file that step 2 should attempt
// to read. Excluded and unsupported files are dropped here without being
// counted; too-large files are returned and counted by the caller
// (Stats.FilesSkippedTooLarge) while reading each file.
func walkRepository(root string, excludes *excludeSet, supports func(ext string) bool) ([]walkResult, error) {
	var out []walkResult
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if excludes.isExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if excludes.isExcluded(rel) {
			return nil
		}
		ext := filepath.Ext(path)
		if !supports(ext) {
			return nil
		}
		out = append(out, walkResult{relPath: rel, absPath: path, ext: ext})
		return nil
	})
	return out, err
}
