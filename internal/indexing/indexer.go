// Package indexing implements the indexer component: full index, the
// cross-file reference-resolution pass, and incremental updates driven by
// the watcher's debounced path batches (spec §4.B).
package indexing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/focal-dev/focal/internal/errs"
	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/logging"
	"github.com/focal-dev/focal/internal/store"
	"github.com/focal-dev/focal/internal/watch"
)

// Config tunes the walk/filter step; zero value uses the spec defaults.
type Config struct {
	ExcludePatterns []string
	MaxFileBytes    int64
	Workers         int
}

func (c Config) maxFileBytes() int64 {
	if c.MaxFileBytes > 0 {
		return c.MaxFileBytes
	}
	return defaultMaxFileBytes
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return 4
}

// Stats reports what a full-index or incremental-update run did (spec
// §4.B "Reported statistics").
type Stats struct {
	FilesScanned            int
	FilesParsed             int
	FilesSkippedUnchanged   int
	FilesSkippedTooLarge    int
	FilesSkippedUnsupported int
	SymbolsInserted         int
	EdgesInserted           int
	ParseErrors             int
	Errors                  []error
}

func (s *Stats) merge(o Stats) {
	s.FilesScanned += o.FilesScanned
	s.FilesParsed += o.FilesParsed
	s.FilesSkippedUnchanged += o.FilesSkippedUnchanged
	s.FilesSkippedTooLarge += o.FilesSkippedTooLarge
	s.FilesSkippedUnsupported += o.FilesSkippedUnsupported
	s.SymbolsInserted += o.SymbolsInserted
	s.EdgesInserted += o.EdgesInserted
	s.ParseErrors += o.ParseErrors
	s.Errors = append(s.Errors, o.Errors...)
}

// Indexer ties the grammar registry and the store together and drives the
// walk/parse/write/resolve pipeline described in spec §4.B.
type Indexer struct {
	store    *store.Store
	registry *grammar.Registry
	cfg      Config
}

func New(s *store.Store, registry *grammar.Registry, cfg Config) *Indexer {
	return &Indexer{store: s, registry: registry, cfg: cfg}
}

// parsedFile is one file's step-2/3 outcome, carried from the parallel parse
// stage into the single-threaded store-writing stage.
type parsedFile struct {
	relPath     string
	language    string
	contentHash string
	symbols     []grammar.Symbol
	references  []grammar.Reference
	unchanged   bool
	tooLarge    bool
	parseErr    error
}

// FullIndex walks root, indexes every accepted file, then resolves
// cross-file references. name seeds the repository row on first index.
func (idx *Indexer) FullIndex(name, root string) (Stats, error) {
	repoID, err := idx.store.UpsertRepository(name, root)
	if err != nil {
		return Stats{}, fmt.Errorf("upsert repository: %w", err)
	}

	excludes := newExcludeSet(root, idx.cfg.ExcludePatterns)
	walked, err := walkRepository(root, excludes, idx.registry.Supports)
	if err != nil {
		return Stats{}, fmt.Errorf("walk %s: %w", root, err)
	}

	var stats Stats
	stats.FilesScanned = len(walked)

	parsed := idx.parseAll(repoID, walked)

	fileSymbolsByName := make(map[string]map[string]int64, len(parsed))
	for _, pf := range parsed {
		switch {
		case pf.parseErr != nil:
			stats.ParseErrors++
			stats.Errors = append(stats.Errors, errs.ParseError(pf.relPath, pf.parseErr))
			continue
		case pf.unchanged:
			stats.FilesSkippedUnchanged++
			continue
		case pf.tooLarge:
			stats.FilesSkippedTooLarge++
			continue
		}

		result, err := idx.store.ReindexFile(repoID, pf.relPath, pf.language, pf.contentHash, pf.symbols)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("reindex %s: %w", pf.relPath, err))
			continue
		}
		stats.FilesParsed++
		stats.SymbolsInserted += len(pf.symbols)
		fileSymbolsByName[pf.relPath] = bestIDByName(result.SymbolsByName)
	}

	allSymbols, err := idx.store.ListSymbolsByRepo(repoID)
	if err != nil {
		return stats, fmt.Errorf("list symbols by repo: %w", err)
	}
	repoMap := buildNameMap(allSymbols)

	edges, err := idx.resolveReferences(repoID, parsed, fileSymbolsByName, repoMap)
	stats.EdgesInserted += edges
	if err != nil {
		stats.Errors = append(stats.Errors, err)
	}

	if err := idx.store.TouchRepository(repoID); err != nil {
		return stats, fmt.Errorf("touch repository: %w", err)
	}
	return stats, nil
}

// parseAll reads, hashes, and parses every walked file concurrently
// (golang.org/x/sync/errgroup bounds the worker count); store writes happen
// afterward on the calling goroutine since ReindexFile already serializes
// through the store's own lock.
func (idx *Indexer) parseAll(repoID int64, walked []walkResult) []parsedFile {
	out := make([]parsedFile, len(walked))
	sem := make(chan struct{}, idx.cfg.workers())
	var group errgroup.Group
	var mu sync.Mutex

	for i, wf := range walked {
		i, wf := i, wf
		group.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			pf, err := idx.parseOne(repoID, wf)
			if err != nil {
				pf.parseErr = err
			}
			mu.Lock()
			out[i] = pf
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

func (idx *Indexer) parseOne(repoID int64, wf walkResult) (parsedFile, error) {
	pf := parsedFile{relPath: wf.relPath}

	info, err := os.Stat(wf.absPath)
	if err != nil {
		return pf, err
	}
	if info.Size() > idx.cfg.maxFileBytes() {
		pf.tooLarge = true
		return pf, nil
	}

	data, err := os.ReadFile(wf.absPath)
	if err != nil {
		return pf, err
	}
	contentHash := store.ContentHash(data)
	pf.contentHash = contentHash

	existing, err := idx.store.GetFile(repoID, wf.relPath)
	if err != nil {
		return pf, err
	}
	if existing != nil && existing.ContentHash == contentHash {
		pf.unchanged = true
		return pf, nil
	}

	tree, g, err := idx.registry.Parse(wf.ext, data)
	if err != nil {
		return pf, err
	}
	defer tree.Close()

	pf.language = g.Language()
	symbols, err := g.ExtractSymbols(data, tree)
	if err != nil {
		return pf, err
	}
	refs, err := g.ExtractReferences(data, tree)
	if err != nil {
		return pf, err
	}
	pf.symbols = symbols
	pf.references = refs
	return pf, nil
}

// resolveReferences is the second pass (spec §4.B): for every extracted
// reference, resolve FromSymbol against the file's own declarations first
// (a reference's enclosing symbol is declared in the file it was extracted
// from) and ToName against the whole-repository name map, then insert the
// edge.
func (idx *Indexer) resolveReferences(repoID int64, parsed []parsedFile, fileSymbolsByName map[string]map[string]int64, repoMap *nameMap) (int, error) {
	inserted := 0
	for _, pf := range parsed {
		if pf.parseErr != nil || pf.unchanged || pf.tooLarge {
			continue
		}
		localMap := fileSymbolsByName[pf.relPath]
		for _, ref := range pf.references {
			fromID, ok := localMap[ref.FromSymbol]
			if !ok {
				fromID, ok = repoMap.byName[ref.FromSymbol]
				if !ok {
					continue
				}
			}
			toID, ok := repoMap.resolve(ref.ToName)
			if !ok {
				continue
			}
			if err := idx.store.InsertEdge(fromID, toID, ref.Kind); err != nil {
				logging.Warnf("indexing: insert edge %s -> %s: %v", ref.FromSymbol, ref.ToName, err)
				continue
			}
			inserted++
		}
	}
	return inserted, nil
}

// bestIDByName collapses a file's name -> []id map (declaration order) down
// to one id per name, for local FromSymbol resolution. Unlike the store's
// memory re-linking, no kind-priority tie-break applies: the ids within a
// single name slot were inserted in document order with no kind
// information attached here, so the first id (first declaration) wins on
// ties — duplicate in-file names are overloads in practice, and the first
// declaration is the conventional "primary" one.
func bestIDByName(byName map[string][]int64) map[string]int64 {
	out := make(map[string]int64, len(byName))
	for name, ids := range byName {
		if len(ids) > 0 {
			out[name] = ids[0]
		}
	}
	return out
}

// HandleBatch applies a debounced batch of watcher path events to one
// repository: deleted paths are removed (cascading symbols/edges), modified
// and created paths are re-indexed, then references for the touched files
// are re-resolved against the current repository-wide name map (spec §4.B
// "Incremental update").
func (idx *Indexer) HandleBatch(repoID int64, root string, batch []watch.PathEvent) (Stats, error) {
	var stats Stats
	var toResolve []walkResult

	for _, ev := range batch {
		relPath, err := relativeTo(root, ev.Path)
		if err != nil {
			continue
		}
		if ev.Classification == watch.Deleted {
			existing, err := idx.store.GetFile(repoID, relPath)
			if err != nil || existing == nil {
				continue
			}
			if err := idx.store.DeleteFileAndRelink(existing.ID); err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("delete %s: %w", relPath, err))
				continue
			}
			stats.FilesScanned++
			continue
		}
		ext := extensionOf(relPath)
		if !idx.registry.Supports(ext) {
			stats.FilesSkippedUnsupported++
			continue
		}
		toResolve = append(toResolve, walkResult{relPath: relPath, absPath: ev.Path, ext: ext})
	}

	stats.FilesScanned += len(toResolve)
	parsed := idx.parseAll(repoID, toResolve)

	fileSymbolsByName := make(map[string]map[string]int64, len(parsed))
	for _, pf := range parsed {
		switch {
		case pf.parseErr != nil:
			stats.ParseErrors++
			stats.Errors = append(stats.Errors, errs.ParseError(pf.relPath, pf.parseErr))
			continue
		case pf.unchanged:
			stats.FilesSkippedUnchanged++
			continue
		case pf.tooLarge:
			stats.FilesSkippedTooLarge++
			continue
		}
		result, err := idx.store.ReindexFile(repoID, pf.relPath, pf.language, pf.contentHash, pf.symbols)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("reindex %s: %w", pf.relPath, err))
			continue
		}
		stats.FilesParsed++
		stats.SymbolsInserted += len(pf.symbols)
		fileSymbolsByName[pf.relPath] = bestIDByName(result.SymbolsByName)
	}

	allSymbols, err := idx.store.ListSymbolsByRepo(repoID)
	if err != nil {
		return stats, fmt.Errorf("list symbols by repo: %w", err)
	}
	repoMap := buildNameMap(allSymbols)

	edges, err := idx.resolveReferences(repoID, parsed, fileSymbolsByName, repoMap)
	stats.EdgesInserted += edges
	if err != nil {
		stats.Errors = append(stats.Errors, err)
	}

	if err := idx.store.TouchRepository(repoID); err != nil {
		return stats, fmt.Errorf("touch repository: %w", err)
	}
	return stats, nil
}

// KnownPaths returns a callback reporting every root-relative path the store
// has for repoID — the callback the watcher uses both to classify
// created-vs-modified and to expand directory-removal events.
func (idx *Indexer) KnownPaths(repoID int64) func() []string {
	return func() []string {
		files, err := idx.store.ListFiles(repoID)
		if err != nil {
			logging.Warnf("indexing: list files for known-paths: %v", err)
			return nil
		}
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		return paths
	}
}

func relativeTo(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func extensionOf(relPath string) string {
	idx := strings.LastIndexByte(relPath, '.')
	if idx < 0 {
		return ""
	}
	return relPath[idx:]
}
