package store

import (
	"database/sql"
	"fmt"

	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/model"
)

// ReindexResult reports what ReindexFile did, feeding the per-run Stats
// the indexer accumulates.
type ReindexResult struct {
	FileID        int64
	SymbolsByName map[string][]int64 // this file's newly inserted symbols, for parent_id fixup and reference resolution
}

// ReindexFile performs the full per-file transaction described in the
// indexer's full-index step 3-4 and the memory re-linking rule: upsert the
// file row, snapshot memory links, delete the file's old symbols (with their
// edges and FTS rows), insert the new symbols in document order with
// parent_id resolved from parent_path, bulk-mark every memory that was
// linked to a deleted symbol stale, then re-link memories whose symbol name
// survived and recompute needs_review from the body-hash comparison. All of
// this commits atomically; no reader observes a half-updated file.
func (s *Store) ReindexFile(repoID int64, path, language, contentHash string, extracted []grammar.Symbol) (ReindexResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return ReindexResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	fileID, err := putFileTx(tx, repoID, path, language, contentHash)
	if err != nil {
		return ReindexResult{}, err
	}

	snapshot, err := snapshotMemoryLinksTx(tx, fileID)
	if err != nil {
		return ReindexResult{}, err
	}

	if err := deleteSymbolsByFileTx(tx, fileID); err != nil {
		return ReindexResult{}, err
	}

	// Insert symbols in document order (parent-first isn't guaranteed by the
	// grammar, so parent_id is fixed up in a second loop over parentPath).
	byName := make(map[string][]int64, len(extracted))
	inserted := make([]int64, len(extracted))

	for i, sym := range extracted {
		mSym := model.Symbol{
			Name: sym.Name, Kind: sym.Kind, Signature: sym.Signature, Body: sym.Body,
			BodyHash: bodyHash(sym.Body), StartLine: sym.StartLine, EndLine: sym.EndLine,
		}
		id, err := insertSymbolTx(tx, fileID, mSym, nil)
		if err != nil {
			return ReindexResult{}, err
		}
		inserted[i] = id
		byName[sym.Name] = append(byName[sym.Name], id)
	}

	for i, sym := range extracted {
		if sym.ParentPath == "" {
			continue
		}
		parentIDs, ok := byName[sym.ParentPath]
		if !ok || len(parentIDs) == 0 {
			continue
		}
		parentID := parentIDs[0]
		if _, err := tx.Exec(`UPDATE symbols SET parent_id = ? WHERE id = ?`, parentID, inserted[i]); err != nil {
			return ReindexResult{}, fmt.Errorf("fixup parent_id: %w", err)
		}
	}

	if err := bulkMarkStaleTx(tx, snapshot); err != nil {
		return ReindexResult{}, err
	}
	if err := relinkMemoriesTx(tx, snapshot, fileID, extracted, inserted); err != nil {
		return ReindexResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ReindexResult{}, fmt.Errorf("commit: %w", err)
	}
	return ReindexResult{FileID: fileID, SymbolsByName: byName}, nil
}

// DeleteFileAndRelink handles the watcher's deleted-path case: snapshot
// links, delete the file (cascading symbols/edges/FTS), and mark every
// affected memory stale — there are no new symbols to re-link against.
func (s *Store) DeleteFileAndRelink(fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	snapshot, err := snapshotMemoryLinksTx(tx, fileID)
	if err != nil {
		return err
	}
	if err := deleteSymbolsByFileTx(tx, fileID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if err := bulkMarkStaleTx(tx, snapshot); err != nil {
		return err
	}
	return tx.Commit()
}

func bulkMarkStaleTx(tx *sql.Tx, snapshot []model.MemoryLink) error {
	seen := make(map[int64]bool)
	for _, link := range snapshot {
		if seen[link.MemoryID] {
			continue
		}
		seen[link.MemoryID] = true
		if _, err := tx.Exec(`UPDATE memories SET stale = 1, needs_review = 0 WHERE id = ?`, link.MemoryID); err != nil {
			return fmt.Errorf("mark memory stale: %w", err)
		}
	}
	return nil
}

// relinkMemoriesTx re-links memories whose symbol name survived re-indexing
// of this file, overriding the bulk stale mark with fresh/needs_review per
// the body-hash comparison.
func relinkMemoriesTx(tx *sql.Tx, snapshot []model.MemoryLink, fileID int64, extracted []grammar.Symbol, insertedIDs []int64) error {
	bodyHashByName := make(map[string]string, len(extracted))
	idByName := make(map[string]int64, len(extracted))
	// Prefer the lowest resolution-priority kind, then first occurrence, when
	// a name repeats within the file (overloads).
	bestPriority := make(map[string]int, len(extracted))
	for i, sym := range extracted {
		name := sym.Name
		priority := model.ResolutionPriority(sym.Kind)
		if _, ok := idByName[name]; ok && priority >= bestPriority[name] {
			continue
		}
		idByName[name] = insertedIDs[i]
		bodyHashByName[name] = bodyHash(sym.Body)
		bestPriority[name] = priority
	}

	for _, link := range snapshot {
		newID, ok := idByName[link.SymbolName]
		if !ok {
			continue // stays stale=1 from the bulk mark
		}
		newHash := bodyHashByName[link.SymbolName]
		needsReview := 0
		if newHash != link.PriorBodyHash {
			needsReview = 1
		}
		if _, err := tx.Exec(`
			INSERT INTO memory_symbols(memory_id, symbol_id, symbol_name, file_id, prior_body_hash)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(memory_id, symbol_id) DO UPDATE SET prior_body_hash = excluded.prior_body_hash
		`, link.MemoryID, newID, link.SymbolName, fileID, newHash); err != nil {
			return fmt.Errorf("relink memory symbol: %w", err)
		}
		if _, err := tx.Exec(`UPDATE memories SET stale = 0, needs_review = ? WHERE id = ?`, needsReview, link.MemoryID); err != nil {
			return fmt.Errorf("update memory review state: %w", err)
		}
	}
	return nil
}
