package store

import (
	"fmt"

	"github.com/focal-dev/focal/internal/model"
)

// InsertEdge records a "source depends on target" relation; the unique
// constraint on (source_id, target_id, kind) silently swallows duplicates.
func (s *Store) InsertEdge(sourceID, targetID int64, kind model.EdgeKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO edges(source_id, target_id, kind) VALUES (?, ?, ?)
	`, sourceID, targetID, string(kind))
	if err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return nil
}

// EdgeHop pairs an edge with the symbol it led to, the shape
// get_dependencies/get_dependents return at depth 1.
type EdgeHop struct {
	Edge   model.Edge
	Symbol model.Symbol
}

// GetDependencies returns symbols symbolID depends on (forward edges),
// breadth-first up to depth levels (1-3).
func (s *Store) GetDependencies(symbolID int64, depth int) ([]EdgeHop, error) {
	return s.bfsEdges(symbolID, depth, true)
}

// GetDependents returns symbols that depend on symbolID (reverse edges),
// breadth-first up to depth levels (1-3).
func (s *Store) GetDependents(symbolID int64, depth int) ([]EdgeHop, error) {
	return s.bfsEdges(symbolID, depth, false)
}

func (s *Store) bfsEdges(rootID int64, depth int, forward bool) ([]EdgeHop, error) {
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	visited := map[int64]bool{rootID: true}
	frontier := []int64{rootID}
	var out []EdgeHop

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []int64
		for _, id := range frontier {
			rows, err := s.queryEdgesLocked(id, forward)
			if err != nil {
				return nil, err
			}
			for _, hop := range rows {
				other := hop.Edge.TargetID
				if !forward {
					other = hop.Edge.SourceID
				}
				if visited[other] {
					continue
				}
				visited[other] = true
				out = append(out, hop)
				next = append(next, other)
			}
		}
		frontier = next
	}
	return out, nil
}

// NeighborsForward and NeighborsReverse expose a single BFS hop, used by the
// traversal engine to build impact/logic-flow results with full control
// over distance tracking, cycle guards and path enumeration.
func (s *Store) NeighborsForward(symbolID int64) ([]EdgeHop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryEdgesLocked(symbolID, true)
}

func (s *Store) NeighborsReverse(symbolID int64) ([]EdgeHop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryEdgesLocked(symbolID, false)
}

func (s *Store) queryEdgesLocked(symbolID int64, forward bool) ([]EdgeHop, error) {
	var query string
	if forward {
		query = `
			SELECT e.id, e.source_id, e.target_id, e.kind,
			       s.id, s.file_id, s.name, s.kind, s.signature, s.body, s.body_hash, s.start_line, s.end_line, s.parent_id
			FROM edges e JOIN symbols s ON s.id = e.target_id
			WHERE e.source_id = ?
		`
	} else {
		query = `
			SELECT e.id, e.source_id, e.target_id, e.kind,
			       s.id, s.file_id, s.name, s.kind, s.signature, s.body, s.body_hash, s.start_line, s.end_line, s.parent_id
			FROM edges e JOIN symbols s ON s.id = e.source_id
			WHERE e.target_id = ?
		`
	}
	rows, err := s.db.Query(query, symbolID)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var out []EdgeHop
	for rows.Next() {
		var hop EdgeHop
		var edgeKind, symKind string
		var parentID *int64
		if err := rows.Scan(&hop.Edge.ID, &hop.Edge.SourceID, &hop.Edge.TargetID, &edgeKind,
			&hop.Symbol.ID, &hop.Symbol.FileID, &hop.Symbol.Name, &symKind, &hop.Symbol.Signature,
			&hop.Symbol.Body, &hop.Symbol.BodyHash, &hop.Symbol.StartLine, &hop.Symbol.EndLine, &parentID); err != nil {
			return nil, fmt.Errorf("scan edge hop: %w", err)
		}
		hop.Edge.Kind = model.EdgeKind(edgeKind)
		hop.Symbol.Kind = model.SymbolKind(symKind)
		hop.Symbol.ParentID = parentID
		out = append(out, hop)
	}
	return out, rows.Err()
}
