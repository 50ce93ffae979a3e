// Package traversal implements the traversal engine's two bounded-BFS
// primitives (spec §4.F): impact (blast radius) over reverse edges, and
// logic flow (path enumeration) over forward edges. Dependencies/dependents
// at depth 1-3 delegate directly to the store's own BFS.
package traversal

import (
	"sort"

	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

const (
	defaultImpactDepth = 2
	maxImpactDepth     = 5

	defaultMaxPaths = 3
	maxQueueEntries = 10_000
	maxPathLength   = 10
)

// Engine runs traversal queries against the store's symbol/edge graph.
type Engine struct {
	store *store.Store
}

func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// ImpactNode is one symbol discovered by an impact traversal.
type ImpactNode struct {
	Symbol   model.Symbol
	FilePath string
	Distance int
	EdgeKind model.EdgeKind
}

// Impact runs a bounded reverse-edge BFS from rootID (spec §4.F "Impact
// (blast radius)"): each node is emitted once, with the distance and the
// edge kind that first admitted it. depth is capped at maxImpactDepth; zero
// or a negative depth uses the default.
func (e *Engine) Impact(rootID int64, depth int) ([]ImpactNode, error) {
	if depth <= 0 {
		depth = defaultImpactDepth
	}
	if depth > maxImpactDepth {
		depth = maxImpactDepth
	}

	visited := map[int64]bool{rootID: true}
	frontier := []int64{rootID}
	var out []ImpactNode

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		var next []int64
		for _, id := range frontier {
			hops, err := e.store.NeighborsReverse(id)
			if err != nil {
				return nil, err
			}
			for _, hop := range hops {
				dependent := hop.Edge.SourceID
				if visited[dependent] {
					continue
				}
				visited[dependent] = true
				filePath, _ := e.store.FilePathByID(hop.Symbol.FileID)
				out = append(out, ImpactNode{
					Symbol: hop.Symbol, FilePath: filePath, Distance: level, EdgeKind: hop.Edge.Kind,
				})
				next = append(next, dependent)
			}
		}
		frontier = next
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].Symbol.Name < out[j].Symbol.Name
	})
	return out, nil
}

// Path is one completed forward-edge walk from the logic-flow query's start
// symbol to its target.
type Path struct {
	SymbolIDs []int64
	Names     []string
}

// queueEntry is one partial path waiting to be extended.
type queueEntry struct {
	ids   []int64
	names []string
}

// LogicFlow runs a bounded forward-edge BFS from fromID to toID, carrying
// the path-so-far to forbid cycles, per spec §4.F "Logic flow". Stops once
// maxPaths completed paths are found, the queue reaches maxQueueEntries, or
// a path reaches maxPathLength.
func (e *Engine) LogicFlow(fromID, toID int64, fromName, toName string, maxPaths int) ([]Path, error) {
	if maxPaths <= 0 {
		maxPaths = defaultMaxPaths
	}

	queue := []queueEntry{{ids: []int64{fromID}, names: []string{fromName}}}
	var completed []Path

	for len(queue) > 0 && len(completed) < maxPaths {
		if len(queue) > maxQueueEntries {
			break
		}
		entry := queue[0]
		queue = queue[1:]

		lastID := entry.ids[len(entry.ids)-1]
		if lastID == toID && len(entry.ids) > 1 {
			completed = append(completed, Path{SymbolIDs: append([]int64(nil), entry.ids...), Names: append([]string(nil), entry.names...)})
			continue
		}
		if len(entry.ids) >= maxPathLength {
			continue
		}

		hops, err := e.store.NeighborsForward(lastID)
		if err != nil {
			return nil, err
		}
		sort.Slice(hops, func(i, j int) bool { return hops[i].Symbol.Name < hops[j].Symbol.Name })

		for _, hop := range hops {
			nextID := hop.Edge.TargetID
			if onPath(entry.ids, nextID) {
				continue
			}
			nextEntry := queueEntry{
				ids:   append(append([]int64(nil), entry.ids...), nextID),
				names: append(append([]string(nil), entry.names...), hop.Symbol.Name),
			}
			if nextID == toID {
				completed = append(completed, Path{SymbolIDs: nextEntry.ids, Names: nextEntry.names})
				if len(completed) >= maxPaths {
					break
				}
				continue
			}
			queue = append(queue, nextEntry)
		}
	}

	sort.Slice(completed, func(i, j int) bool {
		if len(completed[i].SymbolIDs) != len(completed[j].SymbolIDs) {
			return len(completed[i].SymbolIDs) < len(completed[j].SymbolIDs)
		}
		return lexNames(completed[i].Names) < lexNames(completed[j].Names)
	})
	if len(completed) > maxPaths {
		completed = completed[:maxPaths]
	}
	return completed, nil
}

func onPath(ids []int64, candidate int64) bool {
	for _, id := range ids {
		if id == candidate {
			return true
		}
	}
	return false
}

func lexNames(names []string) string {
	joined := ""
	for _, n := range names {
		joined += n + "\x00"
	}
	return joined
}

// Dependencies and Dependents delegate directly to the store's own
// multi-level BFS — spec §4.F: "identical to impact with the edge direction
// chosen accordingly" for depth 1-3.
func (e *Engine) Dependencies(symbolID int64, depth int) ([]store.EdgeHop, error) {
	return e.store.GetDependencies(symbolID, depth)
}

func (e *Engine) Dependents(symbolID int64, depth int) ([]store.EdgeHop, error) {
	return e.store.GetDependents(symbolID, depth)
}
