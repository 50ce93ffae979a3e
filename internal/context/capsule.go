package context

import (
	"sort"
	"time"

	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

// alreadySentMarker replaces a pivot's body when its full text was already
// delivered earlier in the session (spec §4.E step 3).
const alreadySentMarker = "(full body sent earlier in session)"

// recencyWindowDays is the normalization window for the debug-intent recency
// bias (spec §4.E "Recency bias").
const recencyWindowDays = 2.0

// recencyWeight blends recency into debug-intent ranking; zero for every
// other intent.
const recencyWeight = 0.5

// memoryBudgetFraction caps memory attachment at 10% of max_tokens.
const memoryBudgetFraction = 0.10

// maxPivots is the cap on FTS/substring pivot candidates (spec §5 resource
// policy: "pivot count ≤ 5").
const maxPivots = 5

// minFTSHits is the threshold below which substring matching supplements
// the pivot set (spec §4.E step 1).
const minFTSHits = 3

// defaultExpandDepth is the BFS hop count from each pivot.
const defaultExpandDepth = 1

// Item is one symbol included in a capsule, either a pivot (possibly with
// full body) or a BFS-adjacent skeleton.
type Item struct {
	SymbolID  int64
	Name      string
	Kind      model.SymbolKind
	Signature string
	Body      string // empty for skeletons and already-sent pivots
	FilePath  string
	Note      string // alreadySentMarker when applicable
}

// Capsule is the ordered context payload get_context returns.
type Capsule struct {
	Intent      Intent
	Items       []Item
	Memories    []model.Memory
	TotalTokens int
	Budget      int
}

// Engine builds capsules from the store's symbol/edge/memory graph.
type Engine struct {
	store       *store.Store
	expandDepth int
}

func New(s *store.Store) *Engine {
	return &Engine{store: s, expandDepth: defaultExpandDepth}
}

// BuildCapsule implements spec §4.E's capsule construction. alreadySent is
// the caller's per-session progressive-disclosure set (read-only here); the
// second return value lists symbol ids whose full body was included in this
// call, for the caller to merge into that set.
func (e *Engine) BuildCapsule(query string, maxTokens int, repoID *int64, alreadySent map[int64]bool) (Capsule, []int64, error) {
	intent, cleaned := classify(query)

	pivots, err := e.selectPivots(cleaned, intent, repoID)
	if err != nil {
		return Capsule{}, nil, err
	}

	var items []Item
	var newlySent []int64
	budget := maxTokens
	used := 0
	selected := make(map[int64]bool, len(pivots))

	for _, hit := range pivots {
		includeBody := !alreadySent[hit.Symbol.ID]
		cost := pivotCost(hit.Symbol, hit.FilePath, includeBody)
		if used+cost > budget {
			break
		}
		item := Item{
			SymbolID: hit.Symbol.ID, Name: hit.Symbol.Name, Kind: hit.Symbol.Kind,
			Signature: hit.Symbol.Signature, FilePath: hit.FilePath,
		}
		if includeBody {
			item.Body = hit.Symbol.Body
			newlySent = append(newlySent, hit.Symbol.ID)
		} else {
			item.Note = alreadySentMarker
		}
		items = append(items, item)
		used += cost
		selected[hit.Symbol.ID] = true
	}

	used = e.expandGraph(intent, selected, &items, used, budget)

	memLimit := int(float64(maxTokens) * memoryBudgetFraction)
	if remaining := budget - used; memLimit > remaining {
		memLimit = remaining
	}
	memories, memTokens, err := e.attachMemories(selected, memLimit)
	if err != nil {
		return Capsule{}, nil, err
	}
	used += memTokens

	return Capsule{
		Intent:      intent,
		Items:       items,
		Memories:    memories,
		TotalTokens: used,
		Budget:      maxTokens,
	}, newlySent, nil
}

// selectPivots runs FTS over the cleaned query, supplementing with
// substring matches when fewer than minFTSHits results come back, truncates
// to maxPivots, then applies the debug-intent recency bias.
func (e *Engine) selectPivots(cleaned string, intent Intent, repoID *int64) ([]store.SymbolHit, error) {
	hits, err := e.store.SearchSymbolsFTS(cleaned, "", repoID, maxPivots)
	if err != nil {
		return nil, err
	}
	if len(hits) < minFTSHits {
		seen := make(map[int64]bool, len(hits))
		for _, h := range hits {
			seen[h.Symbol.ID] = true
		}
		extra, err := e.store.SearchSymbolsSubstring(cleaned, repoID, maxPivots-len(hits))
		if err != nil {
			return nil, err
		}
		for _, h := range extra {
			if !seen[h.Symbol.ID] {
				hits = append(hits, h)
				seen[h.Symbol.ID] = true
			}
		}
	}
	if len(hits) > maxPivots {
		hits = hits[:maxPivots]
	}

	weight := 0.0
	if intent == IntentDebug {
		weight = recencyWeight
	}
	if weight > 0 {
		e.applyRecencyBias(hits, weight)
	}
	return hits, nil
}

// applyRecencyBias blends each hit's rank position (the base FTS ordering,
// normalized to [0,1]) with a normalized recency penalty derived from its
// owning file's indexed_at age, then re-sorts in place.
func (e *Engine) applyRecencyBias(hits []store.SymbolHit, weight float64) {
	n := len(hits)
	if n <= 1 {
		return
	}
	now := time.Now().Unix()
	type scored struct {
		hit   store.SymbolHit
		score float64
	}
	scoredHits := make([]scored, n)
	for i, h := range hits {
		baseRank := float64(i) / float64(n-1)
		agePenalty := 1.0
		if f, err := e.store.GetFileByID(h.Symbol.FileID); err == nil && f != nil {
			ageDays := float64(now-f.IndexedAt) / 86400.0
			if ageDays < 0 {
				ageDays = 0
			}
			agePenalty = ageDays / recencyWindowDays
			if agePenalty > 1 {
				agePenalty = 1
			}
		}
		scoredHits[i] = scored{hit: h, score: (1-weight)*baseRank + weight*agePenalty}
	}
	sort.SliceStable(scoredHits, func(i, j int) bool { return scoredHits[i].score < scoredHits[j].score })
	for i, sh := range scoredHits {
		hits[i] = sh.hit
	}
}

// expandGraph performs the BFS step from every selected pivot in the
// intent's direction, adding unique adjacent symbols as skeletons until the
// budget is exhausted.
func (e *Engine) expandGraph(intent Intent, selected map[int64]bool, items *[]Item, used, budget int) int {
	dir := expansionDirection(intent)
	frontier := make([]int64, 0, len(selected))
	for id := range selected {
		frontier = append(frontier, id)
	}
	sort.Slice(frontier, func(i, j int) bool { return frontier[i] < frontier[j] })

	for depth := 0; depth < e.expandDepth; depth++ {
		var next []int64
		var neighbors []store.EdgeHop
		for _, id := range frontier {
			if dir.forward {
				if hops, err := e.store.NeighborsForward(id); err == nil {
					neighbors = append(neighbors, hops...)
				}
			}
			if dir.reverse {
				if hops, err := e.store.NeighborsReverse(id); err == nil {
					neighbors = append(neighbors, hops...)
				}
			}
		}
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Symbol.ID < neighbors[j].Symbol.ID })

		for _, hop := range neighbors {
			sym := hop.Symbol
			if selected[sym.ID] {
				continue
			}
			filePath, _ := e.store.FilePathByID(sym.FileID)
			cost := skeletonCost(sym, filePath)
			if used+cost > budget {
				return used
			}
			*items = append(*items, Item{
				SymbolID: sym.ID, Name: sym.Name, Kind: sym.Kind,
				Signature: sym.Signature, FilePath: filePath,
			})
			used += cost
			selected[sym.ID] = true
			next = append(next, sym.ID)
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return used
}

// attachMemories collects memories linked to any selected symbol, capped at
// memLimit tokens (spec §4.E step 5).
func (e *Engine) attachMemories(selected map[int64]bool, memLimit int) ([]model.Memory, int, error) {
	if len(selected) == 0 || memLimit <= 0 {
		return nil, 0, nil
	}
	ids := make([]int64, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	memories, err := e.store.MemoriesForSymbolIDs(ids)
	if err != nil {
		return nil, 0, err
	}

	var out []model.Memory
	used := 0
	for _, m := range memories {
		cost := estimateTokens(m.Content)
		if used+cost > memLimit {
			break
		}
		out = append(out, m)
		used += cost
	}
	return out, used, nil
}
