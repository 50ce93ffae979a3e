package indexing

import (
	"strings"

	"github.com/focal-dev/focal/internal/model"
)

// nameMap resolves a reference's ToName to the symbol_id it refers to within
// one repository, per spec §4.B's second-pass contract: kind-priority
// tie-break among same-named symbols, plus an unqualified-tail fallback
// alias for qualified names ("Qualifier::name" or "Qualifier.name").
type nameMap struct {
	byName map[string]int64
}

func buildNameMap(symbols []model.Symbol) *nameMap {
	nm := &nameMap{byName: make(map[string]int64, len(symbols))}
	bestPriority := make(map[string]int, len(symbols))

	assign := func(name string, id int64, priority int) {
		if existingPriority, ok := bestPriority[name]; ok && priority >= existingPriority {
			return
		}
		nm.byName[name] = id
		bestPriority[name] = priority
	}

	for _, sym := range symbols {
		priority := model.ResolutionPriority(sym.Kind)
		assign(sym.Name, sym.ID, priority)
		if tail := qualifiedTail(sym.Name); tail != sym.Name {
			assign(tail, sym.ID, priority)
		}
	}
	return nm
}

// resolve returns the symbol_id toName refers to, trying the exact name
// first and the qualified tail second (a reference can itself be qualified
// or bare, independent of how the declaration was named).
func (nm *nameMap) resolve(toName string) (int64, bool) {
	if id, ok := nm.byName[toName]; ok {
		return id, true
	}
	if tail := qualifiedTail(toName); tail != toName {
		if id, ok := nm.byName[tail]; ok {
			return id, true
		}
	}
	return 0, false
}

// qualifiedTail returns the portion after the last "::" or "." separator,
// or the name unchanged if it carries no qualifier.
func qualifiedTail(name string) string {
	if idx := strings.LastIndex(name, "::"); idx >= 0 {
		return name[idx+2:]
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
