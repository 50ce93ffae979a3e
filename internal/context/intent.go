// Package context implements the context engine (spec §4.E): intent
// classification, capsule construction within a token budget, BFS graph
// expansion, memory attachment, and progressive disclosure across a
// session.
package context

import "strings"

// Intent is the classified purpose of a get_context query, driving both the
// BFS expansion direction and (for debug) the recency-biased ranking.
type Intent string

const (
	IntentDebug    Intent = "debug"
	IntentRefactor Intent = "refactor"
	IntentModify   Intent = "modify"
	IntentExplore  Intent = "explore"
)

// intentKeywords holds each intent's disjoint keyword set, checked in this
// order so debug > refactor > modify breaks ties among equal counts.
var intentKeywords = []struct {
	intent   Intent
	keywords map[string]bool
}{
	{IntentDebug, setOf("fix", "bug", "crash", "fail", "panic", "broken", "debug")},
	{IntentRefactor, setOf("refactor", "rename", "extract", "split", "reorganize")},
	{IntentModify, setOf("add", "implement", "create", "build", "feature")},
}

func setOf(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// classify tokenizes query by whitespace, lowercases it, and counts
// occurrences per intent's keyword set. The highest non-zero count wins;
// ties are broken by evaluation order (debug, refactor, modify). Zero
// matches across all three is explore. Matched tokens are stripped from the
// returned cleaned query so FTS ranks on the remaining content words.
func classify(query string) (Intent, string) {
	tokens := strings.Fields(strings.ToLower(query))
	counts := make([]int, len(intentKeywords))
	matched := make([]bool, len(tokens))

	for i, tok := range tokens {
		for k, entry := range intentKeywords {
			if entry.keywords[tok] {
				counts[k]++
				matched[i] = true
				break
			}
		}
	}

	best := -1
	bestCount := 0
	for k, c := range counts {
		if c > bestCount {
			bestCount = c
			best = k
		}
	}

	var cleanedTokens []string
	for i, tok := range tokens {
		if !matched[i] {
			cleanedTokens = append(cleanedTokens, tok)
		}
	}
	cleaned := strings.Join(cleanedTokens, " ")
	if cleaned == "" {
		cleaned = query
	}

	if best < 0 {
		return IntentExplore, cleaned
	}
	return intentKeywords[best].intent, cleaned
}

// expansionDirection reports which edge direction(s) the capsule's BFS step
// follows for a given intent (spec §4.E "Graph expansion policy by intent").
type direction struct {
	forward bool
	reverse bool
}

func expansionDirection(intent Intent) direction {
	switch intent {
	case IntentDebug:
		return direction{forward: true, reverse: true}
	case IntentRefactor:
		return direction{reverse: true}
	default: // modify, explore
		return direction{forward: true}
	}
}
