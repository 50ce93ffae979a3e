package context

import "github.com/focal-dev/focal/internal/model"

// pivotCost is the token cost formula from spec §4.E step 2: with body
// included, or with body replaced by the empty string when the pivot's
// full text was already sent this session.
func pivotCost(sym model.Symbol, filePath string, includeBody bool) int {
	body := sym.Body
	if !includeBody {
		body = ""
	}
	n := len(sym.Name) + len(string(sym.Kind)) + len(sym.Signature) + len(body) + len(filePath) + 20
	return ceilDiv(n, 4)
}

// skeletonCost is a BFS-adjacent symbol's cost: always skeleton (no body).
func skeletonCost(sym model.Symbol, filePath string) int {
	return pivotCost(sym, filePath, false)
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// estimateTokens applies the coarse characters/4 estimator used for memory
// attachment budgeting (spec §4.E "Token estimation").
func estimateTokens(s string) int {
	return ceilDiv(len(s), 4)
}
