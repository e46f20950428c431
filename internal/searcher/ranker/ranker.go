package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/parser"
)

// DefaultLimit is the result window returned when the caller asks for none.
const DefaultLimit = 100

// TermMatch pairs a parsed term with the IDs its table lookup returned. A nil
// IDs means the key was absent from the table.
type TermMatch struct {
	Term parser.Term
	IDs  index.Set
}

type RankedResult struct {
	ID             string   `json:"id"`
	PrimaryScore   int      `json:"primary_score"`
	SecondaryScore int      `json:"secondary_score"`
	MatchedTerms   []string `json:"matched_terms"`
}

// Rank scores every candidate found by matches and returns the best limit
// results together with the number of distinct candidates. The primary score
// of a candidate is the sum of the weights of the terms that matched it.
// SecondaryScore is reserved and always zero.
func Rank(matches []TermMatch, limit int) ([]RankedResult, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	scores := make(map[string]int)
	terms := make(map[string]map[string]struct{})
	for _, m := range matches {
		if m.IDs == nil {
			continue
		}
		key := m.Term.KeyString()
		for id := range m.IDs {
			scores[id] += m.Term.Weight
			matched, ok := terms[id]
			if !ok {
				matched = make(map[string]struct{})
				terms[id] = matched
			}
			matched[key] = struct{}{}
		}
	}

	top := topK(scores, limit)
	for i := range top {
		top[i].MatchedTerms = sortedKeys(terms[top[i].ID])
	}
	return top, len(scores)
}

// Less reports whether a ranks ahead of b: higher primary score, then higher
// secondary score, then ascending ID.
func Less(a, b RankedResult) bool {
	if a.PrimaryScore != b.PrimaryScore {
		return a.PrimaryScore > b.PrimaryScore
	}
	if a.SecondaryScore != b.SecondaryScore {
		return a.SecondaryScore > b.SecondaryScore
	}
	return a.ID < b.ID
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
