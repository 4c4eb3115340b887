// Package ranking implements the two skill-matching strategies: cosine
// similarity over embedding vectors and keyword-overlap scoring used as a
// fallback when no embeddings are available. Both strategies produce
// deterministic orderings: score descending, skill ID ascending on ties.
package ranking

import "sort"

// Match method provenance tags. Every result carries the method that
// produced it so callers can tell embedding matches from fallback matches.
const (
	MethodEmbedding       = "embedding"
	MethodKeywordFallback = "keyword fallback"
)

// Match is a scored skill produced by one of the ranking strategies.
type Match struct {
	SkillID    string
	Confidence float64 // raw score clipped to [0,1]
	RawScore   float64
	Method     string
	// MatchedKeywords holds the query tokens that matched, populated only
	// by the keyword matcher.
	MatchedKeywords []string
}

// sortMatches orders matches by confidence descending, skill ID ascending on
// ties, so repeated identical requests produce identical ordered results.
func sortMatches(matches []Match) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].SkillID < matches[j].SkillID
	})
}

// clip bounds a score to [0,1]. Negative cosine values map to zero
// confidence: task and skill descriptions are not adversarial in practice,
// so negative similarity means "no match" rather than a signal to propagate.
func clip(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
