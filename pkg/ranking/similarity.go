package ranking

import "math"

// Embedded pairs a skill ID with its embedding vector. Only skills with
// non-nil embeddings are eligible for similarity ranking.
type Embedded struct {
	SkillID string
	Vector  []float64
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// A zero-magnitude vector on either side, or a dimension mismatch, yields 0
// rather than an error.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RankByEmbedding scores each candidate against the query vector and returns
// matches sorted by confidence descending, skill ID ascending on ties.
func RankByEmbedding(query []float64, candidates []Embedded) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		score := CosineSimilarity(query, c.Vector)
		matches = append(matches, Match{
			SkillID:    c.SkillID,
			Confidence: clip(score),
			RawScore:   score,
			Method:     MethodEmbedding,
		})
	}

	sortMatches(matches)
	return matches
}
