package ranking

import (
	"sort"
	"strings"
	"unicode"
)

// stemPrefixLen is the minimum shared prefix length for two tokens to be
// treated as the same word ("test" matches "testing", "doc" does not match
// "dog").
const stemPrefixLen = 4

// Candidate pairs a skill ID with the text to match against: typically the
// skill's title, description, and tags joined together.
type Candidate struct {
	SkillID string
	Text    string
}

// Tokenize lowercases text and splits it into a set of word tokens.
// Word characters are letters, digits, and underscores.
func Tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return tokens
}

// tokensMatch reports whether two tokens refer to the same word: exact
// equality, or one being a prefix of the other with at least stemPrefixLen
// characters shared.
func tokensMatch(a, b string) bool {
	if a == b {
		return true
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= stemPrefixLen && strings.HasPrefix(longer, shorter)
}

// RankByKeywords scores each candidate as the fraction of query tokens that
// appear in the candidate's text, clipped to [0,1]. A query with no tokens
// scores every candidate 0. Results are sorted by confidence descending,
// skill ID ascending on ties, and tagged with the keyword-fallback method.
func RankByKeywords(query string, candidates []Candidate) []Match {
	queryTokens := Tokenize(query)

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matched := overlap(queryTokens, Tokenize(c.Text))

		var score float64
		if len(queryTokens) > 0 {
			score = float64(len(matched)) / float64(len(queryTokens))
		}

		matches = append(matches, Match{
			SkillID:         c.SkillID,
			Confidence:      clip(score),
			RawScore:        score,
			Method:          MethodKeywordFallback,
			MatchedKeywords: matched,
		})
	}

	sortMatches(matches)
	return matches
}

// overlap returns the query tokens that match any candidate token, sorted
// for deterministic reasoning strings.
func overlap(query, candidate map[string]struct{}) []string {
	var matched []string
	for q := range query {
		for c := range candidate {
			if tokensMatch(q, c) {
				matched = append(matched, q)
				break
			}
		}
	}
	sort.Strings(matched)
	return matched
}
