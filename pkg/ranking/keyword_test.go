package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Help me TEST my web-application, please!")

	expected := []string{"help", "me", "test", "my", "web", "application", "please"}
	assert.Len(t, tokens, len(expected))
	for _, tok := range expected {
		assert.Contains(t, tokens, tok)
	}
}

func TestTokenizeEmpty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("!!! ... ---"))
}

func TestRankByKeywords(t *testing.T) {
	candidates := []Candidate{
		{SkillID: "web-app-testing", Text: "Web Application Testing testing playwright"},
		{SkillID: "pdf-tools", Text: "PDF Tools pdf documents processing"},
	}

	matches := RankByKeywords("help me test my web application", candidates)
	require.Len(t, matches, 2)

	// "test", "web", "application" match out of 6 query tokens
	assert.Equal(t, "web-app-testing", matches[0].SkillID)
	assert.InDelta(t, 0.5, matches[0].Confidence, 1e-9)
	assert.Equal(t, MethodKeywordFallback, matches[0].Method)
	assert.Equal(t, []string{"application", "test", "web"}, matches[0].MatchedKeywords)

	assert.Equal(t, "pdf-tools", matches[1].SkillID)
	assert.Equal(t, 0.0, matches[1].Confidence)
}

func TestRankByKeywordsStemMatching(t *testing.T) {
	// "test" should match "testing" via shared prefix
	candidates := []Candidate{
		{SkillID: "lucky-number-generator", Text: "Lucky Number Generator testing random demo number lucky"},
	}

	matches := RankByKeywords("help me test my web application", candidates)
	require.Len(t, matches, 1)
	assert.Greater(t, matches[0].Confidence, 0.0)
	assert.Equal(t, []string{"test"}, matches[0].MatchedKeywords)
}

func TestRankByKeywordsShortPrefixDoesNotMatch(t *testing.T) {
	matches := RankByKeywords("doc", []Candidate{
		{SkillID: "dog-walker", Text: "dog walking"},
	})
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].Confidence)
}

func TestRankByKeywordsEmptyQuery(t *testing.T) {
	matches := RankByKeywords("", []Candidate{
		{SkillID: "anything", Text: "some skill text"},
	})
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].Confidence)
}

func TestRankByKeywordsTiesBrokenBySkillID(t *testing.T) {
	candidates := []Candidate{
		{SkillID: "zeta", Text: "deploy services"},
		{SkillID: "alpha", Text: "deploy containers"},
	}

	matches := RankByKeywords("deploy", candidates)
	require.Len(t, matches, 2)
	assert.Equal(t, matches[0].Confidence, matches[1].Confidence)
	assert.Equal(t, "alpha", matches[0].SkillID)
	assert.Equal(t, "zeta", matches[1].SkillID)
}

func TestRankByKeywordsScoresWithinBounds(t *testing.T) {
	matches := RankByKeywords("test test testing tested", []Candidate{
		{SkillID: "s", Text: "test testing tested tester tests"},
	})
	require.Len(t, matches, 1)
	assert.LessOrEqual(t, matches[0].Confidence, 1.0)
	assert.GreaterOrEqual(t, matches[0].Confidence, 0.0)
}
