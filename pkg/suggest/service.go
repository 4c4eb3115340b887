// Package suggest implements the skill suggestion engine. It embeds the
// task description via the external provider and ranks catalog skills by
// cosine similarity; when the provider fails or no skill carries an
// embedding, it degrades wholesale to keyword-overlap matching. A single
// request never mixes the two methods.
package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/embeddings"
	"github.com/planehq/contextplane/pkg/logger"
	"github.com/planehq/contextplane/pkg/ranking"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

const (
	// DefaultThreshold is the minimum embedding confidence for a suggestion.
	DefaultThreshold = 0.5
	// DefaultFallbackThreshold is the floor for keyword matches. Overlap
	// scores are not calibrated against cosine similarity and run much
	// lower, so the fallback path uses its own threshold.
	DefaultFallbackThreshold = 0.1
	// DefaultMaxSuggestions caps the suggestion list length.
	DefaultMaxSuggestions = 3

	// maxReasoningKeywords caps how many matched keywords a reasoning
	// string names.
	maxReasoningKeywords = 3
)

// Service produces skill suggestions for task descriptions. Stateless per
// request: each call computes over one catalog snapshot.
type Service struct {
	store             catalog.Store
	provider          embeddings.Provider
	threshold         float64
	fallbackThreshold float64
	maxSuggestions    int
}

// Option configures a Service.
type Option func(*Service)

// WithThreshold overrides the embedding confidence threshold.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithFallbackThreshold overrides the keyword-fallback confidence threshold.
func WithFallbackThreshold(threshold float64) Option {
	return func(s *Service) {
		s.fallbackThreshold = threshold
	}
}

// WithMaxSuggestions overrides the maximum suggestion count.
func WithMaxSuggestions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewService creates a suggestion service over the given store and provider.
func NewService(store catalog.Store, provider embeddings.Provider, opts ...Option) *Service {
	s := &Service{
		store:             store,
		provider:          provider,
		threshold:         DefaultThreshold,
		fallbackThreshold: DefaultFallbackThreshold,
		maxSuggestions:    DefaultMaxSuggestions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request asks for skills relevant to a task description.
type Request struct {
	TaskDescription string         `json:"taskDescription"`
	UserID          string         `json:"userId"`
	Context         map[string]any `json:"context,omitempty"`
}

// Suggestion is one ranked skill match. Transient: computed per request,
// never persisted.
type Suggestion struct {
	SkillID       string          `json:"skillId"`
	Confidence    float64         `json:"confidence"`
	Reasoning     string          `json:"reasoning"`
	SkillMetadata ctypes.Metadata `json:"skillMetadata"`
	Installed     bool            `json:"installed"`
}

// Response holds the ranked suggestions and the method that produced them.
type Response struct {
	Suggestions []Suggestion `json:"suggestions"`
	Method      string       `json:"method"`
}

// Suggest returns at most maxSuggestions skills with confidence at or above
// the active threshold, sorted by confidence descending. An empty list is a
// valid, non-error outcome.
func (s *Service) Suggest(ctx context.Context, req *Request) (*Response, error) {
	snap, err := catalog.TakeSnapshot(ctx, s.store, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot catalog")
	}

	if len(snap.Skills) == 0 {
		return &Response{Suggestions: []Suggestion{}, Method: ranking.MethodKeywordFallback}, nil
	}

	matches, threshold := s.rank(ctx, req.TaskDescription, snap)

	suggestions := make([]Suggestion, 0, s.maxSuggestions)
	for _, m := range matches {
		if m.Confidence < threshold {
			break
		}
		if len(suggestions) == s.maxSuggestions {
			break
		}

		skill, ok := snap.Skill(m.SkillID)
		if !ok {
			continue
		}

		suggestions = append(suggestions, Suggestion{
			SkillID:       m.SkillID,
			Confidence:    m.Confidence,
			Reasoning:     reasoning(m),
			SkillMetadata: skill.Meta(),
			Installed:     snap.IsInstalled(m.SkillID),
		})
	}

	method := ranking.MethodKeywordFallback
	if len(matches) > 0 {
		method = matches[0].Method
	}

	logger.G(ctx).WithField("method", method).
		WithField("suggestions", len(suggestions)).
		Debug("computed skill suggestions")

	return &Response{Suggestions: suggestions, Method: method}, nil
}

// rank runs the embedding path when possible and otherwise substitutes the
// keyword path for the whole request, returning the matches and the
// threshold that applies to them.
func (s *Service) rank(ctx context.Context, task string, snap *catalog.Snapshot) ([]ranking.Match, float64) {
	eligible := snap.Embedded()
	if len(eligible) > 0 {
		vector, err := s.provider.Embed(ctx, task)
		if err == nil {
			return ranking.RankByEmbedding(vector, eligible), s.threshold
		}
		logger.G(ctx).WithError(err).Info("embedding provider unavailable, using keyword fallback")
	}

	return ranking.RankByKeywords(task, snap.Keywords()), s.fallbackThreshold
}

// reasoning renders a human-readable explanation carrying the method and the
// raw score.
func reasoning(m ranking.Match) string {
	if m.Method == ranking.MethodEmbedding {
		return fmt.Sprintf("task matches skill description with cosine similarity %.2f (method: embedding)", m.RawScore)
	}

	keywords := m.MatchedKeywords
	if len(keywords) > maxReasoningKeywords {
		keywords = keywords[:maxReasoningKeywords]
	}
	if len(keywords) == 0 {
		return fmt.Sprintf("keyword overlap score %.2f (method: keyword fallback)", m.RawScore)
	}
	return fmt.Sprintf("task mentions keywords matching this skill: %s (score %.2f, method: keyword fallback)",
		strings.Join(keywords, ", "), m.RawScore)
}
