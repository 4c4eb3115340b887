// Package contexts implements the context search engine: storage and
// multi-predicate filtered search over session records. Filters combine with
// AND semantics; omitted filters impose no constraint.
package contexts

import (
	"context"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	ctypes "github.com/planehq/contextplane/pkg/types/contexts"
)

const (
	// DefaultLimit is the number of records returned when no limit is given.
	DefaultLimit = 10
	// MaxLimit bounds a single search.
	MaxLimit = 100
)

// ErrInvalidFilter indicates a filter value the engine does not recognize.
// Callers map it to a client-input error; no partial search is executed.
var ErrInvalidFilter = errors.New("invalid search filter")

// ErrRecordNotFound indicates a lookup by ID found nothing.
var ErrRecordNotFound = errors.New("context record not found")

// Filters is the set of independent search predicates. Zero values mean
// "no constraint".
type Filters struct {
	RepoID       string `json:"repoID,omitempty"`
	TicketID     string `json:"ticketID,omitempty"`
	FilePath     string `json:"filePath,omitempty"`
	ContextLevel string `json:"contextLevel,omitempty"`
	AIClient     string `json:"aiClient,omitempty"`
	Status       string `json:"status,omitempty"`
	Query        string `json:"query,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// Validate checks enum-valued filters and the limit range, reporting all
// violations together. Every violation wraps ErrInvalidFilter.
func (f Filters) Validate() error {
	var result *multierror.Error
	if f.ContextLevel != "" && !ctypes.Level(f.ContextLevel).Valid() {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidFilter, "unrecognized contextLevel: %q", f.ContextLevel))
	}
	if f.Status != "" && !ctypes.Status(f.Status).Valid() {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidFilter, "unrecognized status: %q", f.Status))
	}
	if f.Limit < 0 || f.Limit > MaxLimit {
		result = multierror.Append(result, errors.Wrapf(ErrInvalidFilter, "limit must be between 1 and %d, got %d", MaxLimit, f.Limit))
	}
	return result.ErrorOrNil()
}

// EffectiveLimit returns the limit to apply, defaulting when unset.
func (f Filters) EffectiveLimit() int {
	if f.Limit == 0 {
		return DefaultLimit
	}
	return f.Limit
}

// Echo returns the supplied filters as a map for inclusion in search
// responses. Unset filters are omitted.
func (f Filters) Echo() map[string]any {
	m := map[string]any{}
	if f.RepoID != "" {
		m["repoID"] = f.RepoID
	}
	if f.TicketID != "" {
		m["ticketID"] = f.TicketID
	}
	if f.FilePath != "" {
		m["filePath"] = f.FilePath
	}
	if f.ContextLevel != "" {
		m["contextLevel"] = f.ContextLevel
	}
	if f.AIClient != "" {
		m["aiClient"] = f.AIClient
	}
	if f.Status != "" {
		m["status"] = f.Status
	}
	if f.Query != "" {
		m["query"] = f.Query
	}
	return m
}

// matches applies the predicates that operate on the decoded attribute map:
// file path substring, AI client membership, and free-text query. Missing
// fields never match, they never error.
func (f Filters) matches(attrs ctypes.Attributes) bool {
	if f.FilePath != "" {
		found := false
		for _, file := range attrs.Files {
			if strings.Contains(file.Path, f.FilePath) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.AIClient != "" {
		found := false
		for _, client := range attrs.AIClientTypes {
			if client == f.AIClient {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Query != "" && !strings.Contains(strings.ToLower(attrs.Details), strings.ToLower(f.Query)) {
		return false
	}

	return true
}

// SearchResult holds the matching records sorted by timestamp descending,
// truncated to the effective limit.
type SearchResult struct {
	Count   int             `json:"count"`
	Filters map[string]any  `json:"filters"`
	Records []ctypes.Record `json:"data"`
}

// Store persists and searches context records.
type Store interface {
	// Save writes a new record, generating its ID and timestamp when unset.
	Save(ctx context.Context, record ctypes.Record) (ctypes.Record, error)
	// Get looks up a single record by ID.
	Get(ctx context.Context, contextID string) (ctypes.Record, error)
	// Search applies the filters and returns the matching records.
	Search(ctx context.Context, filters Filters) (*SearchResult, error)
	// Close releases the underlying resources.
	Close() error
}
