// Package catalog provides the skill catalog store and the read-only
// snapshots the suggestion and update engines compute over. It also houses
// the markdown ingestion pipeline that populates the catalog from SKILL.md
// files.
package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

// ErrSkillNotFound indicates a lookup by id matched nothing. It is a
// distinct condition from "zero suggestions".
var ErrSkillNotFound = errors.New("skill not found")

const (
	// DefaultListLimit caps a browse of the full catalog.
	DefaultListLimit = 50
	// DefaultSearchLimit caps a filtered search.
	DefaultSearchLimit = 20
	// MaxSearchLimit bounds both.
	MaxSearchLimit = 100
)

// SkillFilters narrows a catalog search. Zero values mean "no constraint".
type SkillFilters struct {
	Query    string `json:"query,omitempty"`    // case-insensitive substring over title and description
	Category string `json:"category,omitempty"` // exact match
	Tag      string `json:"tag,omitempty"`      // membership test
	Limit    int    `json:"limit,omitempty"`
}

// Validate checks the limit range. Zero means "use the caller's default".
func (f SkillFilters) Validate() error {
	if f.Limit < 0 || f.Limit > MaxSearchLimit {
		return errors.Errorf("limit must be between 1 and %d, got %d", MaxSearchLimit, f.Limit)
	}
	return nil
}

// Echo returns the supplied filters as a map for inclusion in search
// responses. Unset filters are omitted.
func (f SkillFilters) Echo() map[string]any {
	m := map[string]any{}
	if f.Query != "" {
		m["query"] = f.Query
	}
	if f.Category != "" {
		m["category"] = f.Category
	}
	if f.Tag != "" {
		m["tag"] = f.Tag
	}
	return m
}

// Store is the skill catalog: key lookup by id, whole-catalog scans, and
// per-user installation state.
type Store interface {
	// SaveSkill inserts or updates a skill keyed by its skill ID.
	// created_at is preserved on update.
	SaveSkill(ctx context.Context, skill ctypes.Skill) error

	// GetSkill returns a skill by id, or an error wrapping ErrSkillNotFound.
	GetSkill(ctx context.Context, skillID string) (ctypes.Skill, error)

	// ListSkills returns the full catalog sorted by skill ID.
	ListSkills(ctx context.Context) ([]ctypes.Skill, error)

	// SearchSkills returns skills matching the filters, newest first,
	// truncated to the filter limit (DefaultSearchLimit when unset).
	SearchSkills(ctx context.Context, filters SkillFilters) ([]ctypes.Skill, error)

	// InstalledSkills returns the user's installation records.
	InstalledSkills(ctx context.Context, userID string) ([]ctypes.Installation, error)

	// UpsertLastCheck atomically records the user's last update check for a
	// skill. Last writer wins on the timestamp; repeating the same check is
	// idempotent.
	UpsertLastCheck(ctx context.Context, userID, skillID, installedVersion string, checkedAt time.Time) error

	Close() error
}
