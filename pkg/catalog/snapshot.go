package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/ranking"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

// Snapshot is a consistent read-only view of the catalog plus one user's
// installation state, taken at a point in time. A request computes over a
// single snapshot throughout so ranking and installed-status lookups never
// tear.
type Snapshot struct {
	Skills    []ctypes.Skill
	Installed map[string]string // skill ID -> installed version
	TakenAt   time.Time

	byID map[string]int
}

// TakeSnapshot loads the catalog and the user's installations. Pass an empty
// userID for a catalog-only snapshot.
func TakeSnapshot(ctx context.Context, store Store, userID string) (*Snapshot, error) {
	s := &Snapshot{}
	if err := s.refresh(ctx, store, userID); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads the snapshot wholesale from the store.
func (s *Snapshot) Refresh(ctx context.Context, store Store, userID string) error {
	return s.refresh(ctx, store, userID)
}

func (s *Snapshot) refresh(ctx context.Context, store Store, userID string) error {
	skills, err := store.ListSkills(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load catalog")
	}

	installed := make(map[string]string)
	if userID != "" {
		installations, err := store.InstalledSkills(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to load installations")
		}
		for _, inst := range installations {
			installed[inst.SkillID] = inst.InstalledVersion
		}
	}

	byID := make(map[string]int, len(skills))
	for i, skill := range skills {
		byID[skill.SkillID] = i
	}

	s.Skills = skills
	s.Installed = installed
	s.TakenAt = time.Now().UTC()
	s.byID = byID
	return nil
}

// Skill returns the skill with the given id from the snapshot.
func (s *Snapshot) Skill(skillID string) (ctypes.Skill, bool) {
	i, ok := s.byID[skillID]
	if !ok {
		return ctypes.Skill{}, false
	}
	return s.Skills[i], true
}

// IsInstalled reports whether the snapshot's user has the skill installed.
func (s *Snapshot) IsInstalled(skillID string) bool {
	_, ok := s.Installed[skillID]
	return ok
}

// Embedded returns the (skillID, vector) pairs for every skill carrying an
// embedding, the eligible set for similarity ranking.
func (s *Snapshot) Embedded() []ranking.Embedded {
	var out []ranking.Embedded
	for _, skill := range s.Skills {
		if skill.HasEmbedding() {
			out = append(out, ranking.Embedded{SkillID: skill.SkillID, Vector: skill.Embedding})
		}
	}
	return out
}

// Keywords returns the keyword-matching candidates for the full catalog.
func (s *Snapshot) Keywords() []ranking.Candidate {
	out := make([]ranking.Candidate, 0, len(s.Skills))
	for i := range s.Skills {
		out = append(out, ranking.Candidate{
			SkillID: s.Skills[i].SkillID,
			Text:    s.Skills[i].SearchText(),
		})
	}
	return out
}
