// Package updates implements the version-diff engine: given a user's
// installed skills and last-check timestamp, it partitions the catalog into
// new skills and available updates using numeric semantic-version ordering.
package updates

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/logger"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

// Service computes skill update checks. It is stateless per request; its
// only side effect is recording the user's last-check timestamps.
type Service struct {
	store catalog.Store
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an update-check service over the given catalog store.
func NewService(store catalog.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckRequest is an update check for one user.
type CheckRequest struct {
	UserID          string                  `json:"userId"`
	InstalledSkills []ctypes.InstalledSkill `json:"installedSkills"`
	LastCheck       time.Time               `json:"lastCheck"`
}

// AvailableUpdate describes an installed skill with a newer catalog version.
type AvailableUpdate struct {
	SkillID        string `json:"skillId"`
	Name           string `json:"name"`
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion"`
	Category       string `json:"category"`
	Description    string `json:"description"`
}

// NewSkill describes a catalog skill created after the user's last check
// that they do not have installed.
type NewSkill struct {
	SkillID       string `json:"skillId"`
	Name          string `json:"name"`
	LatestVersion string `json:"latestVersion"`
	Category      string `json:"category"`
	Description   string `json:"description"`
}

// CheckResponse holds both partitions, each sorted by skill title ascending.
type CheckResponse struct {
	AvailableUpdates []AvailableUpdate `json:"availableUpdates"`
	NewSkills        []NewSkill        `json:"newSkills"`
}

// Check partitions the catalog into new skills and available updates, then
// records the check time for every skill the user reported installed.
// Malformed version strings exclude the skill from update detection rather
// than failing the request.
func (s *Service) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	snap, err := catalog.TakeSnapshot(ctx, s.store, "")
	if err != nil {
		return nil, errors.Wrap(err, "failed to snapshot catalog")
	}

	installed := make(map[string]string, len(req.InstalledSkills))
	for _, inst := range req.InstalledSkills {
		installed[inst.SkillID] = inst.Version
	}

	resp := &CheckResponse{
		AvailableUpdates: []AvailableUpdate{},
		NewSkills:        []NewSkill{},
	}

	for _, skill := range snap.Skills {
		installedVersion, isInstalled := installed[skill.SkillID]

		if !isInstalled {
			if skill.CreatedAt.After(req.LastCheck) {
				resp.NewSkills = append(resp.NewSkills, NewSkill{
					SkillID:       skill.SkillID,
					Name:          skill.Title,
					LatestVersion: skill.Version,
					Category:      skill.Category,
					Description:   skill.Description,
				})
			}
			continue
		}

		latest, err := ctypes.ParseVersion(skill.Version)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skillId", skill.SkillID).
				Warn("skipping skill with malformed catalog version")
			continue
		}

		current, err := ctypes.ParseVersion(installedVersion)
		if err != nil {
			logger.G(ctx).WithError(err).WithField("skillId", skill.SkillID).
				WithField("installedVersion", installedVersion).
				Warn("skipping skill with malformed installed version")
			continue
		}

		if latest.NewerThan(current) {
			resp.AvailableUpdates = append(resp.AvailableUpdates, AvailableUpdate{
				SkillID:        skill.SkillID,
				Name:           skill.Title,
				CurrentVersion: installedVersion,
				LatestVersion:  skill.Version,
				Category:       skill.Category,
				Description:    skill.Description,
			})
		}
	}

	sort.Slice(resp.AvailableUpdates, func(i, j int) bool {
		if resp.AvailableUpdates[i].Name != resp.AvailableUpdates[j].Name {
			return resp.AvailableUpdates[i].Name < resp.AvailableUpdates[j].Name
		}
		return resp.AvailableUpdates[i].SkillID < resp.AvailableUpdates[j].SkillID
	})
	sort.Slice(resp.NewSkills, func(i, j int) bool {
		if resp.NewSkills[i].Name != resp.NewSkills[j].Name {
			return resp.NewSkills[i].Name < resp.NewSkills[j].Name
		}
		return resp.NewSkills[i].SkillID < resp.NewSkills[j].SkillID
	})

	if err := s.recordCheck(ctx, req); err != nil {
		return nil, err
	}

	logger.G(ctx).WithField("userId", req.UserID).
		WithField("updates", len(resp.AvailableUpdates)).
		WithField("newSkills", len(resp.NewSkills)).
		Debug("completed update check")

	return resp, nil
}

// recordCheck upserts the last-check timestamp for every reported
// installation. Repeating an identical check only moves the timestamp
// forward, which is idempotent with respect to diff results.
func (s *Service) recordCheck(ctx context.Context, req *CheckRequest) error {
	checkedAt := s.now().UTC()
	for _, inst := range req.InstalledSkills {
		if err := s.store.UpsertLastCheck(ctx, req.UserID, inst.SkillID, inst.Version, checkedAt); err != nil {
			return errors.Wrap(err, "failed to record last check")
		}
	}
	return nil
}
