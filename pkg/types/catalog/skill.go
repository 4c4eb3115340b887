// Package catalog defines the shared data types for the skill catalog:
// skills, semantic versions, and per-user installations. These types are
// consumed by the suggestion, update, and ingestion engines.
package catalog

import (
	"strings"
	"time"
)

// VisibilityScope controls who can discover a skill.
type VisibilityScope string

const (
	VisibilityPrivate      VisibilityScope = "private"
	VisibilityTeam         VisibilityScope = "team"
	VisibilityOrganization VisibilityScope = "organization"
	VisibilityGlobal       VisibilityScope = "global"
)

// Skill is a named, versioned capability document with searchable metadata
// and an optional embedding vector.
type Skill struct {
	SkillID     string          `json:"skillId" db:"skill_id"`
	Title       string          `json:"title" db:"title"`
	Description string          `json:"description" db:"description"`
	Content     string          `json:"content,omitempty" db:"content"`
	Category    string          `json:"category" db:"category"`
	Tags        []string        `json:"tags"`
	Version     string          `json:"version" db:"version"`
	Embedding   []float64       `json:"-"` // nil until generated by the provider
	Visibility  VisibilityScope `json:"visibilityScope" db:"visibility_scope"`
	UsageCount  int             `json:"usageCount" db:"usage_count"`
	Source      string          `json:"source,omitempty" db:"source"`
	SourceURL   string          `json:"sourceUrl,omitempty" db:"source_url"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time       `json:"updatedAt" db:"updated_at"`
}

// HasEmbedding reports whether the skill carries a non-empty embedding vector.
func (s *Skill) HasEmbedding() bool {
	return len(s.Embedding) > 0
}

// SearchText returns the text used for keyword matching: the skill's title,
// description, and tags joined into a single string.
func (s *Skill) SearchText() string {
	parts := []string{s.Title, s.Description}
	parts = append(parts, s.Tags...)
	return strings.Join(parts, " ")
}

// Metadata is the subset of skill fields returned alongside suggestions.
type Metadata struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Capabilities []string `json:"capabilities"`
}

// Meta returns the suggestion metadata for the skill.
func (s *Skill) Meta() Metadata {
	tags := s.Tags
	if tags == nil {
		tags = []string{}
	}
	return Metadata{
		Name:         s.Title,
		Description:  s.Description,
		Category:     s.Category,
		Capabilities: tags,
	}
}

// Installation records a skill a user has installed and the last time they
// checked for updates. The (UserID, SkillID) pair is unique; rows are
// created on first check and updated on every subsequent one.
type Installation struct {
	UserID           string    `json:"userId" db:"user_id"`
	SkillID          string    `json:"skillId" db:"skill_id"`
	InstalledVersion string    `json:"installedVersion" db:"installed_version"`
	LastCheck        time.Time `json:"lastCheck" db:"last_check"`
}

// InstalledSkill identifies a skill and the version the user has installed,
// as reported by the client in an update check.
type InstalledSkill struct {
	SkillID string `json:"skillId"`
	Version string `json:"version"`
}
