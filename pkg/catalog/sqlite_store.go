package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/db"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
)

// SQLiteStore implements Store on a shared SQLite database. Migrations are
// expected to have run before construction.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a catalog store on an open database handle.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

type skillRow struct {
	SkillID     string         `db:"skill_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Content     string         `db:"content"`
	Category    string         `db:"category"`
	Tags        string         `db:"tags"`
	Version     string         `db:"version"`
	Embedding   sql.NullString `db:"embedding"`
	Visibility  string         `db:"visibility_scope"`
	UsageCount  int            `db:"usage_count"`
	Source      string         `db:"source"`
	SourceURL   string         `db:"source_url"`
	CreatedAt   string         `db:"created_at"`
	UpdatedAt   string         `db:"updated_at"`
}

func (r skillRow) toSkill() (ctypes.Skill, error) {
	skill := ctypes.Skill{
		SkillID:     r.SkillID,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Category:    r.Category,
		Version:     r.Version,
		Visibility:  ctypes.VisibilityScope(r.Visibility),
		UsageCount:  r.UsageCount,
		Source:      r.Source,
		SourceURL:   r.SourceURL,
	}

	if err := json.Unmarshal([]byte(r.Tags), &skill.Tags); err != nil {
		return skill, errors.Wrapf(err, "failed to unmarshal tags for skill %s", r.SkillID)
	}

	if r.Embedding.Valid && r.Embedding.String != "" {
		if err := json.Unmarshal([]byte(r.Embedding.String), &skill.Embedding); err != nil {
			return skill, errors.Wrapf(err, "failed to unmarshal embedding for skill %s", r.SkillID)
		}
	}

	var err error
	skill.CreatedAt, err = time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		return skill, errors.Wrapf(err, "failed to parse created_at for skill %s", r.SkillID)
	}
	skill.UpdatedAt, err = time.Parse(time.RFC3339Nano, r.UpdatedAt)
	if err != nil {
		return skill, errors.Wrapf(err, "failed to parse updated_at for skill %s", r.SkillID)
	}

	return skill, nil
}

// SaveSkill inserts or updates a skill. On update the original created_at is
// preserved so new-skill detection stays accurate.
func (s *SQLiteStore) SaveSkill(ctx context.Context, skill ctypes.Skill) error {
	tags := skill.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return errors.Wrap(err, "failed to marshal tags")
	}

	var embeddingJSON any
	if skill.HasEmbedding() {
		raw, err := json.Marshal(skill.Embedding)
		if err != nil {
			return errors.Wrap(err, "failed to marshal embedding")
		}
		embeddingJSON = string(raw)
	}

	now := time.Now().UTC()
	createdAt := skill.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := skill.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	visibility := skill.Visibility
	if visibility == "" {
		visibility = ctypes.VisibilityGlobal
	}

	query := `
		INSERT INTO skills (
			skill_id, title, description, content, category, tags, version,
			embedding, visibility_scope, usage_count, source, source_url,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(skill_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			category = excluded.category,
			tags = excluded.tags,
			version = excluded.version,
			embedding = excluded.embedding,
			visibility_scope = excluded.visibility_scope,
			usage_count = excluded.usage_count,
			source = excluded.source,
			source_url = excluded.source_url,
			updated_at = excluded.updated_at
	`
	_, err = s.db.ExecContext(ctx, query,
		skill.SkillID, skill.Title, skill.Description, skill.Content,
		skill.Category, string(tagsJSON), skill.Version, embeddingJSON,
		string(visibility), skill.UsageCount, skill.Source, skill.SourceURL,
		createdAt.UTC().Format(db.TimeFormat), updatedAt.UTC().Format(db.TimeFormat))
	return errors.Wrapf(err, "failed to save skill %s", skill.SkillID)
}

// GetSkill returns a skill by id.
func (s *SQLiteStore) GetSkill(ctx context.Context, skillID string) (ctypes.Skill, error) {
	var row skillRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM skills WHERE skill_id = ?", skillID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ctypes.Skill{}, errors.Wrapf(ErrSkillNotFound, "skill %s", skillID)
		}
		return ctypes.Skill{}, errors.Wrapf(err, "failed to load skill %s", skillID)
	}
	return row.toSkill()
}

// ListSkills returns the full catalog sorted by skill ID for determinism.
func (s *SQLiteStore) ListSkills(ctx context.Context) ([]ctypes.Skill, error) {
	var rows []skillRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM skills ORDER BY skill_id ASC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list skills")
	}

	skills := make([]ctypes.Skill, 0, len(rows))
	for _, row := range rows {
		skill, err := row.toSkill()
		if err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// SearchSkills returns skills matching the filters, newest first. The
// category predicate narrows the scan in SQL; the text query and tag
// membership run over the decoded rows because tags are stored as JSON.
func (s *SQLiteStore) SearchSkills(ctx context.Context, filters SkillFilters) ([]ctypes.Skill, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	query := "SELECT * FROM skills WHERE 1=1"
	var args []any
	if filters.Category != "" {
		query += " AND category = ?"
		args = append(args, filters.Category)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search skills")
	}
	defer rows.Close()

	limit := filters.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}

	needle := strings.ToLower(filters.Query)
	skills := make([]ctypes.Skill, 0, limit)
	for rows.Next() {
		if len(skills) == limit {
			break
		}

		var row skillRow
		if err := rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "failed to scan skill")
		}
		skill, err := row.toSkill()
		if err != nil {
			return nil, err
		}

		if needle != "" &&
			!strings.Contains(strings.ToLower(skill.Title), needle) &&
			!strings.Contains(strings.ToLower(skill.Description), needle) {
			continue
		}
		if filters.Tag != "" && !slices.Contains(skill.Tags, filters.Tag) {
			continue
		}

		skills = append(skills, skill)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate skills")
	}

	return skills, nil
}

type installationRow struct {
	UserID           string `db:"user_id"`
	SkillID          string `db:"skill_id"`
	InstalledVersion string `db:"installed_version"`
	LastCheck        string `db:"last_check"`
}

// InstalledSkills returns the user's installation records.
func (s *SQLiteStore) InstalledSkills(ctx context.Context, userID string) ([]ctypes.Installation, error) {
	var rows []installationRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM user_skill_installations WHERE user_id = ? ORDER BY skill_id ASC", userID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list installations for user %s", userID)
	}

	installations := make([]ctypes.Installation, 0, len(rows))
	for _, row := range rows {
		lastCheck, err := time.Parse(time.RFC3339Nano, row.LastCheck)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse last_check for %s/%s", row.UserID, row.SkillID)
		}
		installations = append(installations, ctypes.Installation{
			UserID:           row.UserID,
			SkillID:          row.SkillID,
			InstalledVersion: row.InstalledVersion,
			LastCheck:        lastCheck,
		})
	}
	return installations, nil
}

// UpsertLastCheck atomically records the user's last update check. SQLite's
// single-writer lock makes the upsert safe under concurrent checks from the
// same user; last writer wins on the timestamp.
func (s *SQLiteStore) UpsertLastCheck(ctx context.Context, userID, skillID, installedVersion string, checkedAt time.Time) error {
	query := `
		INSERT INTO user_skill_installations (user_id, skill_id, installed_version, last_check)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, skill_id) DO UPDATE SET
			installed_version = excluded.installed_version,
			last_check = excluded.last_check
	`
	_, err := s.db.ExecContext(ctx, query,
		userID, skillID, installedVersion, checkedAt.UTC().Format(db.TimeFormat))
	return errors.Wrapf(err, "failed to upsert last check for %s/%s", userID, skillID)
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
