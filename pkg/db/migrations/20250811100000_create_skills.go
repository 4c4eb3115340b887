package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/db"
)

// Migration20250811100000CreateSkills creates the skills catalog table.
func Migration20250811100000CreateSkills() db.Migration {
	return db.Migration{
		Version:     20250811100000,
		Description: "Create skills table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skills (
					skill_id TEXT PRIMARY KEY,
					title TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					content TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT 'general',
					tags TEXT NOT NULL DEFAULT '[]',
					version TEXT NOT NULL DEFAULT '1.0.0',
					embedding TEXT,
					visibility_scope TEXT NOT NULL DEFAULT 'global',
					usage_count INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL DEFAULT '',
					source_url TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create skills table")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_skills_category ON skills(category)
			`); err != nil {
				return errors.Wrap(err, "failed to create category index")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_skills_created_at ON skills(created_at)
			`); err != nil {
				return errors.Wrap(err, "failed to create created_at index")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS skills")
			return errors.Wrap(err, "failed to drop skills table")
		},
	}
}
