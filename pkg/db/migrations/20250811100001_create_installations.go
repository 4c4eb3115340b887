package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/db"
)

// Migration20250811100001CreateInstallations creates the per-user skill
// installation table. The (user_id, skill_id) pair is the primary key so
// last-check updates can use an atomic upsert.
func Migration20250811100001CreateInstallations() db.Migration {
	return db.Migration{
		Version:     20250811100001,
		Description: "Create user_skill_installations table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS user_skill_installations (
					user_id TEXT NOT NULL,
					skill_id TEXT NOT NULL,
					installed_version TEXT NOT NULL DEFAULT '0.0.0',
					last_check DATETIME NOT NULL,
					PRIMARY KEY (user_id, skill_id)
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create user_skill_installations table")
			}

			if _, err := tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_installations_user_id
				ON user_skill_installations(user_id)
			`); err != nil {
				return errors.Wrap(err, "failed to create user_id index")
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS user_skill_installations")
			return errors.Wrap(err, "failed to drop user_skill_installations table")
		},
	}
}
