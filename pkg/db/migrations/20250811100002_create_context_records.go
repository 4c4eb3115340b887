package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/db"
)

// Migration20250811100002CreateContextRecords creates the context_records
// table. Recognized attributes are extracted into indexed columns for
// predicate search; the full attribute map is kept as JSON so unknown keys
// survive round trips.
func Migration20250811100002CreateContextRecords() db.Migration {
	return db.Migration{
		Version:     20250811100002,
		Description: "Create context_records table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS context_records (
					context_id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					session_id TEXT NOT NULL DEFAULT '',
					repo_id TEXT NOT NULL DEFAULT '',
					ticket_id TEXT NOT NULL DEFAULT '',
					context_level TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT '',
					attributes TEXT NOT NULL DEFAULT '{}',
					timestamp DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create context_records table")
			}

			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_context_records_user_id ON context_records(user_id)",
				"CREATE INDEX IF NOT EXISTS idx_context_records_repo_id ON context_records(repo_id)",
				"CREATE INDEX IF NOT EXISTS idx_context_records_ticket_id ON context_records(ticket_id)",
				"CREATE INDEX IF NOT EXISTS idx_context_records_status ON context_records(status)",
				"CREATE INDEX IF NOT EXISTS idx_context_records_timestamp ON context_records(timestamp)",
			}
			for _, idx := range indexes {
				if _, err := tx.Exec(idx); err != nil {
					return errors.Wrap(err, "failed to create context_records index")
				}
			}

			return nil
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS context_records")
			return errors.Wrap(err, "failed to drop context_records table")
		},
	}
}
