// Package migrations contains all database migrations for contextplane.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/planehq/contextplane/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20250811100000CreateSkills(),
		Migration20250811100001CreateInstallations(),
		Migration20250811100002CreateContextRecords(),
	}
}
