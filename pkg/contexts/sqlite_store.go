package contexts

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/planehq/contextplane/pkg/db"
	"github.com/planehq/contextplane/pkg/logger"
	ctypes "github.com/planehq/contextplane/pkg/types/contexts"
)

// SQLiteStore implements Store on a shared SQLite database. The recognized
// attributes repoID, ticketID, contextLevel, and status are extracted into
// indexed columns at write time; the remaining predicates run over the
// decoded attribute map.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a context record store on an open database handle.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// newContextID generates a record ID of the form ctx_<12 hex chars>.
func newContextID() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ctx_" + id[:12]
}

type contextRow struct {
	ContextID    string `db:"context_id"`
	UserID       string `db:"user_id"`
	SessionID    string `db:"session_id"`
	RepoID       string `db:"repo_id"`
	TicketID     string `db:"ticket_id"`
	ContextLevel string `db:"context_level"`
	Status       string `db:"status"`
	Attributes   string `db:"attributes"`
	Timestamp    string `db:"timestamp"`
}

func (r contextRow) toRecord() (ctypes.Record, error) {
	record := ctypes.Record{
		ContextID: r.ContextID,
		UserID:    r.UserID,
		SessionID: r.SessionID,
	}

	var attrMap map[string]any
	if err := json.Unmarshal([]byte(r.Attributes), &attrMap); err != nil {
		return record, errors.Wrapf(err, "failed to unmarshal attributes for record %s", r.ContextID)
	}
	attrs, err := ctypes.DecodeAttributes(attrMap)
	if err != nil {
		return record, errors.Wrapf(err, "failed to decode attributes for record %s", r.ContextID)
	}
	record.Attributes = attrs

	record.Timestamp, err = time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return record, errors.Wrapf(err, "failed to parse timestamp for record %s", r.ContextID)
	}

	return record, nil
}

// Save writes a new record. The ID and timestamp are generated when unset.
// Records are immutable; saving never overwrites an existing record.
func (s *SQLiteStore) Save(ctx context.Context, record ctypes.Record) (ctypes.Record, error) {
	if err := record.Attributes.Validate(); err != nil {
		return ctypes.Record{}, err
	}

	if record.ContextID == "" {
		record.ContextID = newContextID()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	attrsJSON, err := json.Marshal(record.Attributes.ToMap())
	if err != nil {
		return ctypes.Record{}, errors.Wrap(err, "failed to marshal attributes")
	}

	query := `
		INSERT INTO context_records (
			context_id, user_id, session_id, repo_id, ticket_id,
			context_level, status, attributes, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		record.ContextID, record.UserID, record.SessionID,
		record.Attributes.RepoID, record.Attributes.TicketID,
		string(record.Attributes.ContextLevel), string(record.Attributes.Status),
		string(attrsJSON), record.Timestamp.UTC().Format(db.TimeFormat))
	if err != nil {
		return ctypes.Record{}, errors.Wrapf(err, "failed to save context record %s", record.ContextID)
	}

	logger.G(ctx).WithFields(map[string]any{
		"contextId":    record.ContextID,
		"userId":       record.UserID,
		"contextLevel": record.Attributes.ContextLevel,
		"status":       record.Attributes.Status,
	}).Info("context record stored")

	return record, nil
}

// Get returns a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, contextID string) (ctypes.Record, error) {
	var row contextRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM context_records WHERE context_id = ?", contextID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ctypes.Record{}, errors.Wrapf(ErrRecordNotFound, "record %s", contextID)
		}
		return ctypes.Record{}, errors.Wrapf(err, "failed to load context record %s", contextID)
	}
	return row.toRecord()
}

// Search applies all supplied filters with AND semantics and returns the
// newest matching records first, truncated to the effective limit. The
// indexed predicates narrow the scan in SQL; file path, AI client, and
// free-text query run over the decoded attributes.
func (s *SQLiteStore) Search(ctx context.Context, filters Filters) (*SearchResult, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	query := "SELECT * FROM context_records WHERE 1=1"
	var args []any
	if filters.RepoID != "" {
		query += " AND repo_id = ?"
		args = append(args, filters.RepoID)
	}
	if filters.TicketID != "" {
		query += " AND ticket_id = ?"
		args = append(args, filters.TicketID)
	}
	if filters.ContextLevel != "" {
		query += " AND context_level = ?"
		args = append(args, filters.ContextLevel)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search context records")
	}
	defer rows.Close()

	limit := filters.EffectiveLimit()
	records := make([]ctypes.Record, 0, limit)
	for rows.Next() {
		if len(records) == limit {
			break
		}

		var row contextRow
		if err := rows.StructScan(&row); err != nil {
			return nil, errors.Wrap(err, "failed to scan context record")
		}

		record, err := row.toRecord()
		if err != nil {
			// A corrupt attribute blob should not sink the whole search
			logger.G(ctx).WithError(err).WithField("contextId", row.ContextID).
				Warn("skipping undecodable context record")
			continue
		}

		if filters.matches(record.Attributes) {
			records = append(records, record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate context records")
	}

	return &SearchResult{
		Count:   len(records),
		Filters: filters.Echo(),
		Records: records,
	}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
