// Package contexts defines the context record types: stored snapshots of a
// user's work session state with a semi-structured attribute map. The map is
// modeled as a typed struct with a fixed set of recognized optional fields;
// unrecognized keys are preserved but not filterable.
package contexts

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Level is the scope a context record applies to.
type Level string

const (
	LevelGlobal  Level = "global"
	LevelProject Level = "project"
	LevelTicket  Level = "ticket"
)

// Valid reports whether the level is one of the recognized values.
func (l Level) Valid() bool {
	switch l {
	case LevelGlobal, LevelProject, LevelTicket:
		return true
	}
	return false
}

// Status is the workflow state of the work captured by a record. The search
// engine treats these as opaque filter values; transition legality is the
// record producer's concern.
type Status string

const (
	StatusNotStarted  Status = "not_started"
	StatusInProgress  Status = "in_progress"
	StatusBlocked     Status = "blocked"
	StatusNeedsReview Status = "needs_review"
	StatusCompleted   Status = "completed"
)

// Valid reports whether the status is one of the recognized values.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusNeedsReview, StatusCompleted:
		return true
	}
	return false
}

// FileChange describes a file touched during the session.
type FileChange struct {
	Path   string `json:"path" mapstructure:"path"`
	Type   string `json:"type,omitempty" mapstructure:"type"`
	Action string `json:"action,omitempty" mapstructure:"action"`
}

// Turn is a single entry in a record's conversation history.
type Turn struct {
	Role    string `json:"role" mapstructure:"role"`
	Content string `json:"content" mapstructure:"content"`
}

// Attributes is the recognized portion of a record's attribute map. Extra
// holds keys the schema does not know about so they round-trip through
// storage unchanged.
type Attributes struct {
	RepoID              string         `json:"repoID,omitempty" mapstructure:"repoID"`
	TicketID            string         `json:"ticketID,omitempty" mapstructure:"ticketID"`
	ContextLevel        Level          `json:"contextLevel,omitempty" mapstructure:"contextLevel"`
	AIClientTypes       []string       `json:"AI_Client_type,omitempty" mapstructure:"AI_Client_type"`
	Status              Status         `json:"status,omitempty" mapstructure:"status"`
	BlockedBy           string         `json:"blockedBy,omitempty" mapstructure:"blockedBy"`
	Files               []FileChange   `json:"files,omitempty" mapstructure:"files"`
	ConversationHistory []Turn         `json:"conversationHistory,omitempty" mapstructure:"conversationHistory"`
	Details             string         `json:"details,omitempty" mapstructure:"details"`
	Extra               map[string]any `json:"-" mapstructure:",remain"`
}

// DecodeAttributes converts a semi-structured attribute map into a typed
// Attributes value. Unrecognized keys land in Extra rather than failing.
func DecodeAttributes(m map[string]any) (Attributes, error) {
	var attrs Attributes
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &attrs,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Attributes{}, errors.Wrap(err, "failed to build attribute decoder")
	}
	if err := decoder.Decode(m); err != nil {
		return Attributes{}, errors.Wrap(err, "failed to decode attributes")
	}
	return attrs, nil
}

// Validate checks the enum-valued fields. All violations are reported
// together rather than one at a time.
func (a Attributes) Validate() error {
	var result *multierror.Error
	if a.ContextLevel != "" && !a.ContextLevel.Valid() {
		result = multierror.Append(result, errors.Errorf("unrecognized contextLevel: %q", a.ContextLevel))
	}
	if a.Status != "" && !a.Status.Valid() {
		result = multierror.Append(result, errors.Errorf("unrecognized status: %q", a.Status))
	}
	return result.ErrorOrNil()
}

// ToMap rebuilds the full attribute map, recognized fields plus preserved
// unknown keys, for storage.
func (a Attributes) ToMap() map[string]any {
	m := make(map[string]any, len(a.Extra)+9)
	for k, v := range a.Extra {
		m[k] = v
	}
	if a.RepoID != "" {
		m["repoID"] = a.RepoID
	}
	if a.TicketID != "" {
		m["ticketID"] = a.TicketID
	}
	if a.ContextLevel != "" {
		m["contextLevel"] = string(a.ContextLevel)
	}
	if len(a.AIClientTypes) > 0 {
		m["AI_Client_type"] = a.AIClientTypes
	}
	if a.Status != "" {
		m["status"] = string(a.Status)
	}
	if a.BlockedBy != "" {
		m["blockedBy"] = a.BlockedBy
	}
	if len(a.Files) > 0 {
		m["files"] = a.Files
	}
	if len(a.ConversationHistory) > 0 {
		m["conversationHistory"] = a.ConversationHistory
	}
	if a.Details != "" {
		m["details"] = a.Details
	}
	return m
}

// Record is one stored interaction. Records are immutable once written; new
// interactions create new records.
type Record struct {
	ContextID  string     `json:"contextId" db:"context_id"`
	UserID     string     `json:"userId" db:"user_id"`
	SessionID  string     `json:"sessionId,omitempty" db:"session_id"`
	Attributes Attributes `json:"attributes"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
}
