package contexts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttributes(t *testing.T) {
	m := map[string]any{
		"repoID":         "repo_abc123",
		"ticketID":       "JIRA-42",
		"contextLevel":   "ticket",
		"AI_Client_type": []any{"claude-code", "cursor"},
		"status":         "blocked",
		"blockedBy":      "JIRA-41",
		"files": []any{
			map[string]any{"path": "src/auth/login.go", "type": "go", "action": "modified"},
		},
		"details":    "Implementing OAuth login flow",
		"customKey":  "custom-value",
		"anotherKey": 7,
	}

	attrs, err := DecodeAttributes(m)
	require.NoError(t, err)

	assert.Equal(t, "repo_abc123", attrs.RepoID)
	assert.Equal(t, "JIRA-42", attrs.TicketID)
	assert.Equal(t, LevelTicket, attrs.ContextLevel)
	assert.Equal(t, []string{"claude-code", "cursor"}, attrs.AIClientTypes)
	assert.Equal(t, StatusBlocked, attrs.Status)
	assert.Equal(t, "JIRA-41", attrs.BlockedBy)
	require.Len(t, attrs.Files, 1)
	assert.Equal(t, "src/auth/login.go", attrs.Files[0].Path)
	assert.Equal(t, "Implementing OAuth login flow", attrs.Details)

	// Unknown keys are preserved, not dropped
	assert.Equal(t, "custom-value", attrs.Extra["customKey"])
	assert.Contains(t, attrs.Extra, "anotherKey")
}

func TestDecodeAttributesEmpty(t *testing.T) {
	attrs, err := DecodeAttributes(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, attrs.RepoID)
	assert.Empty(t, attrs.Files)
}

func TestAttributesValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		attrs := Attributes{ContextLevel: LevelProject, Status: StatusInProgress}
		assert.NoError(t, attrs.Validate())
	})

	t.Run("empty enums are valid", func(t *testing.T) {
		assert.NoError(t, Attributes{}.Validate())
	})

	t.Run("bad level and status reported together", func(t *testing.T) {
		attrs := Attributes{ContextLevel: "galaxy", Status: "on_fire"}
		err := attrs.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "galaxy")
		assert.Contains(t, err.Error(), "on_fire")
	})
}

func TestAttributesToMapRoundTrip(t *testing.T) {
	attrs := Attributes{
		RepoID:        "repo_x",
		ContextLevel:  LevelGlobal,
		AIClientTypes: []string{"claude-code"},
		Details:       "session notes",
		Extra:         map[string]any{"customKey": "v"},
	}

	m := attrs.ToMap()
	assert.Equal(t, "repo_x", m["repoID"])
	assert.Equal(t, "global", m["contextLevel"])
	assert.Equal(t, "v", m["customKey"])
	assert.NotContains(t, m, "ticketID")

	decoded, err := DecodeAttributes(m)
	require.NoError(t, err)
	assert.Equal(t, attrs.RepoID, decoded.RepoID)
	assert.Equal(t, attrs.ContextLevel, decoded.ContextLevel)
	assert.Equal(t, attrs.AIClientTypes, decoded.AIClientTypes)
}

func TestLevelAndStatusValid(t *testing.T) {
	assert.True(t, LevelGlobal.Valid())
	assert.True(t, LevelProject.Valid())
	assert.True(t, LevelTicket.Valid())
	assert.False(t, Level("workspace").Valid())

	for _, s := range []Status{StatusNotStarted, StatusInProgress, StatusBlocked, StatusNeedsReview, StatusCompleted} {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("done").Valid())
}
