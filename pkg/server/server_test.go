package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planehq/contextplane/pkg/catalog"
	"github.com/planehq/contextplane/pkg/contexts"
	"github.com/planehq/contextplane/pkg/db"
	"github.com/planehq/contextplane/pkg/db/migrations"
	"github.com/planehq/contextplane/pkg/suggest"
	ctypes "github.com/planehq/contextplane/pkg/types/catalog"
	"github.com/planehq/contextplane/pkg/updates"
)

type stubProvider struct {
	vector []float64
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return p.vector, nil
}

func newTestServer(t *testing.T) (*Server, *catalog.SQLiteStore, *contexts.SQLiteStore) {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "contextplane.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	runner := db.NewMigrationRunner(database)
	require.NoError(t, runner.Run(ctx, migrations.All()))

	skills := catalog.NewSQLiteStore(database)
	records := contexts.NewSQLiteStore(database)

	suggestions := suggest.NewService(skills, &stubProvider{vector: []float64{1, 0}})
	updateChecks := updates.NewService(skills)

	s, err := NewServer(&Config{Host: "localhost", Port: 8080}, suggestions, updateChecks, skills, records)
	require.NoError(t, err)
	return s, skills, records
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{Host: "localhost", Port: 8080}).Validate())
	assert.Error(t, (&Config{Host: "", Port: 8080}).Validate())
	assert.Error(t, (&Config{Host: "localhost", Port: 0}).Validate())
	assert.Error(t, (&Config{Host: "localhost", Port: 70000}).Validate())
}

func TestHandleHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleSuggest(t *testing.T) {
	s, skills, _ := newTestServer(t)
	now := time.Now().UTC()
	require.NoError(t, skills.SaveSkill(context.Background(), ctypes.Skill{
		SkillID:     "webapp-testing",
		Title:       "Web Application Testing",
		Description: "End to end browser testing",
		Category:    "testing",
		Version:     "1.0.0",
		Embedding:   []float64{1, 0},
		CreatedAt:   now,
		UpdatedAt:   now,
	}))

	rec := doJSON(t, s, "POST", "/api/skills/suggest", map[string]any{
		"taskDescription": "help me test my web application",
		"userId":          "user-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp suggest.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "embedding", resp.Method)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "webapp-testing", resp.Suggestions[0].SkillID)
}

func TestHandleSuggestRequiresTaskDescription(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/skills/suggest", map[string]any{"userId": "user-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdates(t *testing.T) {
	s, skills, _ := newTestServer(t)
	now := time.Now().UTC()
	require.NoError(t, skills.SaveSkill(context.Background(), ctypes.Skill{
		SkillID:   "pdf",
		Title:     "PDF Tools",
		Category:  "file-processing",
		Version:   "1.0.0",
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now,
	}))

	rec := doJSON(t, s, "POST", "/api/skills/updates", map[string]any{
		"userId":          "user-1",
		"installedSkills": []map[string]string{{"skillId": "pdf", "version": "0.8.0"}},
		"lastCheck":       now.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp updates.CheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.AvailableUpdates, 1)
	assert.Equal(t, "1.0.0", resp.AvailableUpdates[0].LatestVersion)
}

func TestHandleUpdatesRequiresUserID(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/skills/updates", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetSkill(t *testing.T) {
	s, skills, _ := newTestServer(t)
	now := time.Now().UTC()
	require.NoError(t, skills.SaveSkill(context.Background(), ctypes.Skill{
		SkillID:   "pdf",
		Title:     "PDF Tools",
		Version:   "1.0.0",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	rec := doJSON(t, s, "GET", "/api/skills/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var skill ctypes.Skill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &skill))
	assert.Equal(t, "PDF Tools", skill.Title)

	rec = doJSON(t, s, "GET", "/api/skills/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateAndGetContext(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/contexts", map[string]any{
		"userId":    "user-1",
		"sessionId": "session-1",
		"attributes": map[string]any{
			"repoID": "repo_abc123",
			"status": "in_progress",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	contextID, _ := created["contextId"].(string)
	assert.Regexp(t, `^ctx_[0-9a-f]{12}$`, contextID)

	rec = doJSON(t, s, "GET", "/api/contexts/"+contextID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, "GET", "/api/contexts/ctx_000000000000", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleCreateContextRejectsInvalidAttributes(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, "POST", "/api/contexts", map[string]any{
		"userId":     "user-1",
		"attributes": map[string]any{"status": "flying"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchContexts(t *testing.T) {
	s, _, records := newTestServer(t)
	ctx := context.Background()

	for _, status := range []string{"blocked", "completed"} {
		attrs := map[string]any{"repoID": "repo_abc123", "status": status}
		rec := doJSON(t, s, "POST", "/api/contexts", map[string]any{
			"userId":     "user-1",
			"attributes": attrs,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	result, err := records.Search(ctx, contexts.Filters{})
	require.NoError(t, err)
	require.Equal(t, 2, result.Count)

	rec := doJSON(t, s, "GET", "/api/contexts/search?status=blocked&repoID=repo_abc123", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp contexts.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "repo_abc123", resp.Records[0].Attributes.RepoID)
}

func TestHandleSearchContextsInvalidFilters(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := doJSON(t, s, "GET", "/api/contexts/search?status=flying", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, "GET", "/api/contexts/search?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, "GET", "/api/contexts/search?limit=101", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func saveCatalogSkill(t *testing.T, skills *catalog.SQLiteStore, id, title, description, category string, tags []string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, skills.SaveSkill(context.Background(), ctypes.Skill{
		SkillID:     id,
		Title:       title,
		Description: description,
		Category:    category,
		Tags:        tags,
		Version:     "1.0.0",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}))
}

func TestHandleListSkills(t *testing.T) {
	s, skills, _ := newTestServer(t)
	base := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)

	saveCatalogSkill(t, skills, "older", "Older Skill", "d", "general", nil, base)
	saveCatalogSkill(t, skills, "newer", "Newer Skill", "d", "general", nil, base.Add(time.Minute))

	rec := doJSON(t, s, "GET", "/api/skills", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int            `json:"count"`
		Filters map[string]any `json:"filters"`
		Data    []ctypes.Skill `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Empty(t, resp.Filters)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "newer", resp.Data[0].SkillID)

	rec = doJSON(t, s, "GET", "/api/skills?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	rec = doJSON(t, s, "GET", "/api/skills?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, "GET", "/api/skills?limit=101", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchSkills(t *testing.T) {
	s, skills, _ := newTestServer(t)
	base := time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC)

	saveCatalogSkill(t, skills, "webapp-testing", "Web Application Testing",
		"End to end browser testing", "testing", []string{"testing", "playwright"}, base)
	saveCatalogSkill(t, skills, "api-testing", "API Testing",
		"contract testing", "testing", []string{"testing", "api"}, base.Add(time.Minute))
	saveCatalogSkill(t, skills, "frontend-design", "Frontend Design",
		"component design", "design", []string{"frontend"}, base.Add(2*time.Minute))

	rec := doJSON(t, s, "GET", "/api/skills/search?query=TESTING&category=testing&tag=playwright", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count   int            `json:"count"`
		Filters map[string]any `json:"filters"`
		Data    []ctypes.Skill `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "webapp-testing", resp.Data[0].SkillID)
	assert.Equal(t, "TESTING", resp.Filters["query"])
	assert.Equal(t, "testing", resp.Filters["category"])
	assert.Equal(t, "playwright", resp.Filters["tag"])

	// Newest first when only category narrows the result
	rec = doJSON(t, s, "GET", "/api/skills/search?category=testing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "api-testing", resp.Data[0].SkillID)

	rec = doJSON(t, s, "GET", "/api/skills/search?limit=101", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteJSONResponseEncodeFailure(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.writeJSONResponse(rec, math.NaN())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")
}
