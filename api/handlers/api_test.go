package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/invite-bot/config"
	"github.com/linesmerrill/invite-bot/databases"
	"github.com/linesmerrill/invite-bot/models"
)

const testToken = "ops-token"

func newApp(t *testing.T, table string) *App {
	t.Helper()
	dir := t.TempDir()
	if table != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "codes.csv"), []byte(table), 0o644))
	}
	a := &App{
		Config:      config.Config{AdminAPIToken: testToken},
		Invites:     databases.NewInviteCSVDatabase(filepath.Join(dir, "codes.csv")),
		Quota:       databases.NewQuotaDatabase(filepath.Join(dir, "botstate.json")),
		Eligibility: databases.NewEligibilityDatabase(filepath.Join(dir, "whitelist.json")),
	}
	require.NoError(t, a.Quota.Load(context.Background()))
	require.NoError(t, a.Eligibility.Load(context.Background()))
	a.Initialize()
	return a
}

func executeRequest(a *App, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	a.Router.ServeHTTP(rr, req)
	return rr
}

func authorized(method, url string) *http.Request {
	req, _ := http.NewRequest(method, url, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t, "")
	req, _ := http.NewRequest("GET", "/asdf", nil)
	response := executeRequest(a, req)

	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	a := newApp(t, "")
	req, _ := http.NewRequest("GET", "/health", nil)
	response := executeRequest(a, req)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.JSONEq(t, `{"alive": true}`, response.Body.String())
	assert.NotEmpty(t, response.Header().Get("X-Request-ID"))
}

func TestStatsUnauthorized(t *testing.T) {
	a := newApp(t, "")
	req, _ := http.NewRequest("GET", "/api/v1/stats", nil)
	response := executeRequest(a, req)

	assert.Equal(t, http.StatusUnauthorized, response.Code)
	assert.Equal(t, `{"error": "unauthorized"}`, response.Body.String())
}

func TestStatsHandler(t *testing.T) {
	a := newApp(t, "code,userid\nA,u1\nB,\n")
	require.NoError(t, a.Quota.IncreaseBy(context.Background(), 5, "admin"))

	response := executeRequest(a, authorized("GET", "/api/v1/stats"))
	require.Equal(t, http.StatusOK, response.Code)

	var stats models.ClaimStats
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Claimed)
	assert.Equal(t, 5, stats.Limit)
	assert.Equal(t, 1, stats.Available)
	assert.Equal(t, "admin", stats.LastUpdatedBy)
	assert.Empty(t, stats.WhitelistedRoles)
}

func TestStatsHandlerStoreError(t *testing.T) {
	a := newApp(t, "")
	a.Invites = databases.NewInviteCSVDatabase(t.TempDir())
	a.Initialize()

	response := executeRequest(a, authorized("GET", "/api/v1/stats"))
	assert.Equal(t, http.StatusInternalServerError, response.Code)
	assert.True(t, strings.HasPrefix(response.Body.String(), `{"response": "failed to read invite stats`))
}

func TestExportHandler(t *testing.T) {
	a := newApp(t, "code,userid\nA,u1\nB,\n")

	response := executeRequest(a, authorized("GET", "/api/v1/export"))
	require.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "text/csv; charset=utf-8", response.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="invites_export_\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}\.csv"$`, response.Header().Get("Content-Disposition"))
	assert.Equal(t, "code,userid\nA,u1\nB,\n", response.Body.String())
}

func TestExportHandlerEmpty(t *testing.T) {
	a := newApp(t, "")

	response := executeRequest(a, authorized("GET", "/api/v1/export"))
	assert.Equal(t, http.StatusNotFound, response.Code)
}

func TestExportWrongMethod(t *testing.T) {
	a := newApp(t, "code,userid\nA,\n")

	response := executeRequest(a, authorized("POST", "/api/v1/export"))
	assert.Equal(t, http.StatusMethodNotAllowed, response.Code)
}
