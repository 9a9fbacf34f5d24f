package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/config"
	"github.com/helios-portal/helios-dirsync/internal/db/controller/credentials"
	"github.com/helios-portal/helios-dirsync/internal/db/controller/syncrun"
	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/lease"
	"github.com/helios-portal/helios-dirsync/internal/reconcile"
	"github.com/helios-portal/helios-dirsync/internal/web"
)

const testToken = "s3cret"

type fakeTrigger struct {
	result reconcile.SyncResult
	err    error
	orgs   []string
}

func (f *fakeTrigger) RunOrganization(_ context.Context, org string) (reconcile.SyncResult, error) {
	f.orgs = append(f.orgs, org)

	if f.err != nil {
		return reconcile.SyncResult{}, f.err
	}

	res := f.result
	res.OrganizationID = org

	return res, nil
}

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	return db
}

func testConfig(token string) *config.Config {
	return &config.Config{
		Title:     "helios-dirsync-test",
		DevMode:   true,
		Webserver: config.Webserver{Port: 8080, URL: "http://localhost:8080", APIToken: token},
		Sync:      config.Sync{RunHistory: 2},
	}
}

func newService(t *testing.T, token string, trigger *fakeTrigger) (*web.Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)

	return web.New(testConfig(token), db, trigger, prometheus.NewRegistry()), db
}

func do(t *testing.T, app *fiber.App, method, target, body string, auth bool) (int, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if auth {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+testToken)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(b)
}

func TestCheckAlive(t *testing.T) {
	s, _ := newService(t, testToken, &fakeTrigger{})

	code, body := do(t, s.App, http.MethodGet, "/checkalive", "", false)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newService(t, testToken, &fakeTrigger{})

	code, _ := do(t, s.App, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPIRequiresToken(t *testing.T) {
	s, _ := newService(t, testToken, &fakeTrigger{})

	code, body := do(t, s.App, http.MethodGet, "/api/v1/organizations/acme/runs", "", false)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, body, "missing bearer token")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/acme/runs", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer wrong")

	resp, err := s.App.Test(req)
	require.NoError(t, err)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(b), "invalid bearer token")

	code, _ = do(t, s.App, http.MethodGet, "/api/v1/organizations/acme/runs", "", true)
	assert.Equal(t, http.StatusOK, code)
}

func TestAPIDisabledWithoutToken(t *testing.T) {
	s, _ := newService(t, "", &fakeTrigger{})

	code, _ := do(t, s.App, http.MethodGet, "/api/v1/organizations/acme/runs", "", true)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDirectorySettings(t *testing.T) {
	s, db := newService(t, testToken, &fakeTrigger{})
	path := "/api/v1/organizations/acme/directory"

	code, _ := do(t, s.App, http.MethodGet, path, "", true)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, s.App, http.MethodPut, path, `{"credentials":{"provider":"ldap","ldap":{"baseDn":"dc=acme"}}}`, true)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, `"failedField"`)

	code, _ = do(t, s.App, http.MethodPut, path, `{not json`, true)
	assert.Equal(t, http.StatusBadRequest, code)

	settings := `{"domain":"acme.example","credentials":{"provider":"ldap","ldap":{` +
		`"url":"ldaps://ldap.acme.example","bindDn":"cn=sync,dc=acme","bindPassword":"hunter2","baseDn":"dc=acme"}}}`

	code, body = do(t, s.App, http.MethodPut, path, settings, true)
	require.Equal(t, http.StatusOK, code, body)
	assert.NotContains(t, body, "hunter2")

	stored, err := credentials.Load(db, "acme")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stored.Credentials.LDAP.BindPassword)

	code, body = do(t, s.App, http.MethodGet, path, "", true)
	require.Equal(t, http.StatusOK, code)

	var got credentials.Settings
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "acme.example", got.Domain)
	assert.Equal(t, "***", got.Credentials.LDAP.BindPassword)

	code, body = do(t, s.App, http.MethodPut, path, body, true)
	require.Equal(t, http.StatusOK, code, body)

	stored, err = credentials.Load(db, "acme")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stored.Credentials.LDAP.BindPassword, "a redacted round trip keeps the secret")

	code, _ = do(t, s.App, http.MethodPut, "/api/v1/organizations/fresh/directory", body, true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s.App, http.MethodDelete, path, "", true)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = do(t, s.App, http.MethodDelete, path, "", true)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSync(t *testing.T) {
	trigger := &fakeTrigger{result: reconcile.SyncResult{
		RunID:   "run-1",
		Success: true,
		State:   reconcile.StateCommitted,
		Users:   reconcile.Counts{Created: 2, Total: 2},
	}}
	s, _ := newService(t, testToken, trigger)

	code, body := do(t, s.App, http.MethodPost, "/api/v1/organizations/acme/sync", "", true)
	require.Equal(t, http.StatusOK, code, body)

	var res reconcile.SyncResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	assert.Equal(t, "acme", res.OrganizationID)
	assert.Equal(t, 2, res.Users.Created)
	assert.Equal(t, []string{"acme"}, trigger.orgs)

	trigger.result = reconcile.SyncResult{Success: false, State: reconcile.StateRolledBack, Error: "upstream down"}
	code, body = do(t, s.App, http.MethodPost, "/api/v1/organizations/acme/sync", "", true)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body, "upstream down")
}

func TestSyncErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "no settings", err: credentials.ErrNotFound, want: http.StatusNotFound},
		{name: "lease held", err: lease.ErrHeld, want: http.StatusConflict},
		{name: "bad organization", err: credentials.ErrInvalidOrganization, want: http.StatusBadRequest},
		{name: "other", err: assert.AnError, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newService(t, testToken, &fakeTrigger{err: tt.err})

			code, _ := do(t, s.App, http.MethodPost, "/api/v1/organizations/acme/sync", "", true)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestRuns(t *testing.T) {
	s, db := newService(t, testToken, &fakeTrigger{})

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, syncrun.Record(db, &models.SyncRun{
			RunID:          id,
			OrganizationID: "acme",
			State:          models.SyncRunCommitted,
			Success:        true,
		}))
	}

	code, body := do(t, s.App, http.MethodGet, "/api/v1/organizations/acme/runs", "", true)
	require.Equal(t, http.StatusOK, code)

	var runs []models.SyncRun
	require.NoError(t, json.Unmarshal([]byte(body), &runs))
	assert.Len(t, runs, 2)

	code, body = do(t, s.App, http.MethodGet, "/api/v1/organizations/acme/runs?limit=5", "", true)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal([]byte(body), &runs))
	assert.Len(t, runs, 3)

	code, _ = do(t, s.App, http.MethodGet, "/api/v1/organizations/acme/runs?limit=zero", "", true)
	assert.Equal(t, http.StatusBadRequest, code)
}
