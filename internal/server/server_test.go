package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clavrr/clavr/internal/assistant"
	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/export"
	"github.com/clavrr/clavr/internal/parser"
	"github.com/clavrr/clavr/internal/store"
)

type testEnv struct {
	server *Server
	store  *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := store.NewDBConnection(config.DatabaseConfig{Type: config.SqliteDBType})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	s := store.New(db, nil)
	t.Cleanup(func() { _ = s.Close() })

	router := parser.NewRouter(config.ClassifierConfig{
		PatternThreshold:  0.85,
		SemanticThreshold: 0.75,
		LLMThreshold:      0.5,
	}, nil, nil, nil)
	a := assistant.New(router, s, assistant.Options{})
	exports := export.NewManager(s, t.TempDir(), nil, nil, nil)

	srv := New(config.ServerConfig{SessionTTL: time.Hour}, s, a, exports, Options{})
	return &testEnv{server: srv, store: s}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: email})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[loginResponse](t, rec).Token
}

func TestLoginProvisionsAccount(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "alice@example.com", Name: "Alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[loginResponse](t, rec)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.UserID)

	// Second login reuses the account but issues a fresh session.
	rec = e.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[loginResponse](t, rec)
	assert.Equal(t, resp.UserID, again.UserID)
	assert.NotEqual(t, resp.Token, again.Token)
}

func TestLoginValidation(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{Email: "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/tasks", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndsSession(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueryEndpoint(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/v1/query", token, queryRequest{Query: "remind me to water the plants by tomorrow"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[assistant.Result](t, rec)
	assert.Equal(t, parser.IntentTaskCreate, result.Intent)

	// The task landed in the store.
	rec = e.do(t, http.MethodGet, "/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]store.Task](t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, "water the plants", tasks[0].Title)

	// And in the query history.
	rec = e.do(t, http.MethodGet, "/v1/queries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]store.QueryRecord](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, string(parser.IntentTaskCreate), history[0].Intent)

	rec = e.do(t, http.MethodPost, "/v1/query", token, queryRequest{Query: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskCRUD(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/v1/tasks", token, taskRequest{Title: "buy milk", Notes: "oat"})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[store.Task](t, rec)
	assert.Equal(t, "buy milk", task.Title)
	require.NotEmpty(t, task.ID)

	rec = e.do(t, http.MethodGet, "/v1/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	rec = e.do(t, http.MethodPut, "/v1/tasks/"+task.ID, token, taskRequest{Title: "buy oat milk", Due: &due})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[store.Task](t, rec)
	assert.Equal(t, "buy oat milk", updated.Title)
	require.NotNil(t, updated.Due)

	rec = e.do(t, http.MethodPost, "/v1/tasks/"+task.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[store.Task](t, rec)
	assert.True(t, done.Done)

	rec = e.do(t, http.MethodDelete, "/v1/tasks/"+task.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/tasks/"+task.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasksAreScopedToOwner(t *testing.T) {
	e := newTestEnv(t)
	alice := e.login(t, "alice@example.com")
	bob := e.login(t, "bob@example.com")

	rec := e.do(t, http.MethodPost, "/v1/tasks", alice, taskRequest{Title: "alice's task"})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[store.Task](t, rec)

	rec = e.do(t, http.MethodGet, "/v1/tasks/"+task.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/tasks", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]store.Task](t, rec))
}

func TestWebhookSubscriptions(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/v1/webhooks", token, webhookRequest{
		URL:    "https://example.com/hook",
		Events: []string{"task.created", "export.ready"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[webhookCreatedResponse](t, rec)
	assert.NotEmpty(t, created.Secret)

	// The secret is not repeated on reads.
	rec = e.do(t, http.MethodGet, "/v1/webhooks/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), created.Secret)

	rec = e.do(t, http.MethodGet, "/v1/webhooks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[[]store.WebhookSubscription](t, rec)
	require.Len(t, subs, 1)
	assert.Equal(t, store.WebhookStatusActive, subs[0].Status)

	rec = e.do(t, http.MethodGet, "/v1/webhooks/"+created.ID+"/deliveries", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/v1/webhooks/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWebhookRejectsUnknownEvent(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/v1/webhooks", token, webhookRequest{
		URL:    "https://example.com/hook",
		Events: []string{"task.exploded"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown event type")
}

func TestExportLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.login(t, "alice@example.com")

	rec := e.do(t, http.MethodPost, "/v1/exports", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	job := decode[export.Job](t, rec)
	// Inline manager finishes before responding.
	assert.Equal(t, export.StatusReady, job.Status)

	rec = e.do(t, http.MethodGet, "/v1/exports/"+job.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/v1/exports/"+job.ID+"/archive", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	// Another user cannot see the export.
	bob := e.login(t, "bob@example.com")
	rec = e.do(t, http.MethodGet, "/v1/exports/"+job.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Readiness is false until Start flips it.
	rec = e.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	e.server.health.SetReady(true)
	rec = e.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, healthStatusOK, resp.Checks["database"])
}
