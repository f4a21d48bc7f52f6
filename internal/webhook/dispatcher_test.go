package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clavrr/clavr/internal/config"
	"github.com/clavrr/clavr/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.NewDBConnection(config.DatabaseConfig{Type: config.SqliteDBType})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))
	s := store.New(db, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestDispatcher(s *store.Store) *Dispatcher {
	return NewDispatcher(s.Webhooks, config.WebhookConfig{
		Timeout:        2 * time.Second,
		MaxElapsedTime: 5 * time.Second,
	}, nil, nil, nil)
}

func createSubscription(t *testing.T, s *store.Store, url string, events []string) *store.WebhookSubscription {
	t.Helper()
	ctx := context.Background()
	user := &store.User{Email: "hooks@example.com"}
	require.NoError(t, s.Users.Create(ctx, user))
	sub := &store.WebhookSubscription{
		UserID: user.ID,
		URL:    url,
		Events: events,
		Secret: NewSecret(),
	}
	require.NoError(t, s.Webhooks.Create(ctx, sub))
	return sub
}

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"type":"task.created"}`)
	sig := Sign("s3cret", body)
	assert.Contains(t, sig, "sha256=")
	assert.True(t, VerifySignature("s3cret", body, sig))
	assert.False(t, VerifySignature("other", body, sig))
	assert.False(t, VerifySignature("s3cret", []byte(`{"type":"tampered"}`), sig))
}

func TestKnownEventType(t *testing.T) {
	assert.True(t, KnownEventType(EventTaskCreated))
	assert.True(t, KnownEventType("*"))
	assert.False(t, KnownEventType("task.deleted"))
}

func TestDeliverSuccess(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newTestStore(t)
	sub := createSubscription(t, s, srv.URL, []string{EventTaskCreated})
	d := newTestDispatcher(s)

	ctx := context.Background()
	event := Event{
		Type:       EventTaskCreated,
		UserID:     sub.UserID,
		OccurredAt: time.Now().UTC(),
		Payload:    map[string]string{"title": "buy milk"},
	}
	require.NoError(t, d.Deliver(ctx, sub, event))

	assert.Equal(t, EventTaskCreated, gotHeader.Get(HeaderEvent))
	assert.NotEmpty(t, gotHeader.Get(HeaderDelivery))
	assert.True(t, VerifySignature(sub.Secret, gotBody, gotHeader.Get(HeaderSignature)))

	var body deliveryBody
	require.NoError(t, json.Unmarshal(gotBody, &body))
	assert.Equal(t, gotHeader.Get(HeaderDelivery), body.ID)
	assert.Equal(t, EventTaskCreated, body.Type)

	updated, err := s.Webhooks.Get(ctx, sub.UserID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.FailureCount)
	assert.NotNil(t, updated.LastTriggeredAt)

	deliveries, err := s.Webhooks.ListDeliveries(ctx, sub.ID, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.True(t, deliveries[0].Success)
	assert.Equal(t, http.StatusNoContent, deliveries[0].StatusCode)
	assert.Equal(t, 1, deliveries[0].Attempts)
}

func TestDeliverClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := newTestStore(t)
	sub := createSubscription(t, s, srv.URL, []string{"*"})
	d := newTestDispatcher(s)

	ctx := context.Background()
	err := d.Deliver(ctx, sub, Event{Type: EventQueryExecuted, UserID: sub.UserID})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	updated, err := s.Webhooks.Get(ctx, sub.UserID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.FailureCount)
	assert.NotEmpty(t, updated.LastError)

	deliveries, err := s.Webhooks.ListDeliveries(ctx, sub.ID, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.False(t, deliveries[0].Success)
	assert.Equal(t, http.StatusNotFound, deliveries[0].StatusCode)
}

func TestDeliverRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestStore(t)
	sub := createSubscription(t, s, srv.URL, []string{"*"})
	d := NewDispatcher(s.Webhooks, config.WebhookConfig{
		Timeout:        2 * time.Second,
		MaxElapsedTime: 30 * time.Second,
	}, nil, nil, nil)

	ctx := context.Background()
	require.NoError(t, d.Deliver(ctx, sub, Event{Type: EventExportReady, UserID: sub.UserID}))
	assert.Equal(t, int32(3), calls.Load())

	deliveries, err := s.Webhooks.ListDeliveries(ctx, sub.ID, 10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.True(t, deliveries[0].Success)
	assert.Equal(t, 3, deliveries[0].Attempts)
}

func TestRepeatedFailuresDisableSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	s := newTestStore(t)
	s.Webhooks.SetFailureThreshold(2)
	sub := createSubscription(t, s, srv.URL, []string{"*"})
	d := newTestDispatcher(s)

	ctx := context.Background()
	assert.Error(t, d.Deliver(ctx, sub, Event{Type: EventQueryExecuted, UserID: sub.UserID}))
	assert.Error(t, d.Deliver(ctx, sub, Event{Type: EventQueryExecuted, UserID: sub.UserID}))

	updated, err := s.Webhooks.Get(ctx, sub.UserID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, store.WebhookStatusFailed, updated.Status)

	// Publish no longer reaches the failed subscription.
	d.Publish(ctx, Event{Type: EventQueryExecuted, UserID: sub.UserID})
	deliveries, err := s.Webhooks.ListDeliveries(ctx, sub.ID, 10)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)
}

func TestPublishMatchesSubscribedEventsOnly(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newTestStore(t)
	sub := createSubscription(t, s, srv.URL, []string{EventTaskCreated})
	d := newTestDispatcher(s)

	ctx := context.Background()
	d.Publish(ctx, Event{Type: EventExportReady, UserID: sub.UserID})
	assert.Equal(t, int32(0), calls.Load())

	d.Publish(ctx, Event{Type: EventTaskCreated, UserID: sub.UserID})
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetryableStatus(t *testing.T) {
	assert.True(t, retryableStatus(http.StatusInternalServerError))
	assert.True(t, retryableStatus(http.StatusBadGateway))
	assert.True(t, retryableStatus(http.StatusTooManyRequests))
	assert.True(t, retryableStatus(http.StatusRequestTimeout))
	assert.False(t, retryableStatus(http.StatusBadRequest))
	assert.False(t, retryableStatus(http.StatusNotFound))
	assert.False(t, retryableStatus(http.StatusUnauthorized))
}
