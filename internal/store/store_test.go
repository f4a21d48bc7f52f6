package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clavrr/clavr/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := NewDBConnection(config.DatabaseConfig{Type: config.SqliteDBType})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	s := New(db, nil)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func createTestUser(t *testing.T, s *Store, email string) *User {
	t.Helper()

	user := &User{Email: email}
	require.NoError(t, s.Users.Create(context.Background(), user))
	require.NotEmpty(t, user.ID)
	return user
}

func TestUserRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "alice@example.com")
	assert.Equal(t, "default", user.GoogleAccount)

	got, err := s.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	got, err = s.Users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.Users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Users.Create(ctx, &User{})
	assert.Error(t, err)
}

func TestUserDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "bob@example.com")

	require.NoError(t, s.Tasks.Create(ctx, &Task{UserID: user.ID, Title: "buy milk"}))
	require.NoError(t, s.Queries.Record(ctx, &QueryRecord{UserID: user.ID, Query: "show my inbox", Intent: "email.search", Stage: "pattern", Confidence: 0.9, Success: true}))

	sub := &WebhookSubscription{UserID: user.ID, URL: "https://example.com/hook", Events: []string{"*"}, Secret: "s"}
	require.NoError(t, s.Webhooks.Create(ctx, sub))
	require.NoError(t, s.Webhooks.RecordDelivery(ctx, &WebhookDelivery{SubscriptionID: sub.ID, Event: "task.created", StatusCode: 200, Attempts: 1, Success: true}))

	require.NoError(t, s.Users.Delete(ctx, user.ID))

	_, err := s.Users.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	tasks, err := s.Tasks.List(ctx, user.ID, TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)

	subs, err := s.Webhooks.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	records, err := s.Queries.ListByUser(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, s.Users.Delete(ctx, user.ID), ErrNotFound)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "carol@example.com")

	token, err := NewSessionToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := NewSessionToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	session := &Session{Token: token, UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Sessions.Create(ctx, session))

	got, err := s.Sessions.GetByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, s.Sessions.Delete(ctx, token))
	_, err = s.Sessions.GetByToken(ctx, token)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an unknown token is fine.
	assert.NoError(t, s.Sessions.Delete(ctx, "missing"))
}

func TestSessionExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "dave@example.com")

	expired := &Session{Token: "tok-expired", UserID: user.ID, ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, s.Sessions.Create(ctx, expired))

	_, err := s.Sessions.GetByToken(ctx, "tok-expired")
	assert.ErrorIs(t, err, ErrNotFound)

	live := &Session{Token: "tok-live", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	stale := &Session{Token: "tok-stale", UserID: user.ID, ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.Sessions.Create(ctx, live))
	require.NoError(t, s.Sessions.Create(ctx, stale))

	n, err := s.Sessions.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Sessions.GetByToken(ctx, "tok-live")
	assert.NoError(t, err)
}

func TestTaskRepository(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "erin@example.com")

	due := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	task := &Task{UserID: user.ID, Title: "file expenses", Due: &due}
	require.NoError(t, s.Tasks.Create(ctx, task))

	require.NoError(t, s.Tasks.Create(ctx, &Task{UserID: user.ID, Title: "no due date"}))

	assert.Error(t, s.Tasks.Create(ctx, &Task{UserID: user.ID, Title: "   "}))

	got, err := s.Tasks.Get(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "file expenses", got.Title)
	require.NotNil(t, got.Due)

	// Scoped to the owner.
	_, err = s.Tasks.Get(ctx, "other-user", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	task.Title = "file Q3 expenses"
	task.Notes = "receipts in drive"
	require.NoError(t, s.Tasks.Update(ctx, task))

	got, err = s.Tasks.Get(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "file Q3 expenses", got.Title)
	assert.Equal(t, "receipts in drive", got.Notes)

	require.NoError(t, s.Tasks.Complete(ctx, user.ID, task.ID, time.Now()))
	got, err = s.Tasks.Get(ctx, user.ID, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Done)
	assert.NotNil(t, got.CompletedAt)

	// Completing twice is a no-op.
	require.NoError(t, s.Tasks.Complete(ctx, user.ID, task.ID, time.Now()))

	assert.ErrorIs(t, s.Tasks.Complete(ctx, user.ID, "missing", time.Now()), ErrNotFound)

	require.NoError(t, s.Tasks.Delete(ctx, user.ID, task.ID))
	assert.ErrorIs(t, s.Tasks.Delete(ctx, user.ID, task.ID), ErrNotFound)
}

func TestTaskList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "frank@example.com")

	soon := time.Now().Add(time.Hour)
	later := time.Now().Add(48 * time.Hour)
	require.NoError(t, s.Tasks.Create(ctx, &Task{UserID: user.ID, Title: "soon", Due: &soon}))
	require.NoError(t, s.Tasks.Create(ctx, &Task{UserID: user.ID, Title: "later", Due: &later}))

	done := &Task{UserID: user.ID, Title: "done"}
	require.NoError(t, s.Tasks.Create(ctx, done))
	require.NoError(t, s.Tasks.Complete(ctx, user.ID, done.ID, time.Now()))

	all, err := s.Tasks.List(ctx, user.ID, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.False(t, all[0].Done)
	assert.True(t, all[2].Done)

	pending := false
	open, err := s.Tasks.List(ctx, user.ID, TaskFilter{Done: &pending})
	require.NoError(t, err)
	assert.Len(t, open, 2)

	cutoff := time.Now().Add(2 * time.Hour)
	dueSoon, err := s.Tasks.List(ctx, user.ID, TaskFilter{DueBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, dueSoon, 1)
	assert.Equal(t, "soon", dueSoon[0].Title)

	limited, err := s.Tasks.List(ctx, user.ID, TaskFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestWebhookSubscriptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "grace@example.com")

	taskSub := &WebhookSubscription{UserID: user.ID, URL: "https://example.com/tasks", Events: []string{"task.created", "task.completed"}, Secret: "s1"}
	allSub := &WebhookSubscription{UserID: user.ID, URL: "https://example.com/all", Events: []string{"*"}, Secret: "s2"}
	require.NoError(t, s.Webhooks.Create(ctx, taskSub))
	require.NoError(t, s.Webhooks.Create(ctx, allSub))
	assert.Equal(t, WebhookStatusActive, taskSub.Status)

	assert.Error(t, s.Webhooks.Create(ctx, &WebhookSubscription{UserID: user.ID, URL: "https://example.com/none", Secret: "s3"}))

	matched, err := s.Webhooks.ListActiveForEvent(ctx, user.ID, "task.created")
	require.NoError(t, err)
	assert.Len(t, matched, 2)

	matched, err = s.Webhooks.ListActiveForEvent(ctx, user.ID, "export.ready")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, allSub.ID, matched[0].ID)

	require.NoError(t, s.Webhooks.Delete(ctx, user.ID, taskSub.ID))
	assert.ErrorIs(t, s.Webhooks.Delete(ctx, user.ID, taskSub.ID), ErrNotFound)
}

func TestWebhookFailureThreshold(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "heidi@example.com")
	s.Webhooks.SetFailureThreshold(3)

	sub := &WebhookSubscription{UserID: user.ID, URL: "https://example.com/hook", Events: []string{"*"}, Secret: "s"}
	require.NoError(t, s.Webhooks.Create(ctx, sub))

	deliveryErr := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Webhooks.RecordFailure(ctx, sub.ID, deliveryErr, time.Now()))
	}

	got, err := s.Webhooks.Get(ctx, user.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, WebhookStatusActive, got.Status)
	assert.Equal(t, 2, got.FailureCount)
	assert.Equal(t, "connection refused", got.LastError)

	// A success resets the counter.
	require.NoError(t, s.Webhooks.RecordSuccess(ctx, sub.ID, time.Now()))
	got, err = s.Webhooks.Get(ctx, user.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.FailureCount)
	assert.Empty(t, got.LastError)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Webhooks.RecordFailure(ctx, sub.ID, deliveryErr, time.Now()))
	}
	got, err = s.Webhooks.Get(ctx, user.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, WebhookStatusFailed, got.Status)

	matched, err := s.Webhooks.ListActiveForEvent(ctx, user.ID, "task.created")
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestWebhookDeliveries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "ivan@example.com")
	sub := &WebhookSubscription{UserID: user.ID, URL: "https://example.com/hook", Events: []string{"*"}, Secret: "s"}
	require.NoError(t, s.Webhooks.Create(ctx, sub))

	require.NoError(t, s.Webhooks.RecordDelivery(ctx, &WebhookDelivery{SubscriptionID: sub.ID, Event: "task.created", StatusCode: 200, Attempts: 1, Success: true}))
	require.NoError(t, s.Webhooks.RecordDelivery(ctx, &WebhookDelivery{SubscriptionID: sub.ID, Event: "task.completed", StatusCode: 500, Attempts: 3, Success: false, Error: "server error"}))

	deliveries, err := s.Webhooks.ListDeliveries(ctx, sub.ID, 0)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)

	deliveries, err = s.Webhooks.ListDeliveries(ctx, sub.ID, 1)
	require.NoError(t, err)
	assert.Len(t, deliveries, 1)
}

func TestQueryHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, s, "judy@example.com")

	require.NoError(t, s.Queries.Record(ctx, &QueryRecord{UserID: user.ID, Query: "archive newsletters", Intent: "email.archive", Stage: "pattern", Confidence: 0.92, Success: true}))
	require.NoError(t, s.Queries.Record(ctx, &QueryRecord{UserID: user.ID, Query: "what is the weather", Intent: "unknown", Stage: "none", Confidence: 0, Success: false, Error: "no intent matched"}))

	records, err := s.Queries.ListByUser(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = s.Queries.ListByUser(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	require.NoError(t, s.Queries.DeleteByUser(ctx, user.ID))
	records, err = s.Queries.ListByUser(ctx, user.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}
