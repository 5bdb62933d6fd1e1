package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/adiwira/kuliner-nusantara/internal/client/api"
	"github.com/adiwira/kuliner-nusantara/internal/client/models"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/images"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/pending"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/session"
	"github.com/adiwira/kuliner-nusantara/internal/client/repositories/stories"
	"github.com/adiwira/kuliner-nusantara/internal/common"
	"github.com/adiwira/kuliner-nusantara/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE pending_stories (
  id TEXT PRIMARY KEY,
  description TEXT NOT NULL,
  photo BLOB NOT NULL,
  photo_name TEXT NOT NULL DEFAULT 'photo.jpg',
  lat REAL,
  lon REAL,
  created_at TEXT NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE stories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL,
  photo_url TEXT NOT NULL,
  lat REAL,
  lon REAL,
  created_at TEXT NOT NULL
);

CREATE TABLE images (
  url TEXT PRIMARY KEY,
  blob BLOB NOT NULL
);

CREATE TABLE session (
  key TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

type repoSet struct {
	pending pending.Repository
	stories stories.Repository
	images  images.Repository
	session session.Repository
}

func setupRepos(t *testing.T) (*sql.DB, repoSet) {
	t.Helper()
	db := setupDB(t)
	return db, repoSet{
		pending: pending.NewSQLiteRepository(db),
		stories: stories.NewSQLiteRepository(db),
		images:  images.NewSQLiteRepository(db),
		session: session.NewSQLiteRepository(db),
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClient is a scriptable api.Client. Unset function fields panic when
// called, which makes unexpected network traffic fail loudly.
type fakeClient struct {
	mu          sync.Mutex
	created     []models.NewStory
	createCount int
	createFn    func(story models.NewStory) (string, error)
	listFn      func(page, size int) ([]models.Story, error)
	getFn       func(id string) (*models.Story, error)
	fetchFn     func(url string) ([]byte, error)
	loginFn     func(email, password string) (*models.Session, error)
	registerErr error
	subscribed  []api.PushSubscription
	pingErr     error

	imageFetches int
}

func (f *fakeClient) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if f.loginFn != nil {
		return f.loginFn(email, password)
	}
	return &models.Session{UserID: "u1", Name: "Ayu", Token: "tok"}, nil
}

func (f *fakeClient) Register(ctx context.Context, name, email, password string) error {
	return f.registerErr
}

func (f *fakeClient) CreateStory(ctx context.Context, story models.NewStory, token string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCount++
	id, err := f.createFn(story)
	if err == nil {
		f.created = append(f.created, story)
	}
	return id, err
}

func (f *fakeClient) ListStories(ctx context.Context, page, size int, token string) ([]models.Story, error) {
	return f.listFn(page, size)
}

func (f *fakeClient) GetStory(ctx context.Context, id, token string) (*models.Story, error) {
	return f.getFn(id)
}

func (f *fakeClient) SubscribeNotifications(ctx context.Context, sub api.PushSubscription, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, sub)
	return nil
}

func (f *fakeClient) UnsubscribeNotifications(ctx context.Context, sub api.PushSubscription, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subscribed {
		if s.Endpoint == sub.Endpoint {
			f.subscribed = append(f.subscribed[:i], f.subscribed[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeClient) FetchImage(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.imageFetches++
	f.mu.Unlock()
	return f.fetchFn(url)
}

func (f *fakeClient) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeClient) createCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCount
}

func ptr(v float64) *float64 { return &v }

func validInput() models.StoryInput {
	return models.StoryInput{
		Description:   "nasi padang near the station",
		PhotoFile:     []byte("jpegdata"),
		PhotoFileName: "padang.jpg",
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u1",
		"exp":    exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func signedTokenNoExp(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"userId": "u1"})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func saveSession(t *testing.T, repos repoSet, token string) {
	t.Helper()
	require.NoError(t, repos.session.Save(context.Background(),
		&models.Session{UserID: "u1", Name: "Ayu", Token: token}))
}

func newService(t *testing.T, fc *fakeClient, repos repoSet, online bool) StoryService {
	t.Helper()
	return NewStoryService(fc, repos.pending, repos.stories, repos.session, nil,
		func() bool { return online }, testLogger())
}

func pendingIDs(t *testing.T, repos repoSet) []string {
	t.Helper()
	records, err := repos.pending.GetAll(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestAdd_ValidationShortCircuits(t *testing.T) {
	_, repos := setupRepos(t)
	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		t.Fatal("no network call expected")
		return "", nil
	}}
	svc := newService(t, fc, repos, true)

	in := validInput()
	in.Description = ""
	_, err := svc.Add(context.Background(), in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))
	assert.Zero(t, fc.createCalls())
	assert.Empty(t, pendingIDs(t, repos), "validation failure must not touch the store")
}

func TestAdd_Online_ForwardsDirectly(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, "tok")
	fc := &fakeClient{createFn: func(models.NewStory) (string, error) { return "story-1", nil }}
	svc := newService(t, fc, repos, true)

	queued, err := svc.Add(context.Background(), validInput())
	require.NoError(t, err)
	assert.False(t, queued)
	require.Equal(t, 1, fc.createCalls())
	assert.Equal(t, "nasi padang near the station", fc.created[0].Description)
	assert.Empty(t, pendingIDs(t, repos))
}

func TestAdd_Online_PurgesStaleQueuedDuplicate(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, "tok")
	ctx := context.Background()

	// a prior offline attempt left the same text queued
	require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
		ID:          "stale-1",
		Description: "nasi padang near the station",
		Photo:       []byte("jpegdata"),
		PhotoName:   "padang.jpg",
		CreatedAt:   time.Now(),
	}))

	fc := &fakeClient{createFn: func(models.NewStory) (string, error) { return "story-1", nil }}
	svc := newService(t, fc, repos, true)

	_, err := svc.Add(ctx, validInput())
	require.NoError(t, err)
	assert.Empty(t, pendingIDs(t, repos), "stale duplicate must be purged after confirmed acceptance")
}

func TestAdd_Online_FailureIsSurfacedNotQueued(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, "tok")
	rejection := &api.ServerRejectedError{StatusCode: 400, Message: "photo too large"}
	fc := &fakeClient{createFn: func(models.NewStory) (string, error) { return "", rejection }}
	svc := newService(t, fc, repos, true)

	_, err := svc.Add(context.Background(), validInput())
	require.Error(t, err)
	assert.True(t, api.IsServerRejected(err))
	assert.Empty(t, pendingIDs(t, repos), "an explicit online submission is never silently requeued")
}

func TestAdd_Online_NoSession(t *testing.T) {
	_, repos := setupRepos(t)
	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		t.Fatal("no network call without a session")
		return "", nil
	}}
	svc := newService(t, fc, repos, true)

	_, err := svc.Add(context.Background(), validInput())
	assert.True(t, errors.Is(err, common.ErrUnauthenticated))
}

func TestAdd_Offline_QueuesRecord(t *testing.T) {
	_, repos := setupRepos(t)
	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		t.Fatal("no network call while offline")
		return "", nil
	}}
	svc := newService(t, fc, repos, false)

	in := validInput()
	in.IncludeLocation = true
	in.Lat = ptr(-6.2)
	in.Lon = ptr(106.8)

	queued, err := svc.Add(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, queued)

	records, err := repos.pending.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, "nasi padang near the station", records[0].Description)
	assert.Equal(t, []byte("jpegdata"), records[0].Photo)
	require.NotNil(t, records[0].Lat)
	assert.Equal(t, -6.2, *records[0].Lat)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func TestDrain_SendsInInsertionOrderAndDeletes(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, signedToken(t, time.Now().Add(time.Hour)))
	ctx := context.Background()

	for _, d := range []string{"first", "second", "third"} {
		require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
			ID: "id-" + d, Description: d, Photo: []byte("img"), PhotoName: "p.jpg", CreatedAt: time.Now(),
		}))
	}

	var order []string
	fc := &fakeClient{createFn: func(s models.NewStory) (string, error) {
		order = append(order, s.Description)
		return "remote-" + s.Description, nil
	}}
	svc := newService(t, fc, repos, true)

	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, []string{"first", "second", "third"}, order)
	assert.Empty(t, pendingIDs(t, repos), "every confirmed record must be removed")
}

func TestDrain_PartialFailureIsolation(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, signedToken(t, time.Now().Add(time.Hour)))
	ctx := context.Background()

	for _, d := range []string{"ok-1", "bad", "ok-2"} {
		require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
			ID: "id-" + d, Description: d, Photo: []byte("img"), PhotoName: "p.jpg", CreatedAt: time.Now(),
		}))
	}

	fc := &fakeClient{createFn: func(s models.NewStory) (string, error) {
		if s.Description == "bad" {
			return "", errors.New("connection reset")
		}
		return "remote-id", nil
	}}
	svc := newService(t, fc, repos, true)

	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, []string{"id-bad"}, pendingIDs(t, repos),
		"exactly the failed record stays queued")
}

func TestDrain_SkippedWithoutSession(t *testing.T) {
	_, repos := setupRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
		ID: "keep", Description: "d", Photo: []byte("img"), PhotoName: "p.jpg", CreatedAt: time.Now(),
	}))

	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		t.Fatal("drain must not send anything without a credential")
		return "", nil
	}}
	svc := newService(t, fc, repos, true)

	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, []string{"keep"}, pendingIDs(t, repos))
}

func TestDrain_SkippedWithExpiredToken(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, signedToken(t, time.Now().Add(-time.Hour)))
	ctx := context.Background()

	require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
		ID: "keep", Description: "d", Photo: []byte("img"), PhotoName: "p.jpg", CreatedAt: time.Now(),
	}))

	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		t.Fatal("drain must not send anything with an expired credential")
		return "", nil
	}}
	svc := newService(t, fc, repos, true)

	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, []string{"keep"}, pendingIDs(t, repos))
}

func TestDrain_StopsWhenCredentialRejectedMidDrain(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, signedToken(t, time.Now().Add(time.Hour)))
	ctx := context.Background()

	for _, d := range []string{"a", "b"} {
		require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
			ID: "id-" + d, Description: d, Photo: []byte("img"), PhotoName: "p.jpg", CreatedAt: time.Now(),
		}))
	}

	calls := 0
	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		calls++
		return "", common.ErrUnauthenticated
	}}
	svc := newService(t, fc, repos, true)

	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, 1, calls, "drain stops at the first credential rejection")
	assert.Len(t, pendingIDs(t, repos), 2, "no record may be lost")
}

func TestDrain_ServerRejectionCountsTowardCeiling(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, signedToken(t, time.Now().Add(time.Hour)))
	ctx := context.Background()

	require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
		ID: "reject-me", Description: "d", Photo: []byte("img"), PhotoName: "p.jpg", CreatedAt: time.Now(),
	}))

	fc := &fakeClient{createFn: func(models.NewStory) (string, error) {
		return "", &api.ServerRejectedError{StatusCode: 400, Message: "invalid"}
	}}
	svc := newService(t, fc, repos, true)

	for i := 0; i < models.MaxSubmitAttempts; i++ {
		require.NoError(t, svc.Drain(ctx))
	}

	// terminally failed: excluded from the queue but still present
	assert.Empty(t, pendingIDs(t, repos))
	got, err := repos.pending.GetByID(ctx, "reject-me")
	require.NoError(t, err)
	assert.True(t, got.Failed)
	assert.Equal(t, models.MaxSubmitAttempts, got.Attempts)

	// further drains leave it alone
	require.NoError(t, svc.Drain(ctx))
	assert.Equal(t, models.MaxSubmitAttempts, fc.createCalls())
}

func TestOfflineRoundTrip(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, signedToken(t, time.Now().Add(time.Hour)))
	ctx := context.Background()

	fc := &fakeClient{createFn: func(models.NewStory) (string, error) { return "remote-1", nil }}

	offline := newService(t, fc, repos, false)
	in := validInput()
	in.IncludeLocation = true
	in.Lat = ptr(-7.79)
	in.Lon = ptr(110.37)

	queued, err := offline.Add(ctx, in)
	require.NoError(t, err)
	require.True(t, queued)
	assert.Zero(t, fc.createCalls())

	// connectivity returns
	online := newService(t, fc, repos, true)
	require.NoError(t, online.Drain(ctx))

	require.Equal(t, 1, fc.createCalls(), "the story reaches the server exactly once")
	sent := fc.created[0]
	assert.Equal(t, "nasi padang near the station", sent.Description)
	assert.Equal(t, []byte("jpegdata"), sent.Photo)
	assert.Equal(t, "padang.jpg", sent.PhotoName)
	require.NotNil(t, sent.Lat)
	assert.Equal(t, -7.79, *sent.Lat)
	assert.Empty(t, pendingIDs(t, repos))

	require.NoError(t, online.Drain(ctx))
	assert.Equal(t, 1, fc.createCalls(), "a second drain must not resubmit")
}

func TestList_RemoteSuccessUpdatesCache(t *testing.T) {
	_, repos := setupRepos(t)
	saveSession(t, repos, "tok")
	remote := []models.Story{
		{ID: "s1", Name: "Ayu", Description: "gudeg", PhotoURL: "", CreatedAt: time.Now().UTC().Truncate(time.Second)},
	}
	fc := &fakeClient{listFn: func(page, size int) ([]models.Story, error) { return remote, nil }}
	svc := newService(t, fc, repos, true)

	got, fromCache, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, got, 1)

	cached, err := repos.stories.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "gudeg", cached.Description)
}

func TestList_FallsBackToCacheOnFailure(t *testing.T) {
	_, repos := setupRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.stories.Upsert(ctx, &models.Story{
		ID: "c1", Name: "Budi", Description: "rawon", PhotoURL: "u", CreatedAt: time.Now(),
	}))

	fc := &fakeClient{listFn: func(page, size int) ([]models.Story, error) {
		return nil, errors.New("no route to host")
	}}
	svc := newService(t, fc, repos, false)

	got, fromCache, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, fromCache)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestList_FailureWithEmptyCachePropagates(t *testing.T) {
	_, repos := setupRepos(t)
	netErr := errors.New("no route to host")
	fc := &fakeClient{listFn: func(page, size int) ([]models.Story, error) { return nil, netErr }}
	svc := newService(t, fc, repos, false)

	_, _, err := svc.List(context.Background(), 1, 10)
	assert.True(t, errors.Is(err, netErr))
}

func TestGet_FallsBackToCacheOnFailure(t *testing.T) {
	_, repos := setupRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.stories.Upsert(ctx, &models.Story{
		ID: "s9", Name: "Citra", Description: "pempek", PhotoURL: "u", CreatedAt: time.Now(),
	}))

	fc := &fakeClient{getFn: func(id string) (*models.Story, error) {
		return nil, errors.New("timeout")
	}}
	svc := newService(t, fc, repos, false)

	got, fromCache, err := svc.Get(ctx, "s9")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "pempek", got.Description)

	_, _, err = svc.Get(ctx, "unknown")
	require.Error(t, err, "cache miss propagates the original failure")
}

func TestPendingCount(t *testing.T) {
	_, repos := setupRepos(t)
	ctx := context.Background()
	svc := newService(t, &fakeClient{}, repos, true)

	n, err := svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repos.pending.Create(ctx, &models.PendingStory{
		ID: "p", Description: "d", Photo: []byte("i"), PhotoName: "p.jpg", CreatedAt: time.Now(),
	}))

	n, err = svc.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
