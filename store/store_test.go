package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/model"
	"Bt1QSocial/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport serves snap on Pull and records pushes.
type fakeTransport struct {
	mu        sync.Mutex
	snap      *model.Snapshot
	pulls     int
	pushes    []remote.Payload
	pullDelay time.Duration
	onPush    func(remote.Payload)
}

func (f *fakeTransport) Pull(ctx context.Context) (*model.Snapshot, error) {
	f.mu.Lock()
	f.pulls++
	snap := f.snap
	delay := f.pullDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if snap == nil {
		return nil, remote.ErrNoRemoteData
	}
	return snap.Clone(), nil
}

func (f *fakeTransport) Push(ctx context.Context, p remote.Payload) error {
	if f.onPush != nil {
		f.onPush(p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, p)
	return nil
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) setRemote(s *model.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = s
}

func (f *fakeTransport) pullCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulls
}

func (f *fakeTransport) lastPush() (remote.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pushes) == 0 {
		return remote.Payload{}, false
	}
	return f.pushes[len(f.pushes)-1], true
}

// testClock advances by step on every reading.
type testClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newTestClock(step time.Duration) *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func newTestStore(t *testing.T, c cache.LocalCache, tr remote.Transport) *Store {
	t.Helper()
	if c == nil {
		c = cache.NewMemoryCache()
	}
	if tr == nil {
		tr = &fakeTransport{}
	}
	st := New(c, tr, Options{Namespace: "test", Now: newTestClock(time.Second).Now})
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustCreateUser(t *testing.T, st *Store, username string) *model.User {
	t.Helper()
	u, err := st.CreateUser(context.Background(), model.UserInput{
		Username: username,
		Email:    username + "@example.com",
	})
	require.NoError(t, err)
	return u
}

func TestStore_FreshBoot(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	st := newTestStore(t, c, nil)

	assert.Equal(t, StateUninitialized, st.State())
	assert.Empty(t, st.GetAllUsers(ctx))

	sum := st.GetDataSummary(ctx)
	assert.Equal(t, 0, sum.TotalUsers)
	assert.False(t, sum.IsCloudConnected)
	assert.Equal(t, string(StateReady), sum.State)
	assert.Regexp(t, `^device_`, sum.DeviceID)
	assert.Equal(t, StateReady, st.State())

	// the empty snapshot is mirrored to the cache
	raw, err := c.Get(ctx, cache.DatabaseKey("test"))
	require.NoError(t, err)
	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, model.SnapshotVersion, snap.Version)
	assert.NotNil(t, snap.Users)
}

func TestStore_RoundTripThroughCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	first := newTestStore(t, c, nil)
	a := mustCreateUser(t, first, "alice")
	b := mustCreateUser(t, first, "bob")
	_, err := first.FollowUser(ctx, a.ID, b.ID)
	require.NoError(t, err)
	tr, err := first.CreateTrack(ctx, model.TrackInput{Title: "Night Drive", Artist: "alice", UserID: a.ID})
	require.NoError(t, err)
	_, err = first.CreateComment(ctx, model.CommentInput{TrackID: tr.ID, UserID: b.ID, Text: "nice"})
	require.NoError(t, err)
	conv, err := first.CreateConversation(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	_, err = first.CreateMessage(ctx, model.MessageInput{ConversationID: conv.ID, SenderID: a.ID, Text: "hi"})
	require.NoError(t, err)
	p, err := first.CreateProject(ctx, model.ProjectInput{Title: "EP", UserID: a.ID})
	require.NoError(t, err)
	_, err = first.CreateApplication(ctx, model.ApplicationInput{ProjectID: p.ID, UserID: b.ID})
	require.NoError(t, err)
	before := first.Export(ctx)

	// a new process with no remote reachable
	second := newTestStore(t, c, nil)
	after := second.Export(ctx)

	assert.Equal(t, before, after)
	assert.True(t, before.LastSync.Equal(after.LastSync))
	assert.Equal(t, first.GetDataSummary(ctx).DeviceID, second.GetDataSummary(ctx).DeviceID)
}

func TestStore_ConcurrentInitConverges(t *testing.T) {
	ft := &fakeTransport{pullDelay: 20 * time.Millisecond}
	st := newTestStore(t, nil, ft)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.GetAllUsers(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ft.pullCount())
	assert.Equal(t, StateReady, st.State())
}

func TestStore_AdoptsRemoteSnapshot(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()

	remoteSnap := model.NewSnapshot(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	remoteSnap.Users = append(remoteSnap.Users, model.User{ID: "user_1", Username: "remote", Email: "remote@example.com"})
	remoteSnap.Tracks = append(remoteSnap.Tracks, model.Track{
		ID: "track_1", Title: "t", Artist: "a", UserID: "user_1",
		Comments: []model.Comment{{ID: "comment_1", Text: "embedded"}},
	})
	ft := &fakeTransport{snap: remoteSnap}

	// a stale cache copy must lose to the remote
	stale, err := json.Marshal(model.NewSnapshot(time.Now()))
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, cache.DatabaseKey("test"), stale))

	st := newTestStore(t, c, ft)
	users := st.GetAllUsers(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, "remote", users[0].Username)
	assert.Equal(t, 1, users[0].TracksCount)
	assert.True(t, st.GetDataSummary(ctx).IsCloudConnected)

	// embedded comments are lifted into the flat collection
	comments := st.GetComments(ctx, "track_1")
	require.Len(t, comments, 1)
	assert.Equal(t, "track_1", comments[0].TrackID)

	raw, err := c.Get(ctx, cache.DatabaseKey("test"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "remote@example.com")
}

func TestStore_CorruptCacheFallsBackToEmpty(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	require.NoError(t, c.Set(ctx, cache.DatabaseKey("test"), []byte("{not json")))

	st := newTestStore(t, c, nil)
	assert.Empty(t, st.GetAllUsers(ctx))
	assert.Equal(t, StateReady, st.State())
}

func TestStore_CancelledInitKeepsPersistedDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	c1, err := cache.OpenSQLite(path)
	require.NoError(t, err)
	first := New(c1, &fakeTransport{}, Options{Namespace: "test"})
	mustCreateUser(t, first, "alice")
	require.NoError(t, first.Flush(ctx))
	require.NoError(t, first.Close())
	require.NoError(t, c1.Close())

	c2, err := cache.OpenSQLite(path)
	require.NoError(t, err)
	second := New(c2, &fakeTransport{}, Options{Namespace: "test"})
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	second.Init(cancelled)
	require.Equal(t, StateReady, second.State())
	assert.Len(t, second.GetAllUsers(ctx), 1)
	require.NoError(t, second.Close())
	require.NoError(t, c2.Close())

	// 重启后数据仍在
	c3, err := cache.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c3.Close() })
	third := newTestStore(t, c3, nil)
	users := third.GetAllUsers(ctx)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestStore_LastSyncStrictlyIncreases(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := New(cache.NewMemoryCache(), &fakeTransport{}, Options{
		Namespace: "test",
		Now:       func() time.Time { return frozen },
	})
	defer st.Close()

	prev := st.Export(ctx).LastSync
	for i := 0; i < 5; i++ {
		_, err := st.CreateTrack(ctx, model.TrackInput{Title: "t", Artist: "a"})
		require.NoError(t, err)
		cur := st.GetDataSummary(ctx).LastSync
		assert.True(t, cur.After(prev), "lastSync must advance: %s <= %s", cur, prev)
		prev = cur
	}
}

func TestStore_CacheWrittenBeforePush(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	var mismatch []string
	var mu sync.Mutex
	ft := &fakeTransport{}
	ft.onPush = func(p remote.Payload) {
		raw, err := c.Get(context.Background(), cache.DatabaseKey("test"))
		if err != nil {
			mu.Lock()
			mismatch = append(mismatch, err.Error())
			mu.Unlock()
			return
		}
		var cached model.Snapshot
		if err := json.Unmarshal(raw, &cached); err != nil || cached.LastSync.Before(p.Snapshot.LastSync) {
			mu.Lock()
			mismatch = append(mismatch, "cache behind pushed snapshot")
			mu.Unlock()
		}
	}

	st := newTestStore(t, c, ft)
	mustCreateUser(t, st, "alice")
	mustCreateUser(t, st, "bob")
	require.NoError(t, st.Flush(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, mismatch)

	p, ok := ft.lastPush()
	require.True(t, ok)
	assert.Len(t, p.Snapshot.Users, 2)
	assert.Regexp(t, `^device_`, p.DeviceID)
}

func TestStore_ForceSync(t *testing.T) {
	ctx := context.Background()
	ft := &fakeTransport{}
	st := newTestStore(t, nil, ft)
	mustCreateUser(t, st, "local")

	_, ok := st.ForceSync(ctx)
	assert.False(t, ok)
	assert.Len(t, st.GetAllUsers(ctx), 1, "failed force sync keeps the local snapshot")

	other := model.NewSnapshot(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	other.Users = []model.User{{ID: "user_x", Username: "elsewhere", Email: "x@example.com"}}
	ft.setRemote(other)

	snap, ok := st.ForceSync(ctx)
	require.True(t, ok)
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "elsewhere", snap.Users[0].Username)
	assert.Equal(t, "elsewhere", st.GetAllUsers(ctx)[0].Username)
	assert.True(t, st.GetDataSummary(ctx).IsCloudConnected)
}

func TestStore_ReloadFromCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	st := newTestStore(t, c, nil)
	assert.Empty(t, st.GetAllUsers(ctx))

	writer := newTestStore(t, c, nil)
	mustCreateUser(t, writer, "alice")

	require.True(t, st.ReloadFromCache(ctx))
	assert.Len(t, st.GetAllUsers(ctx), 1)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	u := mustCreateUser(t, st, "alice")
	pl, err := st.CreatePlaylist(ctx, model.PlaylistInput{Name: "mix", UserID: u.ID, Tracks: []string{"track_a"}})
	require.NoError(t, err)

	u.Username = "mallory"
	all := st.GetAllUsers(ctx)
	all[0].Email = "changed@example.com"
	pl.Tracks[0] = "track_b"
	st.GetAllPlaylists(ctx)[0].Tracks[0] = "track_c"

	got := st.GetUserByID(ctx, u.ID)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, []string{"track_a"}, st.GetPlaylistByID(ctx, pl.ID).Tracks)
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1714564800123)
	id := newID(idPrefixConversation, now)
	assert.Regexp(t, regexp.MustCompile(`^conv_1714564800123_[0-9a-z]{9}$`), id)
	assert.NotEqual(t, id, newID(idPrefixConversation, now))
}
