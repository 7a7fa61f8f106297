package migration

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/model"
	"Bt1QSocial/remote"
	"Bt1QSocial/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	authFixture = `{"state":{"user":{"id":"u1","username":"alice","email":"alice@example.com","bio":"beats"},"isAuthenticated":true},"version":0}`

	usersFixture = `{"state":{
		"users":[
			{"id":"u1","username":"alice","email":"ALICE@example.com"},
			{"id":"u2","username":"bob","email":"bob@example.com"},
			{"id":3,"name":"carol","email":"carol@example.com"}
		],
		"following":{"u1":["u2"],"u2":["u1","3"]}
	},"version":0}`

	musicFixture = `{"state":{
		"tracks":[
			{"id":"t1","title":"Night Drive","artist":"alice","uploadedBy":"u1","audioUrl":"https://cdn/t1.mp3","plays":12},
			{"id":"t2","title":"Rain","artist":"bob","uploadedBy":"u2","audioUrl":"https://cdn/t2.mp3"}
		],
		"playlists":[
			{"id":"p1","name":"mine","createdBy":"u2","tracks":["t1","t9"]},
			{"id":"p2","name":"orphan","isPublic":false}
		]
	},"version":0}`

	messagesFixture = `{"state":{
		"conversations":[{"id":"c1","participants":["u1","u2"]}],
		"messages":{"c1":[
			{"id":"m1","senderId":"u1","content":"hey","timestamp":1714564800000},
			{"id":"m2","senderId":"u2","text":"yo","timestamp":"2024-05-01T12:01:00Z"}
		]}
	},"version":0}`

	collaborationFixture = `{"state":{
		"projects":[{"id":"pr1","title":"Remix","createdBy":"u1","status":"active","skillsNeeded":["mixing"],"deadline":"2024-12-31"}],
		"applications":[{"id":"a1","projectId":"pr1","userId":"u2","message":"me"}]
	},"version":0}`
)

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func seed(t *testing.T, c cache.LocalCache, blobs map[string]string) {
	t.Helper()
	for k, v := range blobs {
		require.NoError(t, c.Set(context.Background(), k, []byte(v)))
	}
}

func fullFixture() map[string]string {
	return map[string]string{
		cache.LegacyAuthKey:          authFixture,
		cache.LegacyUsersKey:         usersFixture,
		cache.LegacyMusicKey:         musicFixture,
		cache.LegacyMessagesKey:      messagesFixture,
		cache.LegacyCollaborationKey: collaborationFixture,
	}
}

func newTestEngine(t *testing.T, c cache.LocalCache) (*Engine, *store.Store) {
	t.Helper()
	clock := &stepClock{t: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)}
	st := store.New(c, remote.NopTransport{}, store.Options{Namespace: "test", Now: clock.Now})
	t.Cleanup(func() { _ = st.Close() })
	return NewEngine(st, c, Options{Now: clock.Now}), st
}

func TestMigrateTracks_OneBadTrack(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, map[string]string{cache.LegacyMusicKey: `{"state":{"tracks":[
		{"id":"t1","title":"one","artist":"a"},
		{"id":"t2","title":"two"},
		{"id":"t3","title":"three","artist":"c"}
	]}}`})
	e, st := newTestEngine(t, c)

	var res Result
	n := e.MigrateTracks(ctx, &res)

	assert.Equal(t, 2, n)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "t2")
	assert.Len(t, st.GetAllTracks(ctx), 2)
}

func TestMigrateAll(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, fullFixture())
	e, st := newTestEngine(t, c)

	res := e.MigrateAll(ctx)
	require.True(t, res.Success, res.Errors)
	assert.Empty(t, res.Errors)
	assert.True(t, strings.HasPrefix(res.BackupKey, "test.backup."))
	assert.Equal(t, Counts{
		Users: 3, Follows: 3, Tracks: 2, Playlists: 2,
		Conversations: 1, Messages: 2, Projects: 1, Applications: 1,
	}, res.Migrated)

	alice := st.GetUserByEmail(ctx, "alice@example.com")
	bob := st.GetUserByEmail(ctx, "bob@example.com")
	carol := st.GetUserByEmail(ctx, "carol@example.com")
	require.NotNil(t, alice)
	require.NotNil(t, bob)
	require.NotNil(t, carol)
	assert.Equal(t, "beats", alice.Bio, "the signed-in user is migrated first")
	assert.Equal(t, "carol", carol.Username)
	assert.Equal(t, 1, alice.FollowersCount)
	assert.Equal(t, 1, alice.FollowingCount)
	assert.Equal(t, 1, carol.FollowersCount)
	assert.Equal(t, 1, alice.TracksCount)

	tracks := st.GetTracksByUser(ctx, alice.ID)
	require.Len(t, tracks, 1)
	assert.Equal(t, "https://cdn/t1.mp3", tracks[0].URL)
	assert.Equal(t, 12, tracks[0].StreamCount)

	mine := st.GetPlaylistsByUser(ctx, bob.ID)
	require.Len(t, mine, 1)
	assert.Equal(t, []string{tracks[0].ID, "t9"}, mine[0].Tracks, "unmapped track ids are kept as-is")
	assert.True(t, mine[0].IsPublic)
	orphans := st.GetPlaylistsByUser(ctx, "unknown")
	require.Len(t, orphans, 1)
	assert.False(t, orphans[0].IsPublic)

	convs := st.GetConversations(ctx, alice.ID)
	require.Len(t, convs, 1)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, convs[0].Participants)
	msgs := st.GetMessages(ctx, convs[0].ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hey", msgs[0].Text)
	assert.Equal(t, alice.ID, msgs[0].SenderID)
	assert.Equal(t, time.UnixMilli(1714564800000).UTC(), msgs[0].Timestamp)
	assert.Equal(t, 2, convs[0].UnreadCount)

	projects := st.GetAllProjects(ctx)
	require.Len(t, projects, 1)
	assert.Equal(t, model.ProjectStatusOpen, projects[0].Status)
	assert.Equal(t, alice.ID, projects[0].UserID)
	require.NotNil(t, projects[0].Deadline)
	require.Len(t, projects[0].Applicants, 1)
	assert.Equal(t, bob.ID, projects[0].Applicants[0].UserID)
	assert.Equal(t, model.ApplicationStatusPending, projects[0].Applicants[0].Status)
}

func TestMigrateAll_RerunDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, fullFixture())
	e, st := newTestEngine(t, c)

	first := e.MigrateAll(ctx)
	require.True(t, first.Success)
	before := st.GetDataSummary(ctx)

	second := e.MigrateAll(ctx)
	require.True(t, second.Success)
	assert.Equal(t, Counts{}, second.Migrated)
	assert.Empty(t, second.Errors)

	after := st.GetDataSummary(ctx)
	assert.Equal(t, before.TotalUsers, after.TotalUsers)
	assert.Equal(t, before.TotalTracks, after.TotalTracks)
	assert.Equal(t, before.TotalPlaylists, after.TotalPlaylists)
	assert.Equal(t, before.TotalMessages, after.TotalMessages)
	assert.Equal(t, before.TotalProjects, after.TotalProjects)
	assert.Equal(t, before.TotalApplications, after.TotalApplications)

	// a fresh engine picks the ledger up from the cache
	fresh := NewEngine(st, c, Options{})
	third := fresh.MigrateAll(ctx)
	assert.Equal(t, Counts{}, third.Migrated)
}

func TestMigrateAll_RerunWithoutLedgerKeepsUsers(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, fullFixture())
	e, st := newTestEngine(t, c)

	first := e.MigrateAll(ctx)
	require.True(t, first.Success)
	before := st.GetDataSummary(ctx)

	require.NoError(t, c.Delete(ctx, cache.MigrationLedgerKey("test")))
	second := NewEngine(st, c, Options{}).MigrateAll(ctx)
	require.True(t, second.Success)

	// 邮箱检查独立于迁移记录
	assert.Equal(t, 0, second.Migrated.Users)
	assert.Equal(t, 0, second.Migrated.Follows)
	after := st.GetDataSummary(ctx)
	assert.Equal(t, before.TotalUsers, after.TotalUsers)
	assert.Equal(t, before.TotalFollows, after.TotalFollows)
	assert.Equal(t, before.TotalConversations, after.TotalConversations)

	// 没有迁移记录时曲目会重复创建
	assert.Equal(t, first.Migrated.Tracks, second.Migrated.Tracks)
	assert.Equal(t, 2*before.TotalTracks, after.TotalTracks)
}

func TestMigrateAll_ResumesAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, map[string]string{cache.LegacyMusicKey: `{"state":{"tracks":[
		{"id":"t1","title":"one","artist":"a"},
		{"id":"t2","title":"two"}
	]}}`})
	e, st := newTestEngine(t, c)

	res := e.MigrateAll(ctx)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Migrated.Tracks)
	assert.Len(t, res.Errors, 1)

	// the broken record is fixed at the source and migration re-run
	seed(t, c, map[string]string{cache.LegacyMusicKey: `{"state":{"tracks":[
		{"id":"t1","title":"one","artist":"a"},
		{"id":"t2","title":"two","artist":"b"}
	]}}`})
	res = e.MigrateAll(ctx)
	assert.Equal(t, 1, res.Migrated.Tracks)
	assert.Empty(t, res.Errors)
	assert.Len(t, st.GetAllTracks(ctx), 2)
}

func TestMigrateConversations_ReusesExistingConversation(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, map[string]string{cache.LegacyMessagesKey: `{"state":{
		"conversations":[{"id":"c9","participants":["x","y"]}],
		"messages":{"c9":[{"id":"m1","senderId":"x","content":"hello"}]}
	}}`})
	e, st := newTestEngine(t, c)

	existing, err := st.CreateConversation(ctx, []string{"y", "x"})
	require.NoError(t, err)

	var res Result
	n := e.MigrateConversations(ctx, &res)
	assert.Equal(t, 1, n)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 1, res.Migrated.Messages)

	assert.Len(t, st.GetAllConversations(ctx), 1)
	msgs := st.GetMessages(ctx, existing.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Text)
}

func TestMigrateCollaboration_SkipsApplicationsOfFailedProject(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, map[string]string{cache.LegacyCollaborationKey: `{"state":{
		"projects":[{"id":"pr1","title":""}],
		"applications":[{"id":"a1","projectId":"pr1","userId":"u2"}]
	}}`})
	e, st := newTestEngine(t, c)

	var res Result
	assert.Equal(t, 0, e.MigrateCollaboration(ctx, &res))
	assert.Len(t, res.Errors, 2)
	assert.Empty(t, st.GetAllApplications(ctx))
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, fullFixture())
	seed(t, c, map[string]string{"plain": "not json"})
	e, _ := newTestEngine(t, c)

	first := e.MigrateAll(ctx)
	require.True(t, first.Success)

	raw, err := c.Get(ctx, first.BackupKey)
	require.NoError(t, err)
	var dump map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &dump))
	assert.Contains(t, dump, cache.LegacyMusicKey)
	assert.JSONEq(t, `"not json"`, string(dump["plain"]))

	var music map[string]interface{}
	require.NoError(t, json.Unmarshal(dump[cache.LegacyMusicKey], &music))
	assert.Contains(t, music, "state")

	second := e.MigrateAll(ctx)
	require.True(t, second.Success)
	assert.NotEqual(t, first.BackupKey, second.BackupKey)
	raw, err = c.Get(ctx, second.BackupKey)
	require.NoError(t, err)
	dump = nil
	require.NoError(t, json.Unmarshal(raw, &dump))
	assert.NotContains(t, dump, first.BackupKey, "earlier backups are not nested")
}

// failingBackupCache refuses to write backup keys.
type failingBackupCache struct {
	cache.LocalCache
}

func (f failingBackupCache) Set(ctx context.Context, key string, value []byte) error {
	if cache.IsBackupKey("test", key) {
		return errors.New("disk full")
	}
	return f.LocalCache.Set(ctx, key, value)
}

func TestMigrateAll_BackupFailureAborts(t *testing.T) {
	ctx := context.Background()
	c := failingBackupCache{cache.NewMemoryCache()}
	seed(t, c, fullFixture())
	e, st := newTestEngine(t, c)

	res := e.MigrateAll(ctx)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "backup failed")
	assert.Equal(t, Counts{}, res.Migrated)
	assert.Empty(t, st.GetAllUsers(ctx))
}

func TestVerifyMigration(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, fullFixture())
	e, _ := newTestEngine(t, c)

	before := e.VerifyMigration(ctx)
	assert.Equal(t, Counts{}, before.Store)
	assert.Equal(t, Counts{
		Users: 3, Follows: 3, Tracks: 2, Playlists: 2,
		Conversations: 1, Messages: 2, Projects: 1, Applications: 1,
	}, before.Legacy)

	res := e.MigrateAll(ctx)
	require.True(t, res.Success)

	after := e.VerifyMigration(ctx)
	assert.Equal(t, after.Legacy, after.Store)
	assert.Empty(t, after.Errors)
}

func TestLegacyTime(t *testing.T) {
	var v struct {
		A legacyTime `json:"a"`
		B legacyTime `json:"b"`
		C legacyTime `json:"c"`
		D legacyTime `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1714564800000,"b":"2024-05-01T12:00:00Z","c":"2024-05-01","d":null}`), &v))

	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, v.A.Equal(want))
	assert.True(t, v.B.Equal(want))
	assert.True(t, v.C.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, v.D.IsZero())
	assert.Nil(t, v.D.ptr())

	var bad legacyTime
	assert.Error(t, json.Unmarshal([]byte(`"someday"`), &bad))
}

func TestNormalizeProjectStatus(t *testing.T) {
	assert.Equal(t, model.ProjectStatusOpen, normalizeProjectStatus("active"))
	assert.Equal(t, model.ProjectStatusOpen, normalizeProjectStatus(""))
	assert.Equal(t, model.ProjectStatusInProgress, normalizeProjectStatus("in-progress"))
	assert.Equal(t, "archived", normalizeProjectStatus("archived"))
}

func TestMigrateUsers_IgnoresLoggedOutSession(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, map[string]string{cache.LegacyAuthKey: `{"state":{"user":{"id":"g1","username":"ghost","email":"ghost@example.com"},"isAuthenticated":false}}`})
	e, st := newTestEngine(t, c)

	v := e.VerifyMigration(ctx)
	assert.Equal(t, 0, v.Legacy.Users)

	res := e.MigrateAll(ctx)
	require.True(t, res.Success)
	assert.Equal(t, 0, res.Migrated.Users)
	assert.Nil(t, st.GetUserByEmail(ctx, "ghost@example.com"))
}

func TestMigrateAll_BrokenMusicReportedOnce(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	seed(t, c, map[string]string{cache.LegacyMusicKey: `{"state":`})
	e, _ := newTestEngine(t, c)

	res := e.MigrateAll(ctx)
	require.True(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], cache.LegacyMusicKey)
}
