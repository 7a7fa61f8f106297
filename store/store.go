// Package store is the local-first record store: one in-memory snapshot of
// every collection, mirrored to the local cache on each write and pushed to
// the remote transport in the background.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/model"
	"Bt1QSocial/remote"
	"Bt1QSocial/syncer"

	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of a Store.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateInitializing  State = "INITIALIZING"
	StateReady         State = "READY"
)

// Options configures a Store.
type Options struct {
	Namespace     string
	Now           func() time.Time
	RemoteTimeout time.Duration
	// Pusher delivers snapshots to the transport. When nil the store starts
	// its own with default settings and closes it in Close.
	Pusher *syncer.Pusher
}

// Store owns the snapshot. Nothing outside the package ever holds a
// reference into it: reads return copies and writes go through mutate.
type Store struct {
	cache         cache.LocalCache
	transport     remote.Transport
	pusher        *syncer.Pusher
	ownsPusher    bool
	ns            string
	now           func() time.Time
	remoteTimeout time.Duration

	initGroup singleflight.Group

	mu    sync.RWMutex
	state State
	db    *model.Snapshot
	cloud bool // 当前快照来自远端

	deviceMu sync.Mutex
	device   string
}

// New creates a Store. It does no I/O; the first operation initializes it.
func New(c cache.LocalCache, t remote.Transport, opts Options) *Store {
	if opts.Namespace == "" {
		opts.Namespace = "bt1q"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = 10 * time.Second
	}
	if t == nil {
		t = remote.NopTransport{}
	}

	s := &Store{
		cache:         c,
		transport:     t,
		pusher:        opts.Pusher,
		ns:            opts.Namespace,
		now:           opts.Now,
		remoteTimeout: opts.RemoteTimeout,
		state:         StateUninitialized,
	}
	if s.pusher == nil {
		s.pusher = syncer.NewPusher(t, syncer.Options{Namespace: opts.Namespace, DeadLetter: c})
		s.ownsPusher = true
	}
	return s
}

// Namespace returns the cache key namespace of the store.
func (s *Store) Namespace() string { return s.ns }

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// clock returns the current time in UTC at millisecond precision, the
// resolution every persisted timestamp is kept at.
func (s *Store) clock() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Init loads the snapshot: remote first, then the local cache, then an
// empty database. It never fails; concurrent callers share one run.
func (s *Store) Init(ctx context.Context) {
	if s.State() == StateReady {
		return
	}
	_, _, _ = s.initGroup.Do("init", func() (interface{}, error) {
		s.mu.Lock()
		if s.state == StateReady {
			s.mu.Unlock()
			return nil, nil
		}
		s.state = StateInitializing
		s.mu.Unlock()

		snap, fromRemote := s.load(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.db = snap
		s.cloud = fromRemote
		s.writeCacheLocked(ctx)
		s.state = StateReady

		logger.Info("[Store] initialized",
			logger.String("namespace", s.ns),
			logger.Bool("cloud", fromRemote),
			logger.Int("users", len(snap.Users)),
			logger.Int("tracks", len(snap.Tracks)))
		return nil, nil
	})
}

func (s *Store) ensureReady(ctx context.Context) {
	s.Init(ctx)
}

// load ignores the caller's cancellation so a cancelled request never reads
// as an empty cache. The remote pull keeps its own timeout.
func (s *Store) load(ctx context.Context) (*model.Snapshot, bool) {
	ctx = context.WithoutCancel(ctx)

	snap, err := s.pullRemote(ctx)
	if err == nil {
		return snap, true
	}
	logger.Info("[Store] remote snapshot unavailable, trying local cache",
		logger.String("transport", s.transport.Name()),
		logger.ErrorField(err))

	snap, err = s.readCache(ctx)
	if err == nil {
		return snap, false
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("[Store] failed to read cached snapshot", logger.ErrorField(err))
	}

	logger.Info("[Store] starting with an empty database", logger.String("namespace", s.ns))
	return model.NewSnapshot(s.clock()), false
}

func (s *Store) pullRemote(ctx context.Context) (*model.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.remoteTimeout)
	defer cancel()

	snap, err := s.transport.Pull(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, remote.ErrNoRemoteData
	}
	absorbDerived(snap)
	return snap, nil
}

func (s *Store) readCache(ctx context.Context) (*model.Snapshot, error) {
	raw, err := s.cache.Get(ctx, cache.DatabaseKey(s.ns))
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	absorbDerived(&snap)
	return &snap, nil
}

// writeCacheLocked mirrors the snapshot to the local cache. A failed write
// is logged only; the in-memory result still stands.
func (s *Store) writeCacheLocked(ctx context.Context) *model.Snapshot {
	exp := s.exportLocked()
	data, err := json.Marshal(exp)
	if err != nil {
		logger.Error("[Store] failed to encode snapshot", logger.ErrorField(err))
		return exp
	}
	if err := s.cache.Set(context.WithoutCancel(ctx), cache.DatabaseKey(s.ns), data); err != nil {
		logger.Error("[Store] failed to write snapshot to local cache",
			logger.String("namespace", s.ns),
			logger.ErrorField(err))
	}
	return exp
}

// mutate runs fn under the write lock. When fn reports a change, lastSync
// is advanced, the snapshot is written to the local cache and a push is
// queued, all before the lock is released so cache writes and queued
// pushes follow mutation order.
func (s *Store) mutate(ctx context.Context, fn func(db *model.Snapshot, now time.Time) (bool, error)) error {
	s.ensureReady(ctx)
	deviceID := s.deviceID(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	changed, err := fn(s.db, now)
	if err != nil || !changed {
		return err
	}
	s.touchLocked(now)
	exp := s.writeCacheLocked(ctx)
	s.pusher.Enqueue(remote.Payload{Snapshot: *exp, DeviceID: deviceID})
	return nil
}

// read runs fn under the read lock.
func (s *Store) read(ctx context.Context, fn func(db *model.Snapshot)) {
	s.ensureReady(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.db)
}

// touchLocked advances lastSync; it is strictly increasing even when the
// clock stands still or steps back.
func (s *Store) touchLocked(now time.Time) {
	next := now
	if floor := s.db.LastSync.Add(time.Millisecond); next.Before(floor) {
		next = floor
	}
	s.db.LastSync = next
}

func (s *Store) deviceID(ctx context.Context) string {
	s.deviceMu.Lock()
	defer s.deviceMu.Unlock()
	if s.device != "" {
		return s.device
	}
	id, err := cache.DeviceID(ctx, s.cache, s.ns)
	if err != nil {
		logger.Warn("[Store] device id unavailable", logger.ErrorField(err))
		return ""
	}
	s.device = id
	return id
}

// Flush waits for queued pushes to finish.
func (s *Store) Flush(ctx context.Context) error {
	return s.pusher.Flush(ctx)
}

// Close stops the push worker if the store started it.
func (s *Store) Close() error {
	if s.ownsPusher {
		return s.pusher.Close()
	}
	return nil
}
