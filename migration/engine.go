// Package migration moves the per-feature legacy blobs into the record store.
// Records go through the store's public operations only; the snapshot is
// never written directly.
package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/store"
)

// Counts tallies records per entity family.
type Counts struct {
	Users         int `json:"users"`
	Follows       int `json:"follows"`
	Tracks        int `json:"tracks"`
	Playlists     int `json:"playlists"`
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
	Projects      int `json:"projects"`
	Applications  int `json:"applications"`
}

// Result is what MigrateAll reports. Success is false only when the backup
// failed or the run aborted; per-record failures land in Errors.
type Result struct {
	Success    bool      `json:"success"`
	BackupKey  string    `json:"backupKey,omitempty"`
	Migrated   Counts    `json:"migrated"`
	Errors     []string  `json:"errors"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (r *Result) addError(family, legacyID string, err error) {
	if legacyID == "" {
		legacyID = "?"
	}
	r.Errors = append(r.Errors, fmt.Sprintf("%s %s: %v", family, legacyID, err))
}

// Options configures an Engine.
type Options struct {
	// Namespace defaults to the store's namespace.
	Namespace string
	Now       func() time.Time
}

// Engine runs one migration at a time.
type Engine struct {
	st     *store.Store
	c      cache.LocalCache
	ns     string
	now    func() time.Time
	ledger *ledger

	mu sync.Mutex
}

// NewEngine creates an Engine reading legacy blobs from c.
func NewEngine(st *store.Store, c cache.LocalCache, opts Options) *Engine {
	if opts.Namespace == "" {
		opts.Namespace = st.Namespace()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		st:     st,
		c:      c,
		ns:     opts.Namespace,
		now:    opts.Now,
		ledger: newLedger(c, cache.MigrationLedgerKey(opts.Namespace)),
	}
}

// MigrateAll backs up the cache and then migrates every family in
// dependency order: users, tracks, playlists, conversations, collaboration.
// It never panics or returns an error; the outcome is in the Result.
func (e *Engine) MigrateAll(ctx context.Context) (res Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res = Result{Errors: []string{}, StartedAt: e.now().UTC()}
	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Errors = append(res.Errors, fmt.Sprintf("migration aborted: %v", r))
			logger.Error("[Migration] aborted", logger.Any("panic", r))
		}
		e.saveLedger(ctx, &res)
		res.FinishedAt = e.now().UTC()
	}()

	logger.Info("[Migration] starting", logger.String("namespace", e.ns))

	key, err := e.backup(ctx)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("backup failed: %v", err))
		logger.Error("[Migration] backup failed, nothing migrated", logger.ErrorField(err))
		return res
	}
	res.BackupKey = key

	if err := e.ledger.load(ctx); err != nil {
		res.Errors = append(res.Errors, err.Error())
		logger.Error("[Migration] ledger unavailable", logger.ErrorField(err))
		return res
	}

	e.MigrateUsers(ctx, &res)
	e.MigrateTracks(ctx, &res)
	e.MigratePlaylists(ctx, &res)
	e.MigrateConversations(ctx, &res)
	e.MigrateCollaboration(ctx, &res)
	res.Success = true

	logger.Info("[Migration] finished",
		logger.String("backupKey", key),
		logger.Any("migrated", res.Migrated),
		logger.Int("errors", len(res.Errors)),
		logger.Int("ledger", e.ledger.size()))
	return res
}

// backup writes every cache key except earlier backups as one JSON object.
// Values that are not JSON are kept as strings.
func (e *Engine) backup(ctx context.Context) (string, error) {
	keys, err := e.c.Keys(ctx, "")
	if err != nil {
		return "", fmt.Errorf("list keys: %w", err)
	}

	dump := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if cache.IsBackupKey(e.ns, k) {
			continue
		}
		raw, err := e.c.Get(ctx, k)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", k, err)
		}
		if json.Valid(raw) {
			dump[k] = json.RawMessage(raw)
		} else {
			dump[k] = string(raw)
		}
	}

	data, err := json.Marshal(dump)
	if err != nil {
		return "", err
	}
	key := cache.BackupKey(e.ns, e.now())
	if err := e.c.Set(ctx, key, data); err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	logger.Info("[Migration] backup written", logger.String("key", key), logger.Int("keys", len(dump)))
	return key, nil
}

// begin makes the ledger available to a family step run on its own.
func (e *Engine) begin(ctx context.Context, res *Result) bool {
	if err := e.ledger.load(ctx); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return false
	}
	return true
}

func (e *Engine) saveLedger(ctx context.Context, res *Result) {
	if err := e.ledger.save(context.WithoutCancel(ctx)); err != nil {
		res.Errors = append(res.Errors, err.Error())
		logger.Error("[Migration] failed to persist ledger", logger.ErrorField(err))
	}
}

// guard runs one record's migration and turns a panic into a record error.
func guard(res *Result, family, legacyID string, fn func() error) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			res.addError(family, legacyID, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()
	if err := fn(); err != nil {
		res.addError(family, legacyID, err)
		return false
	}
	return true
}

// recordKey identifies a legacy record, falling back to its position when
// the record carries no id.
func recordKey(id legacyID, scope string, index int) string {
	if id != "" {
		return string(id)
	}
	return fmt.Sprintf("%s#%d", scope, index)
}
