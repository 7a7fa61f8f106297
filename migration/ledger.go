package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"Bt1QSocial/cache"
)

const (
	familyUser         = "user"
	familyTrack        = "track"
	familyPlaylist     = "playlist"
	familyConversation = "conversation"
	familyMessage      = "message"
	familyProject      = "project"
	familyApplication  = "application"
)

// ledger records every legacy record already migrated as
// "<family>:<legacyId>" → new id. It makes re-runs skip finished records
// and doubles as the id map used to re-point foreign keys.
type ledger struct {
	c       cache.LocalCache
	key     string
	entries map[string]string
	loaded  bool
	dirty   bool
}

func newLedger(c cache.LocalCache, key string) *ledger {
	return &ledger{c: c, key: key, entries: make(map[string]string)}
}

func ledgerKey(family, legacyID string) string {
	return family + ":" + legacyID
}

func (l *ledger) load(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	raw, err := l.c.Get(ctx, l.key)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
	case err != nil:
		return fmt.Errorf("read migration ledger: %w", err)
	default:
		if err := json.Unmarshal(raw, &l.entries); err != nil {
			return fmt.Errorf("decode migration ledger: %w", err)
		}
	}
	if l.entries == nil {
		l.entries = make(map[string]string)
	}
	l.loaded = true
	return nil
}

func (l *ledger) lookup(family, legacyID string) (string, bool) {
	if legacyID == "" {
		return "", false
	}
	id, ok := l.entries[ledgerKey(family, legacyID)]
	return id, ok
}

func (l *ledger) record(family, legacyID, newID string) {
	if legacyID == "" || newID == "" {
		return
	}
	l.entries[ledgerKey(family, legacyID)] = newID
	l.dirty = true
}

// relink maps a legacy foreign key to its migrated id, or returns it
// unchanged when the referenced record was never migrated.
func (l *ledger) relink(family, legacyID string) string {
	if id, ok := l.lookup(family, legacyID); ok {
		return id
	}
	return legacyID
}

func (l *ledger) save(ctx context.Context) error {
	if !l.dirty {
		return nil
	}
	data, err := json.Marshal(l.entries)
	if err != nil {
		return err
	}
	if err := l.c.Set(ctx, l.key, data); err != nil {
		return fmt.Errorf("write migration ledger: %w", err)
	}
	l.dirty = false
	return nil
}

func (l *ledger) size() int { return len(l.entries) }
