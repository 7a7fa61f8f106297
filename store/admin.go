package store

import (
	"context"

	"Bt1QSocial/logger"
	"Bt1QSocial/model"
)

// ForceSync pulls the remote snapshot unconditionally, bypassing the local
// cache. On success the remote copy replaces the in-memory snapshot and is
// mirrored locally. The returned snapshot is the one now held; ok reports
// whether the remote supplied it.
func (s *Store) ForceSync(ctx context.Context) (model.Snapshot, bool) {
	s.ensureReady(ctx)

	snap, err := s.pullRemote(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		logger.Warn("[Store] force sync failed, keeping local snapshot",
			logger.String("transport", s.transport.Name()),
			logger.ErrorField(err))
		return *s.exportLocked(), false
	}

	s.db = snap
	s.cloud = true
	exp := s.writeCacheLocked(ctx)
	logger.Info("[Store] adopted remote snapshot",
		logger.String("transport", s.transport.Name()),
		logger.Time("lastSync", snap.LastSync))
	return *exp, true
}

// ReloadFromCache replaces the in-memory snapshot with the local cache
// copy, picking up writes made by another process such as a migration run.
func (s *Store) ReloadFromCache(ctx context.Context) bool {
	s.ensureReady(ctx)

	snap, err := s.readCache(ctx)
	if err != nil {
		logger.Warn("[Store] reload from cache failed", logger.ErrorField(err))
		return false
	}

	s.mu.Lock()
	s.db = snap
	s.cloud = false
	s.mu.Unlock()
	return true
}

// Export returns a deep copy of the whole snapshot with derived fields filled.
func (s *Store) Export(ctx context.Context) model.Snapshot {
	var out model.Snapshot
	s.read(ctx, func(db *model.Snapshot) {
		out = *s.exportLocked()
	})
	return out
}

// GetDataSummary 数据概览，用于健康检查
func (s *Store) GetDataSummary(ctx context.Context) model.DataSummary {
	deviceID := s.deviceID(ctx)
	var sum model.DataSummary
	s.read(ctx, func(db *model.Snapshot) {
		sum = model.DataSummary{
			TotalUsers:         len(db.Users),
			TotalTracks:        len(db.Tracks),
			TotalPlaylists:     len(db.Playlists),
			TotalConversations: len(db.Conversations),
			TotalMessages:      len(db.Messages),
			TotalComments:      len(db.Comments),
			TotalNotifications: len(db.Notifications),
			TotalFollows:       len(db.Follows),
			TotalProjects:      len(db.Projects),
			TotalApplications:  len(db.Applications),
			LastSync:           db.LastSync,
			IsCloudConnected:   s.cloud,
			DeviceID:           deviceID,
			State:              string(s.state),
		}
	})
	return sum
}
