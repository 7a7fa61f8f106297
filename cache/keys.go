package cache

import (
	"fmt"
	"strings"
	"time"
)

// 旧版本各功能模块独立持久化的键（迁移引擎只读）
const (
	LegacyAuthKey          = "auth-storage"
	LegacyUsersKey         = "users-storage"
	LegacyMusicKey         = "music-storage"
	LegacyMessagesKey      = "messages-storage"
	LegacyCollaborationKey = "collaboration-storage"
)

// LegacyKeys lists the legacy namespaces in migration order.
var LegacyKeys = []string{
	LegacyAuthKey,
	LegacyUsersKey,
	LegacyMusicKey,
	LegacyMessagesKey,
	LegacyCollaborationKey,
}

// DatabaseKey holds the full JSON snapshot.
func DatabaseKey(ns string) string { return ns + ".database" }

// DeviceIDKey holds the per-installation identifier.
func DeviceIDKey(ns string) string { return ns + ".device_id" }

// BackupPrefix is shared by every migration backup key of a namespace.
func BackupPrefix(ns string) string { return ns + ".backup." }

// BackupKey 生成带时间戳的备份键
func BackupKey(ns string, at time.Time) string {
	return fmt.Sprintf("%s%d", BackupPrefix(ns), at.UnixMilli())
}

// IsBackupKey reports whether key is a migration backup of ns.
func IsBackupKey(ns, key string) bool {
	return strings.HasPrefix(key, BackupPrefix(ns))
}

// MigrationLedgerKey maps migrated legacy records to their new ids.
func MigrationLedgerKey(ns string) string { return ns + ".migration.ledger" }

// DeadLetterKey holds the last snapshot push that exhausted its retries.
func DeadLetterKey(ns string) string { return ns + ".sync.deadletter" }
