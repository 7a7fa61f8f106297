package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CacheEntry is the row model of the MySQL-backed cache.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:191"`
	Value     []byte    `gorm:"type:longblob;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (CacheEntry) TableName() string {
	return "kv_entries"
}

// GormCache stores entries in a MySQL table through GORM.
type GormCache struct {
	db *gorm.DB
}

// NewGormCache migrates the kv_entries table and returns the cache.
func NewGormCache(db *gorm.DB) (*GormCache, error) {
	if db == nil {
		return nil, fmt.Errorf("GORM database not initialized")
	}
	if err := db.AutoMigrate(&CacheEntry{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate cache table: %w", err)
	}
	return &GormCache{db: db}, nil
}

func (c *GormCache) Get(ctx context.Context, key string) ([]byte, error) {
	var entry CacheEntry
	err := c.db.WithContext(ctx).Where("`key` = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	return entry.Value, nil
}

func (c *GormCache) Set(ctx context.Context, key string, value []byte) error {
	entry := CacheEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (c *GormCache) Delete(ctx context.Context, key string) error {
	if err := c.db.WithContext(ctx).Where("`key` = ?", key).Delete(&CacheEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

func (c *GormCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := c.db.WithContext(ctx).Model(&CacheEntry{}).
		Where("LEFT(`key`, ?) = ?", len([]rune(prefix)), prefix).
		Order("`key`").
		Pluck("key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

func (c *GormCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
