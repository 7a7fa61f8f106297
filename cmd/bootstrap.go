package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"Bt1QSocial/cache"
	"Bt1QSocial/config"
	"Bt1QSocial/db"
	"Bt1QSocial/logger"
	"Bt1QSocial/migration"
	"Bt1QSocial/remote"
	"Bt1QSocial/storage"
	"Bt1QSocial/store"
	"Bt1QSocial/syncer"
)

// app is everything a command needs, built from configuration.
type app struct {
	cache     cache.LocalCache
	transport remote.Transport
	pusher    *syncer.Pusher
	store     *store.Store
	engine    *migration.Engine
}

func bootstrap(ctx context.Context, cfg *config.Config) (*app, error) {
	c := openCache(cfg)

	t, err := openTransport(ctx, cfg)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	pusher := syncer.NewPusher(t, syncer.Options{
		Namespace:       cfg.Namespace,
		Timeout:         cfg.SyncTimeout,
		MaxRetries:      cfg.SyncMaxRetries,
		BaseBackoff:     cfg.SyncBaseBackoff,
		MaxBackoff:      cfg.SyncMaxBackoff,
		PushesPerMinute: cfg.SyncPushPerMinute,
		DeadLetter:      c,
	})
	st := store.New(c, t, store.Options{
		Namespace:     cfg.Namespace,
		RemoteTimeout: cfg.SyncTimeout,
		Pusher:        pusher,
	})

	logger.Info("Application bootstrapped",
		logger.String("namespace", cfg.Namespace),
		logger.String("cache", cfg.CacheBackend),
		logger.String("remote", t.Name()))

	return &app{
		cache:     c,
		transport: t,
		pusher:    pusher,
		store:     st,
		engine:    migration.NewEngine(st, c, migration.Options{Namespace: cfg.Namespace}),
	}, nil
}

// openCache falls back to an in-memory cache when the configured backend is
// unreachable, so the store still works for the lifetime of the process.
func openCache(cfg *config.Config) cache.LocalCache {
	switch cfg.CacheBackend {
	case "sqlite", "":
		if dir := filepath.Dir(cfg.CachePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				logger.Warn("创建缓存目录失败", logger.ErrorField(err))
			}
		}
		c, err := cache.OpenSQLite(cfg.CachePath)
		if err == nil {
			return c
		}
		logger.Error("打开 SQLite 缓存失败，使用内存缓存", logger.ErrorField(err))
	case "redis":
		client, err := db.ConnectRedis(cfg)
		if err == nil {
			return cache.NewRedisCache(client)
		}
		logger.Error("连接 Redis 缓存失败，使用内存缓存", logger.ErrorField(err))
	case "mysql":
		gdb, err := db.ConnectGormDB(cfg)
		if err == nil {
			var c *cache.GormCache
			if c, err = cache.NewGormCache(gdb); err == nil {
				return c
			}
			_ = db.CloseGormDB()
		}
		logger.Error("连接 MySQL 缓存失败，使用内存缓存", logger.ErrorField(err))
	case "memory":
	default:
		logger.Warn("未知的缓存类型，使用内存缓存", logger.String("backend", cfg.CacheBackend))
	}
	return cache.NewMemoryCache()
}

func openTransport(ctx context.Context, cfg *config.Config) (remote.Transport, error) {
	switch cfg.RemoteBackend {
	case "none", "":
		return remote.NopTransport{}, nil
	case "chat":
		if cfg.ChatAPIKey == "" {
			return nil, fmt.Errorf("REMOTE_BACKEND=chat requires CHAT_API_KEY")
		}
		return remote.NewChatTransport(remote.ChatConfig{
			APIBaseURL:  cfg.ChatAPIBaseURL,
			APIKey:      cfg.ChatAPIKey,
			Model:       cfg.ChatModel,
			MaxTokens:   cfg.ChatMaxTokens,
			Temperature: cfg.ChatTemperature,
		}, nil), nil
	case "minio":
		client, err := newMinioClient(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return remote.NewObjectTransport(client, cfg.Namespace), nil
	case "redis":
		return remote.NewRedisTransport(cfg.RemoteRedisAddr, cfg.RemoteRedisPassword, cfg.RemoteRedisDB, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown REMOTE_BACKEND %q", cfg.RemoteBackend)
	}
}

func newMinioClient(cfg *config.Config) (*storage.MinioClient, error) {
	return storage.NewMinioClient(
		cfg.MinioEndpoint,
		cfg.MinioAccessKey,
		cfg.MinioSecretKey,
		cfg.MinioBucket,
		cfg.MinioRegion,
		cfg.MinioUseSSL,
	)
}

// Close flushes pending pushes before releasing the cache they write to.
func (a *app) Close(ctx context.Context) {
	if err := a.store.Flush(ctx); err != nil {
		logger.Warn("等待同步完成超时", logger.ErrorField(err))
	}
	_ = a.store.Close()
	_ = a.pusher.Close()
	if closer, ok := a.transport.(io.Closer); ok {
		_ = closer.Close()
	}
	if err := a.cache.Close(); err != nil {
		logger.Warn("关闭本地缓存失败", logger.ErrorField(err))
	}
}
