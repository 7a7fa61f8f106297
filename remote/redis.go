package remote

import (
	"context"
	"errors"
	"fmt"

	"Bt1QSocial/model"

	"github.com/redis/go-redis/v9"
)

// RedisTransport keeps the snapshot in a shared Redis instance.
type RedisTransport struct {
	client *redis.Client
	ns     string
}

// NewRedisTransport dials nothing; errors surface on first use.
func NewRedisTransport(addr, password string, db int, ns string) *RedisTransport {
	return NewRedisTransportWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), ns)
}

func NewRedisTransportWithClient(client *redis.Client, ns string) *RedisTransport {
	return &RedisTransport{client: client, ns: ns}
}

func (t *RedisTransport) Name() string { return "redis" }

// DatabaseKey holds the wire JSON of the latest snapshot.
func (t *RedisTransport) DatabaseKey() string { return t.ns + ":remote:database" }

// OriginKey holds the device id of the last writer.
func (t *RedisTransport) OriginKey() string { return t.ns + ":remote:origin" }

func (t *RedisTransport) Push(ctx context.Context, p Payload) error {
	data, err := MarshalPayload(p)
	if err != nil {
		return err
	}
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, t.DatabaseKey(), data, 0)
		pipe.Set(ctx, t.OriginKey(), p.DeviceID, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push snapshot to Redis: %w", err)
	}
	return nil
}

func (t *RedisTransport) Pull(ctx context.Context) (*model.Snapshot, error) {
	data, err := t.client.Get(ctx, t.DatabaseKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s not set", ErrNoRemoteData, t.DatabaseKey())
		}
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteData, err)
	}
	return DecodeSnapshot(data)
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
