package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DeviceID returns the installation identifier of namespace ns, generating
// and persisting one on first use.
func DeviceID(ctx context.Context, c LocalCache, ns string) (string, error) {
	key := DeviceIDKey(ns)
	raw, err := c.Get(ctx, key)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id := "device_" + uuid.NewString()
	if err := c.Set(ctx, key, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}
