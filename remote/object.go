package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"Bt1QSocial/model"
	"Bt1QSocial/storage"
)

// ObjectStore is the subset of storage.MinioClient the object transport uses.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// ObjectTransport keeps the snapshot as one JSON object in a bucket, plus a
// small marker per device recording its last push.
type ObjectTransport struct {
	store  ObjectStore
	prefix string
}

type deviceMarker struct {
	DeviceID string    `json:"deviceId"`
	LastPush time.Time `json:"lastPush"`
	LastSync time.Time `json:"lastSync"`
}

// NewObjectTransport stores objects under prefix (normally the namespace).
func NewObjectTransport(store ObjectStore, prefix string) *ObjectTransport {
	return &ObjectTransport{store: store, prefix: prefix}
}

func (t *ObjectTransport) Name() string { return "minio" }

// DatabaseObjectKey is the object holding the latest snapshot.
func (t *ObjectTransport) DatabaseObjectKey() string {
	return path.Join(t.prefix, "database.json")
}

func (t *ObjectTransport) deviceObjectKey(deviceID string) string {
	return path.Join(t.prefix, "devices", deviceID+".json")
}

func (t *ObjectTransport) Push(ctx context.Context, p Payload) error {
	data, err := MarshalPayload(p)
	if err != nil {
		return err
	}
	if err := t.store.PutObject(ctx, t.DatabaseObjectKey(), data, "application/json"); err != nil {
		return err
	}

	if p.DeviceID == "" {
		return nil
	}
	marker, err := json.Marshal(deviceMarker{DeviceID: p.DeviceID, LastPush: time.Now().UTC(), LastSync: p.Snapshot.LastSync})
	if err != nil {
		return fmt.Errorf("failed to marshal device marker: %w", err)
	}
	return t.store.PutObject(ctx, t.deviceObjectKey(p.DeviceID), marker, "application/json")
}

func (t *ObjectTransport) Pull(ctx context.Context) (*model.Snapshot, error) {
	data, err := t.store.GetObject(ctx, t.DatabaseObjectKey())
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s not found", ErrNoRemoteData, t.DatabaseObjectKey())
		}
		return nil, fmt.Errorf("%w: %v", ErrNoRemoteData, err)
	}
	return DecodeSnapshot(data)
}
