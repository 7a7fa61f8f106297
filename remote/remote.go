// Package remote moves whole database snapshots to and from a remote
// counterpart. Every backend implements Transport; callers treat every
// error as "no remote available" and keep working locally.
package remote

import (
	"context"
	"errors"

	"Bt1QSocial/model"
)

var (
	// ErrNoRemoteData means the remote holds no usable snapshot: nothing
	// stored, unreachable, malformed or failing validation.
	ErrNoRemoteData = errors.New("remote: no remote data available")
	// ErrNotAcknowledged means the remote answered a push without the
	// acknowledgment token. Retrying the same payload will not help.
	ErrNotAcknowledged = errors.New("remote: push not acknowledged")
	// ErrRemoteDisabled is returned by NopTransport.Push.
	ErrRemoteDisabled = errors.New("remote: sync disabled")
)

// Payload is what a push carries: the full snapshot plus the installation
// identifier of the writer.
type Payload struct {
	Snapshot model.Snapshot
	DeviceID string
}

// Transport is a typed request/response contract with a remote backend.
type Transport interface {
	// Push stores p remotely; nil means acknowledged.
	Push(ctx context.Context, p Payload) error
	// Pull returns the latest remote snapshot or an error wrapping
	// ErrNoRemoteData.
	Pull(ctx context.Context) (*model.Snapshot, error)
	Name() string
}

// NopTransport is used when no remote backend is configured.
type NopTransport struct{}

func (NopTransport) Push(ctx context.Context, p Payload) error { return ErrRemoteDisabled }

func (NopTransport) Pull(ctx context.Context) (*model.Snapshot, error) { return nil, ErrNoRemoteData }

func (NopTransport) Name() string { return "none" }

var (
	_ Transport = NopTransport{}
	_ Transport = (*ChatTransport)(nil)
	_ Transport = (*ObjectTransport)(nil)
	_ Transport = (*RedisTransport)(nil)
)
