// Package physical provides the physical storage backend interface for
// identity chains and staged transactions.
package physical

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("backend closed")
)

// Stats contains storage statistics.
type Stats struct {
	Chains      int64
	Staged      int64
	BackendType string
}

// Backend is the physical storage interface for the identity database.
// Chains and staged envelopes are opaque serialized blobs keyed by hex IDs.
// All implementations must be thread-safe.
type Backend interface {
	PutChain(ctx context.Context, identityID string, data []byte) error
	GetChain(ctx context.Context, identityID string) ([]byte, error)
	DeleteChain(ctx context.Context, identityID string) error
	ListChains(ctx context.Context) ([]string, error)

	PutStaged(ctx context.Context, identityID, txID string, data []byte) error
	GetStaged(ctx context.Context, identityID, txID string) ([]byte, error)
	DeleteStaged(ctx context.Context, identityID, txID string) error
	ListStaged(ctx context.Context, identityID string) ([]string, error)

	Stats(ctx context.Context) (*Stats, error)
	Close() error
}
