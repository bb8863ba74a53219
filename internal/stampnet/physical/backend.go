// Package physical provides the network backend interface for publishing and
// fetching identity chains.
package physical

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no published chain exists for the identity.
	ErrNotFound = errors.New("chain not found")

	// ErrClosed indicates the backend has been closed.
	ErrClosed = errors.New("backend closed")
)

// Backend is the transport interface for published identity chains. A
// published chain is an opaque serialized blob keyed by identity ID; all
// validation happens on the consuming side. Implementations must be
// thread-safe.
type Backend interface {
	Publish(ctx context.Context, identityID string, chain []byte) error
	Fetch(ctx context.Context, identityID string) ([]byte, error)
	Exists(ctx context.Context, identityID string) (bool, error)
	Close() error
}
