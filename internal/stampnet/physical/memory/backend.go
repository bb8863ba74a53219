// Package memory provides an in-memory network backend for testing.
package memory

import (
	"context"
	"sync"

	"github.com/stampnet/stampd/internal/stampnet/physical"
)

func init() {
	physical.Register("memory", NewFactory, Defaults)
}

// Defaults returns the default configuration for the memory backend.
func Defaults() map[string]string {
	return map[string]string{}
}

// NewFactory creates a new in-memory backend.
func NewFactory(_ context.Context, _ map[string]string) (physical.Backend, error) {
	return NewBackend(), nil
}

// Backend is a map-based implementation of physical.Backend.
type Backend struct {
	mu     sync.RWMutex
	chains map[string][]byte
	closed bool
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{chains: make(map[string][]byte)}
}

// Publish stores a chain, replacing any previous version.
func (b *Backend) Publish(_ context.Context, identityID string, chain []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return physical.ErrClosed
	}
	cp := make([]byte, len(chain))
	copy(cp, chain)
	b.chains[identityID] = cp
	return nil
}

// Fetch retrieves a published chain.
func (b *Backend) Fetch(_ context.Context, identityID string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, physical.ErrClosed
	}
	chain, ok := b.chains[identityID]
	if !ok {
		return nil, physical.ErrNotFound
	}
	cp := make([]byte, len(chain))
	copy(cp, chain)
	return cp, nil
}

// Exists reports whether a chain is published for the identity.
func (b *Backend) Exists(_ context.Context, identityID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false, physical.ErrClosed
	}
	_, ok := b.chains[identityID]
	return ok, nil
}

// Close releases the backend.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.chains = nil
	return nil
}
