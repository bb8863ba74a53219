// Package stampnet publishes and fetches identity chains over pluggable
// network backends.
package stampnet

import (
	"context"
	"errors"
	"fmt"

	stamperrors "github.com/stampnet/stampd/pkg/errors"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/logging"
	"github.com/stampnet/stampd/pkg/tx"

	"github.com/stampnet/stampd/internal/observability"
	"github.com/stampnet/stampd/internal/stampnet/physical"
)

// Network wraps a physical backend with chain-aware operations. Fetched
// chains are fully re-validated; the network is treated as untrusted bytes.
type Network struct {
	backend physical.Backend
	metrics *observability.Metrics
	log     *logging.Logger
}

// New creates a network on a named backend with the given configuration.
func New(ctx context.Context, backendName string, config map[string]string, metrics *observability.Metrics) (*Network, error) {
	backend, err := physical.New(ctx, backendName, config, metrics)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(backend, metrics), nil
}

// NewWithBackend creates a network on an existing backend.
func NewWithBackend(backend physical.Backend, metrics *observability.Metrics) *Network {
	return &Network{
		backend: backend,
		metrics: metrics,
		log:     logging.New(nil).WithComponent("stampnet"),
	}
}

// Publish uploads the committed chain of a ledger, replacing any previously
// published version.
func (n *Network) Publish(ctx context.Context, l *ledger.Ledger) error {
	op, ctx := observability.StartOperation(ctx, n.metrics, "stampnet.publish")
	var err error
	defer func() { op.End(err) }()

	var data []byte
	data, err = l.Serialize()
	if err != nil {
		return fmt.Errorf("serialize chain: %w", err)
	}
	err = n.backend.Publish(ctx, l.IdentityID().Hex(), data)
	if err != nil {
		return fmt.Errorf("publish chain: %w", err)
	}
	n.log.WithIdentity(l.IdentityID()).WithTx("tip", l.Tip()).
		InfoContext(ctx, "chain published", "length", l.Len())
	return nil
}

// Fetch downloads a published chain and rebuilds the ledger, re-validating
// every transaction.
func (n *Network) Fetch(ctx context.Context, identityID tx.ID) (*ledger.Ledger, error) {
	op, ctx := observability.StartOperation(ctx, n.metrics, "stampnet.fetch")
	var err error
	defer func() { op.End(err) }()

	var data []byte
	data, err = n.backend.Fetch(ctx, identityID.Hex())
	if errors.Is(err, physical.ErrNotFound) {
		err = fmt.Errorf("%w: identity %s", stamperrors.ErrNotFound, identityID.Short())
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("fetch chain: %w", err)
	}
	var l *ledger.Ledger
	l, err = ledger.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("published chain for %s: %w", identityID.Short(), err)
	}
	if l.IdentityID() != identityID {
		err = fmt.Errorf("%w: published chain has identity %s, want %s",
			ledger.ErrTamperedContent, l.IdentityID().Short(), identityID.Short())
		return nil, err
	}
	return l, nil
}

// Exists reports whether a chain is published for the identity.
func (n *Network) Exists(ctx context.Context, identityID tx.ID) (bool, error) {
	return n.backend.Exists(ctx, identityID.Hex())
}

// Close closes the underlying backend.
func (n *Network) Close() error {
	return n.backend.Close()
}
