// Package ledgerstore persists identity chains and staged transaction
// envelopes through pluggable physical backends.
package ledgerstore

import (
	"context"
	"errors"
	"fmt"

	stamperrors "github.com/stampnet/stampd/pkg/errors"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/logging"
	"github.com/stampnet/stampd/pkg/tx"

	"github.com/stampnet/stampd/internal/ledgerstore/physical"
	"github.com/stampnet/stampd/internal/observability"
)

// Store wraps a physical backend with chain-aware operations. Loaded chains
// are fully re-validated; the backend is treated as untrusted bytes.
type Store struct {
	backend physical.Backend
	metrics *observability.Metrics
	log     *logging.Logger
}

// New creates a store on a named backend with the given configuration.
func New(ctx context.Context, backendName string, config map[string]string, metrics *observability.Metrics) (*Store, error) {
	backend, err := physical.New(ctx, backendName, config, metrics)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(backend, metrics), nil
}

// NewWithBackend creates a store on an existing backend.
func NewWithBackend(backend physical.Backend, metrics *observability.Metrics) *Store {
	return &Store{
		backend: backend,
		metrics: metrics,
		log:     logging.New(nil).WithComponent("ledgerstore"),
	}
}

// SaveLedger persists the committed chain of a ledger.
func (s *Store) SaveLedger(ctx context.Context, l *ledger.Ledger) error {
	op, ctx := observability.StartOperation(ctx, s.metrics, "ledgerstore.save")
	var err error
	defer func() { op.End(err) }()

	var data []byte
	data, err = l.Serialize()
	if err != nil {
		return fmt.Errorf("serialize chain: %w", err)
	}
	err = s.backend.PutChain(ctx, l.IdentityID().Hex(), data)
	if err != nil {
		return fmt.Errorf("put chain: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ChainLength.WithLabelValues(l.IdentityID().Short()).Set(float64(l.Len()))
	}
	s.log.WithIdentity(l.IdentityID()).WithTx("tip", l.Tip()).
		DebugContext(ctx, "chain saved", "length", l.Len())
	return nil
}

// LoadLedger rebuilds a ledger from a stored chain, re-validating every
// transaction.
func (s *Store) LoadLedger(ctx context.Context, identityID tx.ID) (*ledger.Ledger, error) {
	op, ctx := observability.StartOperation(ctx, s.metrics, "ledgerstore.load")
	var err error
	defer func() { op.End(err) }()

	var data []byte
	data, err = s.backend.GetChain(ctx, identityID.Hex())
	if errors.Is(err, physical.ErrNotFound) {
		err = fmt.Errorf("%w: identity %s", stamperrors.ErrNotFound, identityID.Short())
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("get chain: %w", err)
	}
	var l *ledger.Ledger
	l, err = ledger.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("stored chain for %s: %w", identityID.Short(), err)
	}
	if l.IdentityID() != identityID {
		err = fmt.Errorf("%w: stored chain has identity %s, want %s",
			ledger.ErrTamperedContent, l.IdentityID().Short(), identityID.Short())
		return nil, err
	}
	return l, nil
}

// DeleteLedger removes a chain and all staged envelopes under it.
func (s *Store) DeleteLedger(ctx context.Context, identityID tx.ID) error {
	op, ctx := observability.StartOperation(ctx, s.metrics, "ledgerstore.delete")
	err := s.backend.DeleteChain(ctx, identityID.Hex())
	op.End(err)
	if err == nil {
		s.log.WithIdentity(identityID).InfoContext(ctx, "chain deleted")
	}
	return err
}

// ListIdentities returns the identity IDs of all stored chains.
func (s *Store) ListIdentities(ctx context.Context) ([]tx.ID, error) {
	hexIDs, err := s.backend.ListChains(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]tx.ID, 0, len(hexIDs))
	for _, h := range hexIDs {
		id, err := tx.IDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("stored chain key %q: %w", h, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveStaged persists a staged transaction envelope.
func (s *Store) SaveStaged(ctx context.Context, identityID, txID tx.ID, envelope []byte) error {
	return s.backend.PutStaged(ctx, identityID.Hex(), txID.Hex(), envelope)
}

// LoadStaged retrieves a staged transaction envelope.
func (s *Store) LoadStaged(ctx context.Context, identityID, txID tx.ID) ([]byte, error) {
	data, err := s.backend.GetStaged(ctx, identityID.Hex(), txID.Hex())
	if errors.Is(err, physical.ErrNotFound) {
		return nil, fmt.Errorf("%w: staged %s", stamperrors.ErrNotFound, txID.Short())
	}
	return data, err
}

// DeleteStaged removes a staged transaction envelope. Idempotent.
func (s *Store) DeleteStaged(ctx context.Context, identityID, txID tx.ID) error {
	return s.backend.DeleteStaged(ctx, identityID.Hex(), txID.Hex())
}

// ListStaged returns the transaction IDs staged for an identity.
func (s *Store) ListStaged(ctx context.Context, identityID tx.ID) ([]tx.ID, error) {
	hexIDs, err := s.backend.ListStaged(ctx, identityID.Hex())
	if err != nil {
		return nil, err
	}
	ids := make([]tx.ID, 0, len(hexIDs))
	for _, h := range hexIDs {
		id, err := tx.IDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("stored staged key %q: %w", h, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats reports backend statistics.
func (s *Store) Stats(ctx context.Context) (*physical.Stats, error) {
	return s.backend.Stats(ctx)
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
