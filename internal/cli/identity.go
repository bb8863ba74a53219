package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	stamperrors "github.com/stampnet/stampd/pkg/errors"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/staging"
	"github.com/stampnet/stampd/pkg/tx"
)

// ResolveIdentityID matches ref against stored identities. Ref may be a full
// hex ID or an unambiguous prefix.
func (rt *Runtime) ResolveIdentityID(ctx context.Context, ref string) (tx.ID, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		ids, err := rt.Store.ListIdentities(ctx)
		if err != nil {
			return tx.NilID, err
		}
		if len(ids) == 1 {
			return ids[0], nil
		}
		return tx.NilID, fmt.Errorf("%w: no identity given and %d stored", stamperrors.ErrInvalidInput, len(ids))
	}
	if id, err := tx.IDFromHex(ref); err == nil {
		return id, nil
	}

	ids, err := rt.Store.ListIdentities(ctx)
	if err != nil {
		return tx.NilID, err
	}
	var matches []tx.ID
	for _, id := range ids {
		if strings.HasPrefix(id.Hex(), ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return tx.NilID, fmt.Errorf("%w: identity %s", stamperrors.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return tx.NilID, fmt.Errorf("%w: identity prefix %s is ambiguous (%d matches)", stamperrors.ErrInvalidInput, ref, len(matches))
	}
}

// LoadManager loads an identity's ledger and rebuilds its staging manager
// from persisted envelopes. Envelopes that no longer validate (for example
// after a rollback removed their parent) are dropped with a warning.
func (rt *Runtime) LoadManager(ctx context.Context, identityID tx.ID) (*staging.Manager, *ledger.Ledger, error) {
	l, err := rt.Store.LoadLedger(ctx, identityID)
	if err != nil {
		return nil, nil, err
	}
	m := staging.New(l)

	stagedIDs, err := rt.Store.ListStaged(ctx, identityID)
	if err != nil {
		return nil, nil, err
	}
	for _, txID := range stagedIDs {
		data, err := rt.Store.LoadStaged(ctx, identityID, txID)
		if err != nil {
			return nil, nil, err
		}
		if _, err := m.Import(data); err != nil {
			slog.Warn("dropping stale staged transaction",
				"identity", identityID.Short(), "tx", txID.Short(), "error", err)
			if err := rt.Store.DeleteStaged(ctx, identityID, txID); err != nil {
				return nil, nil, err
			}
		}
	}
	if rt.Obs != nil && rt.Obs.Metrics != nil {
		rt.Obs.Metrics.StagedOpen.Set(float64(len(m.List())))
	}
	return m, l, nil
}

// SaveStagedItem persists one open staged transaction as an envelope.
func (rt *Runtime) SaveStagedItem(ctx context.Context, m *staging.Manager, identityID, txID tx.ID) error {
	data, err := m.Export(txID)
	if err != nil {
		return err
	}
	return rt.Store.SaveStaged(ctx, identityID, txID, data)
}

// CommitApply persists the outcome of a successful Apply: the grown chain is
// saved and the staged envelope removed.
func (rt *Runtime) CommitApply(ctx context.Context, l *ledger.Ledger, identityID, txID tx.ID) error {
	if err := rt.Store.SaveLedger(ctx, l); err != nil {
		return err
	}
	return rt.Store.DeleteStaged(ctx, identityID, txID)
}

// IsNotFound reports whether err is any of the store's not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, stamperrors.ErrNotFound)
}
