// Package staging holds transactions that are waiting on signature quorum.
//
// Quorum thresholds above one require collecting signatures from key holders
// on different machines, usually offline; there is no live multi-party
// session. A staged transaction pins its parent to the ledger tip at staging
// time, accumulates signatures one at a time, and travels between signers as
// an opaque versioned envelope. Every re-entry point (import, apply)
// re-validates from scratch: the set of authorized signers may have changed
// since the last hop, so prior validation is never trusted.
package staging

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

var (
	// ErrNotFound indicates no staged transaction with the given ID.
	ErrNotFound = fmt.Errorf("%w: staged transaction not found", ledger.ErrState)
	// ErrResolved indicates the staged transaction was already applied or
	// discarded; terminal states are sticky.
	ErrResolved = fmt.Errorf("%w: staged transaction already resolved", ledger.ErrState)
	// ErrDuplicateSigner indicates the signer already contributed.
	ErrDuplicateSigner = fmt.Errorf("%w: duplicate signer", ledger.ErrAuthorization)
	// ErrBadSignature indicates a signature that does not verify against
	// the staged content.
	ErrBadSignature = fmt.Errorf("%w: bad signature on staged transaction", ledger.ErrAuthorization)
	// ErrQuorumNotMetAtApply indicates quorum failed the apply-time
	// re-check. Signatures collected at staging time may have been
	// invalidated by an intervening commit, e.g. a signer's key revocation.
	ErrQuorumNotMetAtApply = fmt.Errorf("%w: quorum not met at apply", ledger.ErrAuthorization)
	// ErrForeignParent indicates an imported transaction whose parent is
	// not part of the local chain.
	ErrForeignParent = fmt.Errorf("%w: parent not in local chain", ledger.ErrStructural)
)

// State is the lifecycle position of a staged transaction.
type State string

const (
	// StateOpen accepts more signatures and may be applied or discarded.
	StateOpen State = "open"
	// StateApplied means the transaction was committed to the ledger.
	StateApplied State = "applied"
	// StateDiscarded means the transaction was dropped without effect.
	StateDiscarded State = "discarded"
)

// Staged is one transaction awaiting quorum.
type Staged struct {
	Tx       tx.Transaction
	State    State
	StagedAt time.Time
}

// Manager owns all staged transactions for one identity. The ledger never
// references staged items; only Apply moves one across.
type Manager struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
	items  map[tx.ID]*Staged
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager over the given ledger. A nil ledger is allowed but
// Stage fails until an identity exists.
func New(l *ledger.Ledger, opts ...Option) *Manager {
	m := &Manager{
		ledger: l,
		items:  make(map[tx.ID]*Staged),
		now:    time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Stage builds a new staged transaction from a body, pinning its parent to
// the current ledger tip, with an empty signature set.
func (m *Manager) Stage(body tx.Body) (*Staged, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ledger == nil {
		return nil, ledger.ErrNotReady
	}
	t, err := tx.New(m.ledger.Tip(), m.now(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStructural, err)
	}
	item := &Staged{Tx: t, State: StateOpen, StagedAt: m.now()}
	m.items[t.ID] = item
	return cloneStaged(item), nil
}

// Get returns a copy of the staged transaction with the given ID.
func (m *Manager) Get(id tx.ID) (*Staged, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	return cloneStaged(item), nil
}

// List returns copies of all open staged transactions, oldest first.
func (m *Manager) List() []*Staged {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Staged, 0, len(m.items))
	for _, item := range m.items {
		if item.State == StateOpen {
			out = append(out, cloneStaged(item))
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StagedAt.Before(out[j-1].StagedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// AddSignature verifies and appends one signer's contribution. The claimed
// capability is fixed to the staged body's capability; duplicate signers and
// signatures that do not verify over the staged content are rejected.
func (m *Manager) AddSignature(id tx.ID, signer identity.PublicKey, sig identity.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if item.State != StateOpen {
		return fmt.Errorf("%w: %s is %s", ErrResolved, id.Short(), item.State)
	}
	if item.Tx.HasSigner(signer) {
		return fmt.Errorf("%w: %s", ErrDuplicateSigner, signer.Short())
	}
	content, err := item.Tx.ContentBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStructural, err)
	}
	if !identity.Verify(signer, content, sig) {
		return fmt.Errorf("%w: signer %s", ErrBadSignature, signer.Short())
	}
	item.Tx = item.Tx.WithSignature(tx.Sig{
		Signer:     signer,
		Signature:  sig,
		Capability: item.Tx.Body.Capability(),
	})
	return nil
}

// Ready reports whether the staged transaction currently satisfies quorum
// against the ledger head. Advisory only: quorum being met does not apply
// anything, and Apply re-checks.
func (m *Manager) Ready(id tx.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if item.State != StateOpen || m.ledger == nil {
		return false, nil
	}
	return m.headQuorum(item), nil
}

// headQuorum evaluates the staged transaction's accumulated signatures
// against the current ledger head. Signers whose keys are no longer active
// do not count. Caller holds the lock.
func (m *Manager) headQuorum(item *Staged) bool {
	snap := m.ledger.Head()
	var signers []identity.PublicKey
	for _, s := range item.Tx.Signatures {
		if snap.KeyActive(s.Signer) {
			signers = append(signers, s.Signer)
		}
	}
	return snap.Engine().Evaluate(item.Tx.Body.Capability(), signers)
}

// Apply commits the staged transaction to the ledger with its accumulated
// signatures. Quorum is re-evaluated at apply time; signers whose keys were
// revoked since staging no longer count, and the error says so. On success
// the item leaves staging and the new tip is returned; on failure the item
// stays open for more signatures or correction.
func (m *Manager) Apply(id tx.ID) (tx.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return tx.NilID, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if item.State != StateOpen {
		return tx.NilID, fmt.Errorf("%w: %s is %s", ErrResolved, id.Short(), item.State)
	}
	if m.ledger == nil {
		return tx.NilID, ledger.ErrNotReady
	}
	// Quorum is re-checked against the current head before admission, so a
	// signer revoked by an intervening commit surfaces as a quorum failure
	// rather than whatever admission error that commit also caused.
	if !m.headQuorum(item) {
		return tx.NilID, fmt.Errorf("%w: %s", ErrQuorumNotMetAtApply, id.Short())
	}
	if err := m.ledger.Admit(item.Tx); err != nil {
		if errors.Is(err, ledger.ErrQuorumNotMet) {
			return tx.NilID, fmt.Errorf("%w: %v", ErrQuorumNotMetAtApply, err)
		}
		return tx.NilID, err
	}
	item.State = StateApplied
	return item.Tx.ID, nil
}

// Discard drops a staged transaction without effect.
func (m *Manager) Discard(id tx.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if item.State != StateOpen {
		return fmt.Errorf("%w: %s is %s", ErrResolved, id.Short(), item.State)
	}
	item.State = StateDiscarded
	return nil
}

func cloneStaged(item *Staged) *Staged {
	out := *item
	out.Tx.Signatures = append([]tx.Sig(nil), item.Tx.Signatures...)
	return &out
}
