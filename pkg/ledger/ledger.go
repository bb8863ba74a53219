// Package ledger stores one identity's committed transaction history: a
// linear, hash-linked chain gated by signature quorum policy.
//
// Committed history never forks. Every admission checks, in order, parent
// linkage, content integrity, signature validity, and policy quorum against
// the state just before the new transaction; the first failing check wins
// and the ledger is left untouched. Rollback truncates the chain and is
// irreversible: discarded transactions cannot be re-admitted without a fresh
// parent link.
package ledger

import (
	"fmt"
	"iter"
	"sync"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/tx"
)

// Ledger is the committed chain for one identity. One exclusive writer at a
// time; reads may proceed concurrently with each other.
type Ledger struct {
	mu    sync.RWMutex
	txs   []tx.Transaction
	index map[tx.ID]int

	// snap memoizes the derived aggregate, keyed by tip. Any tip change
	// (admit, rollback) drops it; it is rebuilt on demand.
	snap *Snapshot
}

// Create initializes a ledger from a genesis transaction. The body must be
// a CreateIdentity and every signature must verify against the key material
// the body embeds, including one from the creator key itself.
func Create(genesis tx.Transaction) (*Ledger, error) {
	if err := validateGenesis(genesis); err != nil {
		return nil, err
	}
	l := &Ledger{
		txs:   []tx.Transaction{genesis},
		index: map[tx.ID]int{genesis.ID: 0},
	}
	return l, nil
}

// FromChain rebuilds a ledger from a serialized committed chain, re-running
// full admission checks on every transaction. Anything that would not have
// been admitted live is rejected here too; a loaded ledger is as trustworthy
// as one built transaction by transaction.
func FromChain(txs []tx.Transaction) (*Ledger, error) {
	if len(txs) == 0 {
		return nil, ErrNotReady
	}
	l, err := Create(txs[0])
	if err != nil {
		return nil, err
	}
	for _, t := range txs[1:] {
		if err := l.Admit(t); err != nil {
			return nil, fmt.Errorf("replaying %s: %w", t.ID.Short(), err)
		}
	}
	return l, nil
}

func validateGenesis(genesis tx.Transaction) error {
	if !genesis.IsGenesis() {
		return fmt.Errorf("%w: non-zero parent", ErrInvalidGenesis)
	}
	if err := genesis.VerifyContent(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	body, ok := genesis.Body.(tx.CreateIdentity)
	if !ok {
		return fmt.Errorf("%w: body is %s, want %s", ErrInvalidGenesis, genesis.Body.Kind(), tx.KindCreateIdentity)
	}
	if body.Creator.IsZero() {
		return fmt.Errorf("%w: no creator key", ErrInvalidGenesis)
	}
	for _, rule := range body.Policies {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
		}
	}
	if len(genesis.Signatures) == 0 {
		return fmt.Errorf("%w: unsigned", ErrInvalidGenesis)
	}
	content, err := genesis.ContentBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGenesis, err)
	}
	embedded := embeddedKeys(body)
	creatorSigned := false
	for _, s := range genesis.Signatures {
		if !identity.Verify(s.Signer, content, s.Signature) {
			return fmt.Errorf("%w: signature by %s does not verify", ErrInvalidGenesis, s.Signer.Short())
		}
		if !keyIn(embedded, s.Signer) {
			return fmt.Errorf("%w: signer %s not in embedded key material", ErrInvalidGenesis, s.Signer.Short())
		}
		if s.Signer.Equal(body.Creator) {
			creatorSigned = true
		}
	}
	if !creatorSigned {
		return fmt.Errorf("%w: missing creator signature", ErrInvalidGenesis)
	}
	return nil
}

func embeddedKeys(body tx.CreateIdentity) []identity.PublicKey {
	keys := []identity.PublicKey{body.Creator}
	for _, e := range body.Keys {
		keys = append(keys, e.Key)
	}
	return keys
}

func keyIn(keys []identity.PublicKey, pk identity.PublicKey) bool {
	for _, k := range keys {
		if k.Equal(pk) {
			return true
		}
	}
	return false
}

// IdentityID returns the genesis transaction's ID, which names the identity.
func (l *Ledger) IdentityID() tx.ID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.txs[0].ID
}

// Tip returns the ID of the most recently committed transaction.
func (l *Ledger) Tip() tx.ID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.txs[len(l.txs)-1].ID
}

// Len returns the number of committed transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}

// Get returns the committed transaction with the given ID.
func (l *Ledger) Get(id tx.ID) (tx.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return tx.Transaction{}, false
	}
	return l.txs[i], true
}

// Contains reports whether the ID is part of the committed chain.
func (l *Ledger) Contains(id tx.ID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.index[id]
	return ok
}

// Admit appends a transaction to the chain if and only if it links to the
// current tip, its content hash checks out, its signatures verify, and its
// signer set satisfies the active policy for its capability. Checks run in
// that order and the first failure short-circuits; on any failure the ledger
// is unchanged.
func (l *Ledger) Admit(t tx.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t.Previous != l.txs[len(l.txs)-1].ID {
		return fmt.Errorf("%w: transaction links %s, tip is %s",
			ErrStaleParent, t.Previous.Short(), l.txs[len(l.txs)-1].ID.Short())
	}
	if _, ok := t.Body.(tx.CreateIdentity); ok {
		return fmt.Errorf("%w: create_identity after genesis", ErrStructural)
	}
	if err := t.VerifyContent(); err != nil {
		return fmt.Errorf("%w: %v", ErrTamperedContent, err)
	}

	// Authorization is judged against the state just before this
	// transaction: the memoized head snapshot, since previous == tip.
	snap := l.headLocked()
	content, err := t.ContentBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTamperedContent, err)
	}

	capability := t.Body.Capability()
	var signers []identity.PublicKey
	for _, s := range t.Signatures {
		if !identity.Verify(s.Signer, content, s.Signature) {
			return fmt.Errorf("%w: signature by %s", ErrBadSignature, s.Signer.Short())
		}
		// Signatures from keys that were revoked (or never installed)
		// before this transaction are excluded from the quorum set rather
		// than rejected outright, so callers learn "not enough authorized
		// signatures" instead of a misleading signature failure.
		if !snap.KeyActive(s.Signer) {
			continue
		}
		if s.Capability != capability {
			continue
		}
		signers = append(signers, s.Signer)
	}
	if !snap.Engine().Evaluate(capability, signers) {
		rule := snap.Engine().QuorumFor(capability)
		return fmt.Errorf("%w: %s requires %d of %d authorized signers, have %d",
			ErrQuorumNotMet, capability, rule.Threshold, len(rule.Signers), len(signers))
	}

	l.txs = append(l.txs, t)
	l.index[t.ID] = len(l.txs) - 1
	l.snap = nil
	return nil
}

// Rollback truncates the chain so target becomes the tip, discarding every
// later transaction. Rolling back to the current tip is a no-op. This is
// destructive and local: there is no redo, and discarded transactions can
// only return via a fresh parent chain. Returns the number discarded.
func (l *Ledger) Rollback(target tx.ID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[target]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTarget, target.Short())
	}
	removed := len(l.txs) - i - 1
	if removed == 0 {
		return 0, nil
	}
	for _, t := range l.txs[i+1:] {
		delete(l.index, t.ID)
	}
	l.txs = l.txs[: i+1 : i+1]
	l.snap = nil
	return removed, nil
}

// Transactions returns a restartable sequence over the committed chain,
// genesis first. The sequence iterates a stable view taken when it is
// created; concurrent admissions do not affect an in-progress iteration.
func (l *Ledger) Transactions() iter.Seq[tx.Transaction] {
	l.mu.RLock()
	view := l.txs
	l.mu.RUnlock()
	return func(yield func(tx.Transaction) bool) {
		for _, t := range view {
			if !yield(t) {
				return
			}
		}
	}
}

// Head returns the aggregate state at the current tip. The snapshot is
// memoized and invalidated whenever the tip changes.
func (l *Ledger) Head() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.headLocked()
}

func (l *Ledger) headLocked() *Snapshot {
	if l.snap == nil {
		l.snap = replay(l.txs)
	}
	return l.snap
}

// SnapshotAt replays state up to and including the given transaction. Used
// for point-in-time inspection; authorization checks use the parent state,
// which for an admission candidate is simply Head.
func (l *Ledger) SnapshotAt(id tx.ID) (*Snapshot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, id.Short())
	}
	return replay(l.txs[: i+1 : i+1]), nil
}

// Serialize encodes the committed chain in the versioned wire format.
func (l *Ledger) Serialize() ([]byte, error) {
	l.mu.RLock()
	view := l.txs
	l.mu.RUnlock()
	return tx.EncodeChain(view)
}

// Deserialize rebuilds a ledger from Serialize output, re-validating the
// whole chain. Imported blobs are never trusted on the strength of having
// been valid when exported.
func Deserialize(data []byte) (*Ledger, error) {
	txs, err := tx.DecodeChain(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStructural, err)
	}
	return FromChain(txs)
}
