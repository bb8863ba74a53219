package staging

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

// envelopeVersion is the staged-transaction hand-off format version.
// Importers reject anything newer rather than guessing.
const envelopeVersion = 1

// wireEnvelope carries a staged transaction between signing machines. It is
// opaque to the transport: a file, a message, a QR code.
type wireEnvelope struct {
	Version     int             `json:"version"`
	Envelope    string          `json:"envelope"`
	IdentityID  tx.ID           `json:"identity_id"`
	Transaction json.RawMessage `json:"transaction"`
}

// Export serializes a staged transaction for hand-off to another signer.
func (m *Manager) Export(id tx.ID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id.Short())
	}
	if item.State != StateOpen {
		return nil, fmt.Errorf("%w: %s is %s", ErrResolved, id.Short(), item.State)
	}
	raw, err := tx.Encode(item.Tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStructural, err)
	}
	var identityID tx.ID
	if m.ledger != nil {
		identityID = m.ledger.IdentityID()
	}
	return json.Marshal(wireEnvelope{
		Version:     envelopeVersion,
		Envelope:    uuid.NewString(),
		IdentityID:  identityID,
		Transaction: raw,
	})
}

// Import accepts a staged transaction from another machine. Nothing in the
// blob is trusted: the content hash is recomputed, the parent must exist in
// the local chain, and every signature is re-verified before acceptance. If
// the transaction is already staged locally, valid signatures from new
// signers are merged into the local copy.
func (m *Manager) Import(data []byte) (*Staged, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStructural, err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("%w: envelope version %d", tx.ErrUnsupportedVersion, env.Version)
	}
	t, err := tx.Decode(env.Transaction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStructural, err)
	}

	if m.ledger == nil {
		return nil, ledger.ErrNotReady
	}
	if !env.IdentityID.IsZero() && env.IdentityID != m.ledger.IdentityID() {
		return nil, fmt.Errorf("%w: envelope is for identity %s", ErrForeignParent, env.IdentityID.Short())
	}
	// The parent must be a committed transaction here. It need not be the
	// tip: a machine one commit ahead can still collect signatures, and the
	// tip match is enforced again at apply.
	if !m.ledger.Contains(t.Previous) {
		return nil, fmt.Errorf("%w: %s", ErrForeignParent, t.Previous.Short())
	}
	content, err := t.ContentBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrStructural, err)
	}
	capability := t.Body.Capability()
	for _, s := range t.Signatures {
		if !identity.Verify(s.Signer, content, s.Signature) {
			return nil, fmt.Errorf("%w: imported signature by %s", ErrBadSignature, s.Signer.Short())
		}
		if s.Capability != capability {
			return nil, fmt.Errorf("%w: signature by %s claims %q, body needs %q",
				ErrBadSignature, s.Signer.Short(), s.Capability, capability)
		}
	}

	existing, ok := m.items[t.ID]
	if !ok {
		item := &Staged{Tx: t, State: StateOpen, StagedAt: m.now()}
		m.items[t.ID] = item
		return cloneStaged(item), nil
	}
	if existing.State != StateOpen {
		return nil, fmt.Errorf("%w: %s is %s", ErrResolved, t.ID.Short(), existing.State)
	}
	for _, s := range t.Signatures {
		if !existing.Tx.HasSigner(s.Signer) {
			existing.Tx = existing.Tx.WithSignature(s)
		}
	}
	return cloneStaged(existing), nil
}
