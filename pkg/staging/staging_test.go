package staging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/identity/ed25519"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/policy"
	"github.com/stampnet/stampd/pkg/tx"
)

func newKey(t *testing.T) *ed25519.Keypair {
	t.Helper()
	kp, err := ed25519.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func signContent(t *testing.T, tr tx.Transaction, kp *ed25519.Keypair) identity.Signature {
	t.Helper()
	content, err := tr.ContentBytes()
	if err != nil {
		t.Fatalf("content bytes: %v", err)
	}
	sig, err := kp.Sign(content)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func buildTx(t *testing.T, prev tx.ID, body tx.Body, kps ...*ed25519.Keypair) tx.Transaction {
	t.Helper()
	tr, err := tx.New(prev, time.Now(), body)
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	for _, kp := range kps {
		tr = tr.WithSignature(tx.Sig{
			Signer:     kp.PublicKey(),
			Signature:  signContent(t, tr, kp),
			Capability: body.Capability(),
		})
	}
	return tr
}

func newLedger(t *testing.T, creator *ed25519.Keypair) *ledger.Ledger {
	t.Helper()
	genesis := buildTx(t, tx.NilID, tx.CreateIdentity{Creator: creator.PublicKey()}, creator)
	l, err := ledger.Create(genesis)
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return l
}

func admit(t *testing.T, l *ledger.Ledger, body tx.Body, kps ...*ed25519.Keypair) tx.Transaction {
	t.Helper()
	tr := buildTx(t, l.Tip(), body, kps...)
	if err := l.Admit(tr); err != nil {
		t.Fatalf("admit %s: %v", body.Kind(), err)
	}
	return tr
}

func TestStageSignApply(t *testing.T) {
	creator := newKey(t)
	l := newLedger(t, creator)
	m := New(l)

	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimEmail, Value: "alice@example.org"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if item.State != StateOpen {
		t.Errorf("got state %s, want open", item.State)
	}
	if item.Tx.Previous != l.Tip() {
		t.Error("staged transaction not pinned to the tip")
	}

	ready, err := m.Ready(item.Tx.ID)
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if ready {
		t.Error("unsigned staged transaction reported ready")
	}

	if err := m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator)); err != nil {
		t.Fatalf("add signature: %v", err)
	}
	ready, err = m.Ready(item.Tx.ID)
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if !ready {
		t.Error("signed staged transaction not ready")
	}

	tip, err := m.Apply(item.Tx.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tip != l.Tip() || tip != item.Tx.ID {
		t.Error("apply did not advance the tip to the staged transaction")
	}

	got, err := m.Get(item.Tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != StateApplied {
		t.Errorf("got state %s, want applied", got.State)
	}
}

func TestAddSignatureRejections(t *testing.T) {
	creator := newKey(t)
	stranger := newKey(t)
	l := newLedger(t, creator)
	m := New(l)

	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	if err := m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator)); err != nil {
		t.Fatalf("add signature: %v", err)
	}
	err = m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator))
	if !errors.Is(err, ErrDuplicateSigner) {
		t.Errorf("got %v, want ErrDuplicateSigner", err)
	}

	// A signature that does not verify over the staged content is rejected
	// even before any policy consideration.
	other := buildTx(t, l.Tip(), tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "decoy"}})
	err = m.AddSignature(item.Tx.ID, stranger.PublicKey(), signContent(t, other, stranger))
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("got %v, want ErrBadSignature", err)
	}

	err = m.AddSignature(tx.HashContent([]byte("nowhere")), creator.PublicKey(), signContent(t, item.Tx, creator))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestApplyRechecksQuorum(t *testing.T) {
	creator := newKey(t)
	a := newKey(t)
	b := newKey(t)
	l := newLedger(t, creator)

	admit(t, l, tx.AddKey{Entry: tx.KeyEntry{Name: "a", Key: a.PublicKey()}}, creator)
	admit(t, l, tx.AddKey{Entry: tx.KeyEntry{Name: "b", Key: b.PublicKey()}}, creator)
	admit(t, l, tx.SetPolicy{Rule: policy.Rule{
		Capability: policy.CapAddClaim,
		Signers:    []identity.PublicKey{a.PublicKey(), b.PublicKey()},
		Threshold:  2,
	}}, creator)

	m := New(l)
	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	for _, kp := range []*ed25519.Keypair{a, b} {
		if err := m.AddSignature(item.Tx.ID, kp.PublicKey(), signContent(t, item.Tx, kp)); err != nil {
			t.Fatalf("add signature: %v", err)
		}
	}
	ready, err := m.Ready(item.Tx.ID)
	if err != nil || !ready {
		t.Fatalf("ready: got (%v, %v), want (true, nil)", ready, err)
	}

	// Revoking one quorum member between staging and apply invalidates the
	// collected quorum. The staged item survives the failed apply.
	admit(t, l, tx.RevokeKey{Key: b.PublicKey()}, creator)

	ready, err = m.Ready(item.Tx.ID)
	if err != nil {
		t.Fatalf("ready: %v", err)
	}
	if ready {
		t.Error("still ready after quorum member revocation")
	}
	_, err = m.Apply(item.Tx.ID)
	if !errors.Is(err, ErrQuorumNotMetAtApply) {
		t.Fatalf("got %v, want ErrQuorumNotMetAtApply", err)
	}
	got, err := m.Get(item.Tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.State != StateOpen {
		t.Errorf("failed apply moved state to %s, want open", got.State)
	}
}

func TestApplyStaleParent(t *testing.T) {
	creator := newKey(t)
	l := newLedger(t, creator)
	m := New(l)

	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator)); err != nil {
		t.Fatalf("add signature: %v", err)
	}

	// Another commit lands first; the staged parent is no longer the tip.
	admit(t, l, tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "interloper"}}, creator)

	_, err = m.Apply(item.Tx.ID)
	if !errors.Is(err, ledger.ErrStaleParent) {
		t.Errorf("got %v, want ErrStaleParent", err)
	}
}

func TestTerminalStatesAreSticky(t *testing.T) {
	creator := newKey(t)
	l := newLedger(t, creator)
	m := New(l)

	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := m.Discard(item.Tx.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}

	if err := m.Discard(item.Tx.ID); !errors.Is(err, ErrResolved) {
		t.Errorf("second discard: got %v, want ErrResolved", err)
	}
	if _, err := m.Apply(item.Tx.ID); !errors.Is(err, ErrResolved) {
		t.Errorf("apply after discard: got %v, want ErrResolved", err)
	}
	err = m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator))
	if !errors.Is(err, ErrResolved) {
		t.Errorf("sign after discard: got %v, want ErrResolved", err)
	}
	if _, err := m.Export(item.Tx.ID); !errors.Is(err, ErrResolved) {
		t.Errorf("export after discard: got %v, want ErrResolved", err)
	}

	// Discarded items drop out of the open listing.
	if got := len(m.List()); got != 0 {
		t.Errorf("listing has %d items, want 0", got)
	}
}

func TestListOrdersByAge(t *testing.T) {
	creator := newKey(t)
	l := newLedger(t, creator)

	now := time.Unix(1700000000, 0)
	m := New(l, WithClock(func() time.Time {
		now = now.Add(time.Second)
		return now
	}))

	first, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "first"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	second, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "second"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	items := m.List()
	if len(items) != 2 {
		t.Fatalf("listing has %d items, want 2", len(items))
	}
	if items[0].Tx.ID != first.Tx.ID || items[1].Tx.ID != second.Tx.ID {
		t.Error("listing is not oldest first")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	creator := newKey(t)
	cosigner := newKey(t)
	l := newLedger(t, creator)

	admit(t, l, tx.AddKey{Entry: tx.KeyEntry{Name: "cosigner", Key: cosigner.PublicKey()}}, creator)
	admit(t, l, tx.SetPolicy{Rule: policy.Rule{
		Capability: policy.CapAddClaim,
		Signers:    []identity.PublicKey{creator.PublicKey(), cosigner.PublicKey()},
		Threshold:  2,
	}}, creator)

	m := New(l)
	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator)); err != nil {
		t.Fatalf("add signature: %v", err)
	}
	data, err := m.Export(item.Tx.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// The co-signing machine holds the same committed chain.
	chain, err := l.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	remote, err := ledger.Deserialize(chain)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	rm := New(remote)

	imported, err := rm.Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.Tx.ID != item.Tx.ID {
		t.Error("imported transaction has a different ID")
	}
	if len(imported.Tx.Signatures) != 1 {
		t.Fatalf("imported with %d signatures, want 1", len(imported.Tx.Signatures))
	}

	if err := rm.AddSignature(imported.Tx.ID, cosigner.PublicKey(), signContent(t, imported.Tx, cosigner)); err != nil {
		t.Fatalf("cosign: %v", err)
	}
	back, err := rm.Export(imported.Tx.ID)
	if err != nil {
		t.Fatalf("export back: %v", err)
	}

	// Importing the co-signed envelope merges the new signature into the
	// original item rather than replacing it.
	merged, err := m.Import(back)
	if err != nil {
		t.Fatalf("import back: %v", err)
	}
	if len(merged.Tx.Signatures) != 2 {
		t.Errorf("merged item has %d signatures, want 2", len(merged.Tx.Signatures))
	}
	if _, err := m.Apply(merged.Tx.ID); err != nil {
		t.Fatalf("apply after merge: %v", err)
	}
}

func TestImportRejections(t *testing.T) {
	creator := newKey(t)
	l := newLedger(t, creator)
	m := New(l)

	item, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := m.AddSignature(item.Tx.ID, creator.PublicKey(), signContent(t, item.Tx, creator)); err != nil {
		t.Fatalf("add signature: %v", err)
	}
	data, err := m.Export(item.Tx.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// mutate rewrites one top-level envelope field, leaving every other
	// byte (the nested transaction included) untouched.
	mutate := func(t *testing.T, field string, value any) []byte {
		t.Helper()
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		raw, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("marshal field: %v", err)
		}
		env[field] = raw
		out, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("remarshal: %v", err)
		}
		return out
	}

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Import([]byte("junk")); !errors.Is(err, ledger.ErrStructural) {
			t.Errorf("got %v, want ErrStructural", err)
		}
	})

	t.Run("future envelope version", func(t *testing.T) {
		if _, err := m.Import(mutate(t, "version", 99)); !errors.Is(err, tx.ErrUnsupportedVersion) {
			t.Errorf("got %v, want ErrUnsupportedVersion", err)
		}
	})

	t.Run("wrong identity", func(t *testing.T) {
		foreign := tx.HashContent([]byte("someone else"))
		if _, err := m.Import(mutate(t, "identity_id", foreign.Hex())); !errors.Is(err, ErrForeignParent) {
			t.Errorf("got %v, want ErrForeignParent", err)
		}
	})

	t.Run("tampered transaction", func(t *testing.T) {
		var env map[string]json.RawMessage
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		var wire map[string]any
		if err := json.Unmarshal(env["transaction"], &wire); err != nil {
			t.Fatalf("unmarshal transaction: %v", err)
		}
		wire["timestamp_ns"] = 1
		raw, err := json.Marshal(wire)
		if err != nil {
			t.Fatalf("remarshal transaction: %v", err)
		}
		env["transaction"] = raw
		blob, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("remarshal envelope: %v", err)
		}
		if _, err := m.Import(blob); !errors.Is(err, ledger.ErrStructural) {
			t.Errorf("got %v, want ErrStructural", err)
		}
	})

	t.Run("foreign parent", func(t *testing.T) {
		// An envelope staged against a chain this machine does not have.
		other := newKey(t)
		otherLedger := newLedger(t, other)
		om := New(otherLedger)
		otherItem, err := om.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "bob"}})
		if err != nil {
			t.Fatalf("stage: %v", err)
		}
		blob, err := om.Export(otherItem.Tx.ID)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		if _, err := m.Import(blob); !errors.Is(err, ErrForeignParent) {
			t.Errorf("got %v, want ErrForeignParent", err)
		}
	})
}

func TestStageWithoutLedger(t *testing.T) {
	m := New(nil)
	if _, err := m.Stage(tx.AddClaim{Claim: tx.Claim{Kind: tx.ClaimName, Value: "alice"}}); !errors.Is(err, ledger.ErrNotReady) {
		t.Errorf("got %v, want ErrNotReady", err)
	}
}
