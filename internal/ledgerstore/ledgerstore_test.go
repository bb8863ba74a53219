package ledgerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	stamperrors "github.com/stampnet/stampd/pkg/errors"
	"github.com/stampnet/stampd/pkg/identity/ed25519"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"

	_ "github.com/stampnet/stampd/internal/ledgerstore/physical/memory"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), "memory", nil, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newLedger(t *testing.T) (*ledger.Ledger, *ed25519.Keypair) {
	t.Helper()
	kp, err := ed25519.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	genesis, err := tx.New(tx.NilID, time.Now(), tx.CreateIdentity{Creator: kp.PublicKey()})
	if err != nil {
		t.Fatalf("new genesis: %v", err)
	}
	content, err := genesis.ContentBytes()
	if err != nil {
		t.Fatalf("content bytes: %v", err)
	}
	sig, err := kp.Sign(content)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	genesis = genesis.WithSignature(tx.Sig{
		Signer:     kp.PublicKey(),
		Signature:  sig,
		Capability: genesis.Body.Capability(),
	})
	l, err := ledger.Create(genesis)
	if err != nil {
		t.Fatalf("create ledger: %v", err)
	}
	return l, kp
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l, _ := newLedger(t)

	if err := s.SaveLedger(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadLedger(ctx, l.IdentityID())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.IdentityID() != l.IdentityID() || got.Tip() != l.Tip() || got.Len() != l.Len() {
		t.Error("round trip changed the chain")
	}

	ids, err := s.ListIdentities(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 1 || ids[0] != l.IdentityID() {
		t.Errorf("listing: got %v, want [%s]", ids, l.IdentityID().Short())
	}
}

func TestLoadUnknownIdentity(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.LoadLedger(ctx, tx.HashContent([]byte("nowhere")))
	if !errors.Is(err, stamperrors.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadRejectsIdentityMismatch(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l, _ := newLedger(t)

	// A chain filed under the wrong identity key must not load: the stored
	// bytes are valid but do not belong to the requested identity.
	data, err := l.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	wrong := tx.HashContent([]byte("other identity"))
	if err := s.backend.PutChain(ctx, wrong.Hex(), data); err != nil {
		t.Fatalf("put chain: %v", err)
	}
	if _, err := s.LoadLedger(ctx, wrong); !errors.Is(err, ledger.ErrTamperedContent) {
		t.Errorf("got %v, want ErrTamperedContent", err)
	}
}

func TestLoadRejectsCorruptChain(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	id := tx.HashContent([]byte("identity"))

	if err := s.backend.PutChain(ctx, id.Hex(), []byte("not a chain")); err != nil {
		t.Fatalf("put chain: %v", err)
	}
	if _, err := s.LoadLedger(ctx, id); err == nil {
		t.Error("corrupt chain loaded without error")
	}
}

func TestDeleteLedgerRemovesStaged(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l, _ := newLedger(t)

	if err := s.SaveLedger(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}
	stagedID := tx.HashContent([]byte("staged"))
	if err := s.SaveStaged(ctx, l.IdentityID(), stagedID, []byte("envelope")); err != nil {
		t.Fatalf("save staged: %v", err)
	}

	if err := s.DeleteLedger(ctx, l.IdentityID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadLedger(ctx, l.IdentityID()); !errors.Is(err, stamperrors.ErrNotFound) {
		t.Errorf("chain still loadable: %v", err)
	}
	staged, err := s.ListStaged(ctx, l.IdentityID())
	if err != nil {
		t.Fatalf("list staged: %v", err)
	}
	if len(staged) != 0 {
		t.Errorf("%d staged envelopes survived chain deletion", len(staged))
	}
}

func TestStagedLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	l, _ := newLedger(t)
	identityID := l.IdentityID()

	a := tx.HashContent([]byte("a"))
	b := tx.HashContent([]byte("b"))
	for id, blob := range map[tx.ID][]byte{a: []byte("one"), b: []byte("two")} {
		if err := s.SaveStaged(ctx, identityID, id, blob); err != nil {
			t.Fatalf("save staged: %v", err)
		}
	}

	got, err := s.LoadStaged(ctx, identityID, a)
	if err != nil {
		t.Fatalf("load staged: %v", err)
	}
	if string(got) != "one" {
		t.Errorf("got %q, want one", got)
	}

	ids, err := s.ListStaged(ctx, identityID)
	if err != nil {
		t.Fatalf("list staged: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d staged, want 2", len(ids))
	}

	if err := s.DeleteStaged(ctx, identityID, a); err != nil {
		t.Fatalf("delete staged: %v", err)
	}
	if _, err := s.LoadStaged(ctx, identityID, a); !errors.Is(err, stamperrors.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op.
	if err := s.DeleteStaged(ctx, identityID, a); err != nil {
		t.Errorf("second delete: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Staged != 1 {
		t.Errorf("stats report %d staged, want 1", stats.Staged)
	}
}
