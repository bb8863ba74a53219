package tx

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/identity/ed25519"
)

func newKey(t *testing.T) (*ed25519.Keypair, identity.PublicKey) {
	t.Helper()
	kp, err := ed25519.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp, kp.PublicKey()
}

func signedTx(t *testing.T, kp *ed25519.Keypair, prev ID, ts time.Time, body Body) Transaction {
	t.Helper()
	tr, err := New(prev, ts, body)
	if err != nil {
		t.Fatalf("new transaction: %v", err)
	}
	content, err := tr.ContentBytes()
	if err != nil {
		t.Fatalf("content bytes: %v", err)
	}
	sig, err := kp.Sign(content)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tr.WithSignature(Sig{
		Signer:     kp.PublicKey(),
		Signature:  sig,
		Capability: body.Capability(),
	})
}

func TestNewIDIsDeterministic(t *testing.T) {
	ts := time.Unix(1700000000, 42)
	body := AddClaim{Claim: Claim{Kind: ClaimEmail, Value: "alice@example.org"}}

	a, err := New(NilID, ts, body)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, err := New(NilID, ts, body)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("same inputs produced different IDs: %s vs %s", a.ID.Hex(), b.ID.Hex())
	}

	c, err := New(NilID, ts, AddClaim{Claim: Claim{Kind: ClaimEmail, Value: "bob@example.org"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID == c.ID {
		t.Error("different bodies produced the same ID")
	}

	d, err := New(a.ID, ts, body)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.ID == d.ID {
		t.Error("different parents produced the same ID")
	}
}

func TestVerifyContentDetectsTamper(t *testing.T) {
	tr, err := New(NilID, time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "alice"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := tr.VerifyContent(); err != nil {
		t.Fatalf("fresh transaction failed verification: %v", err)
	}

	tampered := tr
	tampered.Body = AddClaim{Claim: Claim{Kind: ClaimName, Value: "mallory"}}
	if err := tampered.VerifyContent(); err == nil {
		t.Error("expected error after body swap, got nil")
	}

	tampered = tr
	tampered.Timestamp = tr.Timestamp.Add(time.Second)
	if err := tampered.VerifyContent(); err == nil {
		t.Error("expected error after timestamp change, got nil")
	}
}

func TestVerifySignatures(t *testing.T) {
	kp, pk := newKey(t)
	tr := signedTx(t, kp, NilID, time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "alice"}})

	if err := tr.VerifySignatures(); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if !tr.HasSigner(pk) {
		t.Error("HasSigner did not find the signer")
	}

	// A signature moved to a different transaction must not verify.
	other, err := New(NilID, time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "bob"}})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	other = other.WithSignature(tr.Signatures[0])
	if err := other.VerifySignatures(); err == nil {
		t.Error("expected error for replayed signature, got nil")
	}
}

func TestSignersDeduplicates(t *testing.T) {
	kp, pk := newKey(t)
	tr := signedTx(t, kp, NilID, time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "alice"}})
	tr = tr.WithSignature(tr.Signatures[0])

	signers := tr.Signers()
	if len(signers) != 1 {
		t.Fatalf("got %d distinct signers, want 1", len(signers))
	}
	if !signers[0].Equal(pk) {
		t.Error("wrong signer returned")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	kp, _ := newKey(t)
	tr := signedTx(t, kp, NilID, time.Unix(1700000000, 42), AddClaim{Claim: Claim{Kind: ClaimDomain, Value: "example.org"}})

	data, err := Encode(tr)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != tr.ID {
		t.Errorf("ID changed across round trip: %s vs %s", got.ID.Hex(), tr.ID.Hex())
	}
	if got.Body.Kind() != KindAddClaim {
		t.Errorf("kind changed: %s", got.Body.Kind())
	}
	if err := got.VerifySignatures(); err != nil {
		t.Errorf("signatures invalid after round trip: %v", err)
	}
}

func TestDecodeFailsClosed(t *testing.T) {
	kp, _ := newKey(t)
	tr := signedTx(t, kp, NilID, time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "alice"}})
	data, err := Encode(tr)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	mutate := func(t *testing.T, field string, value any) []byte {
		t.Helper()
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("unmarshal wire form: %v", err)
		}
		m[field] = value
		out, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("remarshal: %v", err)
		}
		return out
	}

	tests := []struct {
		name    string
		input   func(t *testing.T) []byte
		wantErr error
	}{
		{
			name:    "unknown kind",
			input:   func(t *testing.T) []byte { return mutate(t, "kind", "teleport_v9") },
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "future version",
			input:   func(t *testing.T) []byte { return mutate(t, "version", 99) },
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "id mismatch",
			input:   func(t *testing.T) []byte { return mutate(t, "timestamp_ns", 1) },
			wantErr: ErrMalformed,
		},
		{
			name:    "garbage",
			input:   func(t *testing.T) []byte { return []byte("not json") },
			wantErr: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.input(t))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeChainRejectsBrokenLink(t *testing.T) {
	kp, _ := newKey(t)
	genesis := signedTx(t, kp, NilID, time.Now(), CreateIdentity{Creator: kp.PublicKey()})
	next := signedTx(t, kp, genesis.ID, time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "alice"}})
	orphan := signedTx(t, kp, HashContent([]byte("elsewhere")), time.Now(), AddClaim{Claim: Claim{Kind: ClaimName, Value: "bob"}})

	good, err := EncodeChain([]Transaction{genesis, next})
	if err != nil {
		t.Fatalf("encode chain: %v", err)
	}
	if _, err := DecodeChain(good); err != nil {
		t.Fatalf("valid chain rejected: %v", err)
	}

	broken, err := EncodeChain([]Transaction{genesis, orphan})
	if err != nil {
		t.Fatalf("encode chain: %v", err)
	}
	if _, err := DecodeChain(broken); err == nil {
		t.Error("expected error for broken parent link, got nil")
	}

	headless, err := EncodeChain([]Transaction{next})
	if err != nil {
		t.Fatalf("encode chain: %v", err)
	}
	if _, err := DecodeChain(headless); err == nil {
		t.Error("expected error for chain not starting at genesis, got nil")
	}
}

func TestIDHexRoundTrip(t *testing.T) {
	id := HashContent([]byte("content"))
	got, err := IDFromHex(id.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != id {
		t.Error("hex round trip changed the ID")
	}

	if _, err := IDFromHex("zz"); err == nil {
		t.Error("expected error for invalid hex, got nil")
	}
	if _, err := IDFromHex("abcd"); err == nil {
		t.Error("expected error for short hex, got nil")
	}
}
