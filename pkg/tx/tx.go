// Package tx defines the content-addressed transaction model for identity
// ledgers: tagged body variants, canonical encoding, and the versioned wire
// codec used for export and persistence.
//
// A transaction's ID is the BLAKE2b-256 digest of its canonical content
// bytes (format version, parent ID, timestamp, body). Signatures cover the
// same bytes, so one signature binds the body to its position in the chain.
package tx

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/policy"
)

// FormatVersion is the current wire format version. Decoders reject
// anything newer.
const FormatVersion = 1

var (
	// ErrUnsupportedType indicates an unknown body kind; decoding fails
	// closed rather than passing unknown variants through.
	ErrUnsupportedType = errors.New("unsupported transaction type")
	// ErrUnsupportedVersion indicates a wire format version this build
	// does not understand.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrMalformed indicates structurally invalid transaction bytes.
	ErrMalformed = errors.New("malformed transaction")
)

// Sig is one signer's contribution to a transaction: the signing key, the
// signature over the canonical content, and the capability the signer claims
// to exercise.
type Sig struct {
	Signer     identity.PublicKey `json:"signer"`
	Signature  identity.Signature `json:"signature"`
	Capability policy.Capability  `json:"capability"`
}

// Transaction is one immutable, signed unit of change. Once signed it must
// not be mutated: any change to Previous, Timestamp or Body changes the ID
// and orphans the signatures.
type Transaction struct {
	ID         ID
	Previous   ID
	Timestamp  time.Time
	Body       Body
	Signatures []Sig
}

// New builds an unsigned transaction with its ID derived from content.
// The timestamp is normalized to UTC so canonical bytes are stable across
// machines.
func New(previous ID, timestamp time.Time, body Body) (Transaction, error) {
	t := Transaction{
		Previous:  previous,
		Timestamp: timestamp.UTC(),
		Body:      body,
	}
	content, err := t.ContentBytes()
	if err != nil {
		return Transaction{}, err
	}
	t.ID = HashContent(content)
	return t, nil
}

// canonicalContent is the exact byte layout hashed into the ID and covered
// by signatures. Field order is fixed by the struct; the body payload is the
// body's own canonical JSON.
type canonicalContent struct {
	Version   int             `json:"version"`
	Previous  ID              `json:"previous"`
	Timestamp int64           `json:"timestamp_ns"`
	Kind      Kind            `json:"kind"`
	Body      json.RawMessage `json:"body"`
}

// ContentBytes returns the canonical content encoding of the transaction,
// excluding its signature set.
func (t Transaction) ContentBytes() ([]byte, error) {
	if t.Body == nil {
		return nil, fmt.Errorf("%w: nil body", ErrMalformed)
	}
	payload, err := json.Marshal(t.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return json.Marshal(canonicalContent{
		Version:   FormatVersion,
		Previous:  t.Previous,
		Timestamp: t.Timestamp.UTC().UnixNano(),
		Kind:      t.Body.Kind(),
		Body:      payload,
	})
}

// VerifyContent recomputes the ID from content and reports whether it
// matches the stored ID. A mismatch means the transaction was tampered with
// after signing, or assembled incorrectly.
func (t Transaction) VerifyContent() error {
	content, err := t.ContentBytes()
	if err != nil {
		return err
	}
	if HashContent(content) != t.ID {
		return fmt.Errorf("%w: id does not match content", ErrMalformed)
	}
	return nil
}

// VerifySignatures checks every signature against the canonical content.
// It verifies cryptographic validity only; whether the signers are
// authorized is the ledger's decision.
func (t Transaction) VerifySignatures() error {
	content, err := t.ContentBytes()
	if err != nil {
		return err
	}
	for _, s := range t.Signatures {
		if !identity.Verify(s.Signer, content, s.Signature) {
			return fmt.Errorf("signature by %s does not verify", s.Signer.Short())
		}
	}
	return nil
}

// Signers returns the distinct signer keys present on the transaction, in
// first-appearance order.
func (t Transaction) Signers() []identity.PublicKey {
	out := make([]identity.PublicKey, 0, len(t.Signatures))
	for _, s := range t.Signatures {
		dup := false
		for _, seen := range out {
			if seen.Equal(s.Signer) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, s.Signer)
		}
	}
	return out
}

// HasSigner reports whether the key has already contributed a signature.
func (t Transaction) HasSigner(pk identity.PublicKey) bool {
	for _, s := range t.Signatures {
		if s.Signer.Equal(pk) {
			return true
		}
	}
	return false
}

// WithSignature returns a copy of the transaction with one more signature
// appended. The original is not modified.
func (t Transaction) WithSignature(s Sig) Transaction {
	sigs := make([]Sig, len(t.Signatures), len(t.Signatures)+1)
	copy(sigs, t.Signatures)
	t.Signatures = append(sigs, s)
	return t
}

// IsGenesis reports whether this is a creation transaction.
func (t Transaction) IsGenesis() bool {
	return t.Previous.IsZero()
}
