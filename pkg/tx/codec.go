package tx

import (
	"encoding/json"
	"fmt"
	"time"
)

// wireTransaction is the export/persistence form of a transaction. The
// leading version field lets older importers reject newer formats instead
// of misreading them.
type wireTransaction struct {
	Version    int             `json:"version"`
	ID         ID              `json:"id"`
	Previous   ID              `json:"previous"`
	Timestamp  int64           `json:"timestamp_ns"`
	Kind       Kind            `json:"kind"`
	Body       json.RawMessage `json:"body"`
	Signatures []Sig           `json:"signatures,omitempty"`
}

// Encode serializes a transaction to its versioned wire form.
func Encode(t Transaction) ([]byte, error) {
	if t.Body == nil {
		return nil, fmt.Errorf("%w: nil body", ErrMalformed)
	}
	payload, err := json.Marshal(t.Body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return json.Marshal(wireTransaction{
		Version:    FormatVersion,
		ID:         t.ID,
		Previous:   t.Previous,
		Timestamp:  t.Timestamp.UTC().UnixNano(),
		Kind:       t.Body.Kind(),
		Body:       payload,
		Signatures: t.Signatures,
	})
}

// Decode parses a transaction from wire bytes and re-verifies that the
// declared ID matches the content. It does not verify signatures; callers
// re-validate at every trust boundary.
func Decode(data []byte) (Transaction, error) {
	var w wireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Version != FormatVersion {
		return Transaction{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, w.Version)
	}
	body, err := decodeBody(w.Kind, w.Body)
	if err != nil {
		return Transaction{}, err
	}
	t := Transaction{
		ID:         w.ID,
		Previous:   w.Previous,
		Timestamp:  time.Unix(0, w.Timestamp).UTC(),
		Body:       body,
		Signatures: w.Signatures,
	}
	if err := t.VerifyContent(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

// wireChain is the serialized form of a full committed chain.
type wireChain struct {
	Version      int               `json:"version"`
	Transactions []json.RawMessage `json:"transactions"`
}

// EncodeChain serializes a committed chain, genesis first.
func EncodeChain(txs []Transaction) ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(txs))
	for _, t := range txs {
		b, err := Encode(t)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(wireChain{Version: FormatVersion, Transactions: raw})
}

// DecodeChain parses a serialized chain and verifies each transaction's
// content hash and parent linkage. Signature and policy checks happen when
// the chain is replayed into a ledger.
func DecodeChain(data []byte) ([]Transaction, error) {
	var w wireChain
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, w.Version)
	}
	txs := make([]Transaction, 0, len(w.Transactions))
	var prev ID
	for i, raw := range w.Transactions {
		t, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if i == 0 {
			if !t.IsGenesis() {
				return nil, fmt.Errorf("%w: chain does not start at genesis", ErrMalformed)
			}
		} else if t.Previous != prev {
			return nil, fmt.Errorf("%w: broken parent link at %d", ErrMalformed, i)
		}
		prev = t.ID
		txs = append(txs, t)
	}
	return txs, nil
}
