package tx

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// IDSize is the byte length of a transaction ID.
const IDSize = 32

// ID is a BLAKE2b-256 digest of a transaction's canonical content. The zero
// ID marks the genesis transaction's missing parent.
type ID [IDSize]byte

// NilID is the zero ID.
var NilID ID

// ErrInvalidID indicates a malformed encoded ID.
var ErrInvalidID = errors.New("invalid transaction id")

// HashContent derives an ID from canonical content bytes.
func HashContent(content []byte) ID {
	return ID(blake2b.Sum256(content))
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id == NilID
}

// Hex returns the full hex encoding.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// Short returns an abbreviated form for tables and logs.
func (id ID) Short() string {
	return id.Hex()[:8]
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Hex()
}

// IDFromHex parses a full-length hex ID.
func IDFromHex(s string) (ID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != IDSize {
		return NilID, ErrInvalidID
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := IDFromHex(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
