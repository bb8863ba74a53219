package ledger

import (
	"errors"
	"fmt"
)

// Error categories. Every specific failure wraps exactly one of these, so
// callers can branch on the category (structural vs authorization vs state)
// or on the precise condition, via errors.Is.
var (
	// ErrStructural covers malformed content, hash mismatches, broken or
	// stale parent links, and unknown rollback targets.
	ErrStructural = errors.New("structural error")
	// ErrAuthorization covers signature and quorum failures.
	ErrAuthorization = errors.New("authorization error")
	// ErrState covers operations attempted in the wrong lifecycle state.
	ErrState = errors.New("state error")
)

var (
	// ErrInvalidGenesis indicates a creation transaction whose body is not
	// a CreateIdentity or whose signatures do not verify against the key
	// material it embeds.
	ErrInvalidGenesis = fmt.Errorf("%w: invalid genesis", ErrStructural)
	// ErrStaleParent indicates a transaction whose parent is not the
	// current tip. The chain is linear; this is an error, never a fork.
	ErrStaleParent = fmt.Errorf("%w: stale parent", ErrStructural)
	// ErrTamperedContent indicates the transaction's ID does not match its
	// content.
	ErrTamperedContent = fmt.Errorf("%w: tampered content", ErrStructural)
	// ErrUnknownTarget indicates a rollback target not present in the chain.
	ErrUnknownTarget = fmt.Errorf("%w: unknown rollback target", ErrStructural)

	// ErrBadSignature indicates a signature that does not verify against
	// the key its signer claims.
	ErrBadSignature = fmt.Errorf("%w: bad signature", ErrAuthorization)
	// ErrQuorumNotMet indicates the transaction's signer set does not
	// satisfy the active policy for its capability.
	ErrQuorumNotMet = fmt.Errorf("%w: quorum not met", ErrAuthorization)

	// ErrNotReady indicates the ledger has no genesis transaction yet.
	ErrNotReady = fmt.Errorf("%w: ledger not initialized", ErrState)
)
