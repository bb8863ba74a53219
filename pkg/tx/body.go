package tx

import (
	"encoding/json"
	"fmt"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/policy"
)

// Kind tags a transaction body variant on the wire. Kinds are versioned so
// new variants can be introduced without breaking older importers.
type Kind string

const (
	KindCreateIdentity Kind = "create_identity_v1"
	KindAddKey         Kind = "add_key_v1"
	KindRevokeKey      Kind = "revoke_key_v1"
	KindAddClaim       Kind = "add_claim_v1"
	KindRemoveClaim    Kind = "remove_claim_v1"
	KindMakeStamp      Kind = "make_stamp_v1"
	KindAcceptStamp    Kind = "accept_stamp_v1"
	KindSetPolicy      Kind = "set_policy_v1"
	KindSign           Kind = "sign_v1"
)

// Body is one tagged transaction body variant.
type Body interface {
	Kind() Kind
	// Capability names the quorum rule that gates admission of this body.
	Capability() policy.Capability
}

// ClaimKind names what a claim asserts about the identity.
type ClaimKind string

const (
	ClaimName     ClaimKind = "name"
	ClaimEmail    ClaimKind = "email"
	ClaimPGP      ClaimKind = "pgp"
	ClaimDomain   ClaimKind = "domain"
	ClaimURL      ClaimKind = "url"
	ClaimRelation ClaimKind = "relation"
	ClaimOther    ClaimKind = "other"
)

// Claim is an assertion an identity makes about itself.
type Claim struct {
	Kind  ClaimKind `json:"kind"`
	Value string    `json:"value"`
}

// CreateIdentity is the genesis body: it embeds the creator key, any
// additional initial keys, and the initial policy rules. It is the only body
// admitted with a zero parent, and its signatures are checked against the
// key material it embeds rather than prior ledger state.
type CreateIdentity struct {
	Creator  identity.PublicKey `json:"creator"`
	Keys     []KeyEntry         `json:"keys,omitempty"`
	Policies []policy.Rule      `json:"policies,omitempty"`
}

// KeyEntry is a named key installed on an identity.
type KeyEntry struct {
	Name string             `json:"name"`
	Key  identity.PublicKey `json:"key"`
}

func (CreateIdentity) Kind() Kind { return KindCreateIdentity }
func (CreateIdentity) Capability() policy.Capability { return policy.CapCreateIdentity }

// AddKey installs a new named key.
type AddKey struct {
	Entry KeyEntry `json:"entry"`
}

func (AddKey) Kind() Kind { return KindAddKey }
func (AddKey) Capability() policy.Capability { return policy.CapAddKey }

// RevokeKey marks a key inactive. Revoked keys stop authorizing signatures
// from the transaction after this one.
type RevokeKey struct {
	Key    identity.PublicKey `json:"key"`
	Reason string             `json:"reason,omitempty"`
}

func (RevokeKey) Kind() Kind { return KindRevokeKey }
func (RevokeKey) Capability() policy.Capability { return policy.CapRevokeKey }

// AddClaim records a claim; the claim's ID is the admitting transaction's ID.
type AddClaim struct {
	Claim Claim `json:"claim"`
}

func (AddClaim) Kind() Kind { return KindAddClaim }
func (AddClaim) Capability() policy.Capability { return policy.CapAddClaim }

// RemoveClaim retracts a previously added claim by its transaction ID.
type RemoveClaim struct {
	ClaimID ID `json:"claim_id"`
}

func (RemoveClaim) Kind() Kind { return KindRemoveClaim }
func (RemoveClaim) Capability() policy.Capability { return policy.CapRemoveClaim }

// MakeStamp attests to a claim on another identity.
type MakeStamp struct {
	SubjectIdentity ID    `json:"subject_identity"`
	SubjectClaim    ID    `json:"subject_claim"`
	Confidence      uint8 `json:"confidence"`
}

func (MakeStamp) Kind() Kind { return KindMakeStamp }
func (MakeStamp) Capability() policy.Capability { return policy.CapMakeStamp }

// AcceptStamp records, on the subject's own ledger, a stamp another identity
// made on one of its claims.
type AcceptStamp struct {
	Stamper identity.PublicKey `json:"stamper"`
	ClaimID ID                 `json:"claim_id"`
	StampID ID                 `json:"stamp_id"`
}

func (AcceptStamp) Kind() Kind { return KindAcceptStamp }
func (AcceptStamp) Capability() policy.Capability { return policy.CapAcceptStamp }

// SetPolicy installs or replaces the quorum rule for one capability. The
// transaction carrying it is evaluated against the rule in force before it.
type SetPolicy struct {
	Rule policy.Rule `json:"rule"`
}

func (SetPolicy) Kind() Kind { return KindSetPolicy }
func (SetPolicy) Capability() policy.Capability { return policy.CapSetPolicy }

// Sign records a detached signature over arbitrary external content,
// identified by its digest.
type Sign struct {
	Subject []byte `json:"subject"`
	Note    string `json:"note,omitempty"`
}

func (Sign) Kind() Kind { return KindSign }
func (Sign) Capability() policy.Capability { return policy.CapSign }

// decodeBody unmarshals a body payload by kind. Unknown kinds fail closed.
func decodeBody(kind Kind, payload json.RawMessage) (Body, error) {
	var body Body
	switch kind {
	case KindCreateIdentity:
		body = &CreateIdentity{}
	case KindAddKey:
		body = &AddKey{}
	case KindRevokeKey:
		body = &RevokeKey{}
	case KindAddClaim:
		body = &AddClaim{}
	case KindRemoveClaim:
		body = &RemoveClaim{}
	case KindMakeStamp:
		body = &MakeStamp{}
	case KindAcceptStamp:
		body = &AcceptStamp{}
	case KindSetPolicy:
		body = &SetPolicy{}
	case KindSign:
		body = &Sign{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, kind)
	}
	if err := json.Unmarshal(payload, body); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return deref(body), nil
}

// deref returns the value form of a decoded body pointer so transactions
// compare and hash by value.
func deref(b Body) Body {
	switch v := b.(type) {
	case *CreateIdentity:
		return *v
	case *AddKey:
		return *v
	case *RevokeKey:
		return *v
	case *AddClaim:
		return *v
	case *RemoveClaim:
		return *v
	case *MakeStamp:
		return *v
	case *AcceptStamp:
		return *v
	case *SetPolicy:
		return *v
	case *Sign:
		return *v
	default:
		return b
	}
}
