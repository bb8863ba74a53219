// Package policy evaluates signature quorums for identity capabilities.
//
// A policy maps a capability (revoke a key, change policy, make a stamp) to
// the set of signers authorized to exercise it and the number of them that
// must co-sign. Policies are themselves installed by transactions, so a
// policy change is always judged against the policy that preceded it.
package policy

import (
	"errors"
	"fmt"

	"github.com/stampnet/stampd/pkg/identity"
)

// Capability names an operation gated by a quorum rule.
type Capability string

const (
	CapCreateIdentity Capability = "create_identity"
	CapAddKey         Capability = "add_key"
	CapRevokeKey      Capability = "revoke_key"
	CapAddClaim       Capability = "add_claim"
	CapRemoveClaim    Capability = "remove_claim"
	CapMakeStamp      Capability = "make_stamp"
	CapAcceptStamp    Capability = "accept_stamp"
	CapSetPolicy      Capability = "set_policy"
	CapSign           Capability = "sign"
)

var (
	// ErrInvalidRule indicates a structurally invalid quorum rule.
	ErrInvalidRule = errors.New("invalid policy rule")
)

// Rule is a quorum requirement for one capability: Threshold of the listed
// Signers must co-sign a transaction exercising the capability.
type Rule struct {
	Capability Capability           `json:"capability"`
	Signers    []identity.PublicKey `json:"signers"`
	Threshold  int                  `json:"threshold"`
}

// Validate checks the rule's internal consistency.
func (r Rule) Validate() error {
	if r.Capability == "" {
		return fmt.Errorf("%w: empty capability", ErrInvalidRule)
	}
	if len(r.Signers) == 0 {
		return fmt.Errorf("%w: no signers", ErrInvalidRule)
	}
	if r.Threshold < 1 || r.Threshold > len(r.Signers) {
		return fmt.Errorf("%w: threshold %d out of range for %d signers", ErrInvalidRule, r.Threshold, len(r.Signers))
	}
	for i, a := range r.Signers {
		for _, b := range r.Signers[i+1:] {
			if a.Equal(b) {
				return fmt.Errorf("%w: duplicate signer %s", ErrInvalidRule, a.Short())
			}
		}
	}
	return nil
}

// Authorizes reports whether pk is one of the rule's authorized signers.
func (r Rule) Authorizes(pk identity.PublicKey) bool {
	for _, s := range r.Signers {
		if s.Equal(pk) {
			return true
		}
	}
	return false
}

// DefaultRule is the fallback applied when an identity has no explicit rule
// for a capability: the identity's creator alone satisfies it (1-of-1).
//
// This "god mode" default is a documented simplification carried over from
// the reference protocol while its policy system matures. Do not tighten it
// here; identities that want stricter control install explicit rules.
func DefaultRule(creator identity.PublicKey, cap Capability) Rule {
	return Rule{
		Capability: cap,
		Signers:    []identity.PublicKey{creator},
		Threshold:  1,
	}
}

// Engine evaluates signer sets against a point-in-time rule set.
//
// An Engine is a value derived from replaying the ledger up to (and
// excluding) the transaction under evaluation; it holds no mutable state.
type Engine struct {
	creator identity.PublicKey
	rules   map[Capability]Rule
}

// NewEngine builds an engine from the identity creator and the rules active
// at the evaluation point.
func NewEngine(creator identity.PublicKey, rules []Rule) *Engine {
	m := make(map[Capability]Rule, len(rules))
	for _, r := range rules {
		m[r.Capability] = r
	}
	return &Engine{creator: creator, rules: m}
}

// QuorumFor returns the active rule for a capability, falling back to
// DefaultRule when no explicit rule is installed.
func (e *Engine) QuorumFor(cap Capability) Rule {
	if r, ok := e.rules[cap]; ok {
		return r
	}
	return DefaultRule(e.creator, cap)
}

// Evaluate reports whether the signer set satisfies the capability's quorum:
// every signer must be authorized by the rule, and the number of distinct
// signers must reach the threshold.
func (e *Engine) Evaluate(cap Capability, signers []identity.PublicKey) bool {
	rule := e.QuorumFor(cap)

	distinct := make([]identity.PublicKey, 0, len(signers))
	for _, s := range signers {
		dup := false
		for _, d := range distinct {
			if d.Equal(s) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if !rule.Authorizes(s) {
			return false
		}
		distinct = append(distinct, s)
	}
	return len(distinct) >= rule.Threshold
}
