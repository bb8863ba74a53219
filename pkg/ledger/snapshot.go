package ledger

import (
	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/policy"
	"github.com/stampnet/stampd/pkg/tx"
)

// Snapshot is the derived current-state view of an identity at some point in
// its chain: active keys, claims, stamps, and policy rules. It is a pure
// function of the transactions replayed into it; the ledger memoizes one
// snapshot keyed by tip and rebuilds on any tip change.
type Snapshot struct {
	IdentityID tx.ID
	Tip        tx.ID
	Creator    identity.PublicKey
	Keys       []KeyState
	Claims     []ClaimState
	Stamps     []StampState
	Rules      []policy.Rule
}

// KeyState is one installed key and its revocation status.
type KeyState struct {
	Entry     tx.KeyEntry
	Revoked   bool
	RevokedBy tx.ID
}

// ClaimState is one claim currently held by the identity. Its ID is the
// transaction that added it.
type ClaimState struct {
	ID    tx.ID
	Claim tx.Claim
}

// StampState records a stamp the identity made or accepted.
type StampState struct {
	ID       tx.ID
	Made     bool
	Stamper  identity.PublicKey
	ClaimID  tx.ID
	Subject  tx.ID
	Accepted bool
}

// replay builds a snapshot from a committed chain, genesis first. It applies
// body effects only; all admission checks already happened. Replaying the
// same chain always yields the same snapshot.
func replay(txs []tx.Transaction) *Snapshot {
	s := &Snapshot{}
	for _, t := range txs {
		s.apply(t)
	}
	return s
}

func (s *Snapshot) apply(t tx.Transaction) {
	s.Tip = t.ID
	switch body := t.Body.(type) {
	case tx.CreateIdentity:
		s.IdentityID = t.ID
		s.Creator = body.Creator
		s.Keys = append(s.Keys, KeyState{Entry: tx.KeyEntry{Name: "creator", Key: body.Creator}})
		for _, entry := range body.Keys {
			s.Keys = append(s.Keys, KeyState{Entry: entry})
		}
		for _, rule := range body.Policies {
			s.setRule(rule)
		}
	case tx.AddKey:
		s.Keys = append(s.Keys, KeyState{Entry: body.Entry})
	case tx.RevokeKey:
		for i := range s.Keys {
			if s.Keys[i].Entry.Key.Equal(body.Key) && !s.Keys[i].Revoked {
				s.Keys[i].Revoked = true
				s.Keys[i].RevokedBy = t.ID
			}
		}
	case tx.AddClaim:
		s.Claims = append(s.Claims, ClaimState{ID: t.ID, Claim: body.Claim})
	case tx.RemoveClaim:
		kept := s.Claims[:0]
		for _, c := range s.Claims {
			if c.ID != body.ClaimID {
				kept = append(kept, c)
			}
		}
		s.Claims = kept
	case tx.MakeStamp:
		s.Stamps = append(s.Stamps, StampState{
			ID:      t.ID,
			Made:    true,
			ClaimID: body.SubjectClaim,
			Subject: body.SubjectIdentity,
		})
	case tx.AcceptStamp:
		s.Stamps = append(s.Stamps, StampState{
			ID:       t.ID,
			Stamper:  body.Stamper,
			ClaimID:  body.ClaimID,
			Accepted: true,
		})
	case tx.SetPolicy:
		s.setRule(body.Rule)
	case tx.Sign:
		// Detached signatures leave no derived state.
	}
}

func (s *Snapshot) setRule(rule policy.Rule) {
	for i := range s.Rules {
		if s.Rules[i].Capability == rule.Capability {
			s.Rules[i] = rule
			return
		}
	}
	s.Rules = append(s.Rules, rule)
}

// Engine returns a policy engine over the snapshot's active rules.
func (s *Snapshot) Engine() *policy.Engine {
	return policy.NewEngine(s.Creator, s.Rules)
}

// KeyActive reports whether pk is installed and not revoked.
func (s *Snapshot) KeyActive(pk identity.PublicKey) bool {
	for _, k := range s.Keys {
		if k.Entry.Key.Equal(pk) && !k.Revoked {
			return true
		}
	}
	return false
}

// ActiveKeys returns the currently active key entries.
func (s *Snapshot) ActiveKeys() []tx.KeyEntry {
	var out []tx.KeyEntry
	for _, k := range s.Keys {
		if !k.Revoked {
			out = append(out, k.Entry)
		}
	}
	return out
}

// FindClaim returns the claim added by the given transaction, if present.
func (s *Snapshot) FindClaim(id tx.ID) (ClaimState, bool) {
	for _, c := range s.Claims {
		if c.ID == id {
			return c, true
		}
	}
	return ClaimState{}, false
}
