package policy

import (
	"errors"
	"testing"

	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/identity/ed25519"
)

func newKey(t *testing.T) identity.PublicKey {
	t.Helper()
	kp, err := ed25519.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp.PublicKey()
}

func TestRuleValidate(t *testing.T) {
	a := newKey(t)
	b := newKey(t)

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid 1-of-1",
			rule: Rule{Capability: CapAddKey, Signers: []identity.PublicKey{a}, Threshold: 1},
		},
		{
			name: "valid 2-of-2",
			rule: Rule{Capability: CapRevokeKey, Signers: []identity.PublicKey{a, b}, Threshold: 2},
		},
		{
			name:    "empty capability",
			rule:    Rule{Signers: []identity.PublicKey{a}, Threshold: 1},
			wantErr: true,
		},
		{
			name:    "no signers",
			rule:    Rule{Capability: CapAddKey, Threshold: 1},
			wantErr: true,
		},
		{
			name:    "threshold zero",
			rule:    Rule{Capability: CapAddKey, Signers: []identity.PublicKey{a}, Threshold: 0},
			wantErr: true,
		},
		{
			name:    "threshold above signer count",
			rule:    Rule{Capability: CapAddKey, Signers: []identity.PublicKey{a}, Threshold: 2},
			wantErr: true,
		},
		{
			name:    "duplicate signer",
			rule:    Rule{Capability: CapAddKey, Signers: []identity.PublicKey{a, a}, Threshold: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidRule) {
					t.Errorf("got %v, want ErrInvalidRule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEngineDefaultsToCreator(t *testing.T) {
	creator := newKey(t)
	stranger := newKey(t)
	e := NewEngine(creator, nil)

	// With no installed rules, the creator alone satisfies every capability.
	for _, cap := range []Capability{CapAddKey, CapRevokeKey, CapSetPolicy, CapSign} {
		if !e.Evaluate(cap, []identity.PublicKey{creator}) {
			t.Errorf("creator did not satisfy default rule for %s", cap)
		}
		if e.Evaluate(cap, []identity.PublicKey{stranger}) {
			t.Errorf("stranger satisfied default rule for %s", cap)
		}
		if e.Evaluate(cap, nil) {
			t.Errorf("empty signer set satisfied default rule for %s", cap)
		}
	}
}

func TestEngineEvaluate(t *testing.T) {
	creator := newKey(t)
	a := newKey(t)
	b := newKey(t)
	c := newKey(t)
	stranger := newKey(t)

	e := NewEngine(creator, []Rule{{
		Capability: CapRevokeKey,
		Signers:    []identity.PublicKey{a, b, c},
		Threshold:  2,
	}})

	tests := []struct {
		name    string
		signers []identity.PublicKey
		want    bool
	}{
		{"below threshold", []identity.PublicKey{a}, false},
		{"at threshold", []identity.PublicKey{a, b}, true},
		{"above threshold", []identity.PublicKey{a, b, c}, true},
		{"duplicates count once", []identity.PublicKey{a, a}, false},
		{"unauthorized signer fails the set", []identity.PublicKey{a, b, stranger}, false},
		{"creator not implicitly authorized", []identity.PublicKey{a, creator}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Evaluate(CapRevokeKey, tt.signers); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	// Capabilities without an explicit rule still fall back to the creator.
	if !e.Evaluate(CapAddClaim, []identity.PublicKey{creator}) {
		t.Error("default rule not applied for capability without explicit rule")
	}
}

func TestQuorumFor(t *testing.T) {
	creator := newKey(t)
	a := newKey(t)
	installed := Rule{Capability: CapSetPolicy, Signers: []identity.PublicKey{a}, Threshold: 1}
	e := NewEngine(creator, []Rule{installed})

	got := e.QuorumFor(CapSetPolicy)
	if !got.Signers[0].Equal(a) {
		t.Error("installed rule not returned")
	}

	fallback := e.QuorumFor(CapMakeStamp)
	if len(fallback.Signers) != 1 || !fallback.Signers[0].Equal(creator) || fallback.Threshold != 1 {
		t.Errorf("fallback rule is not creator 1-of-1: %+v", fallback)
	}
}
