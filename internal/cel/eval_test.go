package cel

import (
	"testing"
)

func txAttrs() map[string]any {
	return map[string]any{
		"kind":       "add_claim_v1",
		"capability": "add_claim",
		"id":         "ab12",
		"previous":   "cd34",
		"timestamp":  int64(1700000000),
		"signers":    2,
		"genesis":    false,
	}
}

func TestCompileAndMatch(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"kind equality", `kind == "add_claim_v1"`, true},
		{"kind mismatch", `kind == "revoke_key_v1"`, false},
		{"numeric comparison", `signers >= 2`, true},
		{"boolean attribute", `!genesis`, true},
		{"conjunction", `kind == "add_claim_v1" && signers > 1`, true},
		{"disjunction", `genesis || signers == 2`, true},
		{"capability equality", `capability == "add_claim"`, true},
		{"string prefix", `id.startsWith("ab")`, true},
		{"timestamp range", `timestamp > 1600000000`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.expr, TxKeys)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if got := f.Match(txAttrs()); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"undeclared variable", `nonexistent == "x"`},
		{"syntax error", `kind ==`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.expr, TxKeys); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestMatchIsFalseNotError(t *testing.T) {
	// A filter over a key absent from the attribute map evaluates to false
	// rather than failing.
	f, err := Compile(`signers > 0`, TxKeys)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Match(map[string]any{"kind": "add_claim_v1"}) {
		t.Error("missing attribute matched")
	}

	// A non-boolean result is treated as no match.
	f, err = Compile(`signers + 1`, TxKeys)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Match(txAttrs()) {
		t.Error("non-boolean result matched")
	}
}
