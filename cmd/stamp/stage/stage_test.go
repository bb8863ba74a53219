package stage

import (
	"context"
	"testing"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/internal/keyring"
	"github.com/stampnet/stampd/pkg/identity"
)

func TestResolvePublicKey(t *testing.T) {
	ctx := context.Background()
	kr := keyring.New(t.TempDir())
	key, err := kr.Generate(ctx, "beef")
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	rt := &cli.Runtime{Keyring: kr}

	t.Run("hex-looking alias resolves through the keyring", func(t *testing.T) {
		pk, err := resolvePublicKey(ctx, rt, "beef")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !pk.Equal(key.Keypair.PublicKey()) {
			t.Error("alias parsed as a truncated key instead of a keyring lookup")
		}
	})

	t.Run("encoded key needs no keyring entry", func(t *testing.T) {
		enc := identity.EncodePublicKey(key.Keypair.PublicKey())
		pk, err := resolvePublicKey(ctx, &cli.Runtime{Keyring: keyring.New(t.TempDir())}, enc)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !pk.Equal(key.Keypair.PublicKey()) {
			t.Error("encoded key did not round-trip")
		}
	})

	t.Run("short hex with no matching key fails", func(t *testing.T) {
		if _, err := resolvePublicKey(ctx, rt, "cafe"); err == nil {
			t.Error("short hex resolved without a matching key")
		}
	})
}
