package keyring

import (
	"context"
	"errors"
	"testing"
)

func newTestKeyring(t *testing.T) *Keyring {
	t.Helper()
	return New(t.TempDir())
}

func TestGenerateAndLoad(t *testing.T) {
	ctx := context.Background()
	kr := newTestKeyring(t)

	key, err := kr.Generate(ctx, "work")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if key.PublicKey == "" {
		t.Fatal("generated key has empty public key")
	}

	byAlias, err := kr.Load(ctx, "work")
	if err != nil {
		t.Fatalf("load by alias: %v", err)
	}
	if byAlias.PublicKey != key.PublicKey {
		t.Error("alias resolved to a different key")
	}

	byHex, err := kr.Load(ctx, key.PublicKey)
	if err != nil {
		t.Fatalf("load by hex: %v", err)
	}
	if byHex.PublicKey != key.PublicKey {
		t.Error("hex lookup returned a different key")
	}

	if _, err := kr.Load(ctx, "nonexistent"); !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("got %v, want ErrAliasNotFound", err)
	}
}

func TestImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	kr := newTestKeyring(t)

	key, err := kr.Generate(ctx, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	seed := key.Keypair.Seed()

	other := newTestKeyring(t)
	imported, err := other.Import(ctx, seed, "restored")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.PublicKey != key.PublicKey {
		t.Error("imported seed produced a different public key")
	}

	if _, err := other.Import(ctx, []byte("short"), ""); err == nil {
		t.Error("expected error for invalid seed, got nil")
	}
}

func TestSignResolvesKeyRef(t *testing.T) {
	ctx := context.Background()
	kr := newTestKeyring(t)

	key, err := kr.Generate(ctx, "signer")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := kr.SetDefault("signer"); err != nil {
		t.Fatalf("set default: %v", err)
	}

	payload := []byte("payload")
	byAlias, err := kr.Sign(ctx, payload, "signer")
	if err != nil {
		t.Fatalf("sign by alias: %v", err)
	}
	byDefault, err := kr.Sign(ctx, payload, "")
	if err != nil {
		t.Fatalf("sign by default: %v", err)
	}
	if string(byAlias.Bytes) != string(byDefault.Bytes) {
		t.Error("alias and default produced different signatures")
	}

	// Signatures must verify against the generating key.
	sig, err := key.Keypair.Sign(payload)
	if err != nil {
		t.Fatalf("direct sign: %v", err)
	}
	if string(sig.Bytes) != string(byAlias.Bytes) {
		t.Error("keyring signature differs from direct signature")
	}
}

func TestDefaultLifecycle(t *testing.T) {
	ctx := context.Background()
	kr := newTestKeyring(t)

	if _, err := kr.LoadDefault(ctx); !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNoDefault) {
		t.Errorf("got %v, want not-found or no-default", err)
	}

	if _, err := kr.Generate(ctx, "main"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := kr.SetDefault("missing"); !errors.Is(err, ErrAliasNotFound) {
		t.Errorf("got %v, want ErrAliasNotFound", err)
	}
	if err := kr.SetDefault("main"); err != nil {
		t.Fatalf("set default: %v", err)
	}

	key, err := kr.LoadDefault(ctx)
	if err != nil {
		t.Fatalf("load default: %v", err)
	}

	infos, err := kr.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d keys, want 1", len(infos))
	}
	if !infos[0].IsDefault {
		t.Error("default key not marked in listing")
	}
	if len(infos[0].Aliases) != 1 || infos[0].Aliases[0] != "main" {
		t.Errorf("got aliases %v, want [main]", infos[0].Aliases)
	}

	// Deleting the default key clears the default pointer and the aliases.
	if err := kr.Delete(ctx, key.PublicKey); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := kr.LoadDefault(ctx); err == nil {
		t.Error("default still resolvable after deletion")
	}
	infos, err = kr.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("got %d keys after deletion, want 0", len(infos))
	}
}

func TestLoadOrGenerate(t *testing.T) {
	ctx := context.Background()
	kr := newTestKeyring(t)

	first, err := kr.LoadOrGenerate(ctx, "auto")
	if err != nil {
		t.Fatalf("load or generate: %v", err)
	}
	second, err := kr.LoadOrGenerate(ctx, "auto")
	if err != nil {
		t.Fatalf("load or generate again: %v", err)
	}
	if first.PublicKey != second.PublicKey {
		t.Error("second call generated a new key instead of loading")
	}
}

func TestSetAlias(t *testing.T) {
	ctx := context.Background()
	kr := newTestKeyring(t)

	key, err := kr.Generate(ctx, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := kr.SetAlias("nickname", key.PublicKey); err != nil {
		t.Fatalf("set alias: %v", err)
	}
	got, err := kr.Load(ctx, "nickname")
	if err != nil {
		t.Fatalf("load by new alias: %v", err)
	}
	if got.PublicKey != key.PublicKey {
		t.Error("alias resolved to a different key")
	}

	if err := kr.SetAlias("ghost", "0000000000000000000000000000000000000000000000000000000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
