// Package stage implements the stamp stage subcommands: building, signing,
// and applying transactions through the staging area.
package stage

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/internal/keyring"
	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/staging"
	"github.com/stampnet/stampd/pkg/tx"
)

// stageOpts carries the flags shared by every stage subcommand.
type stageOpts struct {
	identity string
	noSign   bool
}

func Entrypoint(v *viper.Viper) *cobra.Command {
	opts := &stageOpts{}

	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Stage, sign, and apply transactions",
		Long: "Draft transactions into an identity's staging area, collect signatures\n" +
			"until the quorum rule for their capability is met, then apply them to\n" +
			"the chain. Staged transactions can be exported for co-signing elsewhere.",
	}

	cmd.PersistentFlags().StringVarP(&opts.identity, "identity", "i", "", "identity to stage against (default: the only local identity)")
	cmd.PersistentFlags().BoolVar(&opts.noSign, "no-sign", false, "stage without adding a signature from the active key")

	cmd.AddCommand(
		newAddKeyCmd(v, opts),
		newRevokeKeyCmd(v, opts),
		newAddClaimCmd(v, opts),
		newRemoveClaimCmd(v, opts),
		newMakeStampCmd(v, opts),
		newAcceptStampCmd(v, opts),
		newSetPolicyCmd(v, opts),
		newSignDataCmd(v, opts),
		newListCmd(v, opts),
		newShowCmd(v, opts),
		newSignCmd(v, opts),
		newApplyCmd(v, opts),
		newDiscardCmd(v, opts),
		newExportCmd(v, opts),
		newImportCmd(v, opts),
	)

	return cmd
}

// buildFunc constructs the body to stage once the ledger is loaded.
type buildFunc func(ctx context.Context, rt *cli.Runtime, l *ledger.Ledger) (tx.Body, error)

// runStage drafts a transaction, optionally self-signs it, persists the
// staged envelope, and reports whether quorum is already met.
func runStage(cmd *cobra.Command, v *viper.Viper, opts *stageOpts, build buildFunc) error {
	ctx := cmd.Context()
	rt, err := cli.Open(ctx, v)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	identityID, err := rt.ResolveIdentityID(ctx, opts.identity)
	if err != nil {
		return err
	}
	m, l, err := rt.LoadManager(ctx, identityID)
	if err != nil {
		return err
	}
	body, err := build(ctx, rt, l)
	if err != nil {
		return err
	}
	item, err := m.Stage(body)
	if err != nil {
		return fmt.Errorf("stage %s: %w", body.Kind(), err)
	}

	if !opts.noSign {
		if err := signStaged(ctx, rt, v, m, item.Tx); err != nil {
			return err
		}
	}
	if err := rt.SaveStagedItem(ctx, m, identityID, item.Tx.ID); err != nil {
		return err
	}

	ready, err := m.Ready(item.Tx.ID)
	if err != nil {
		return err
	}
	fmt.Printf("Staged %s: %s\n", body.Kind(), item.Tx.ID.Hex())
	if ready {
		fmt.Println("Quorum met, apply with: stamp stage apply " + item.Tx.ID.Short())
	} else {
		fmt.Println("Waiting for more signatures")
	}
	return nil
}

// signStaged adds a signature from the active key to a staged transaction.
func signStaged(ctx context.Context, rt *cli.Runtime, v *viper.Viper, m *staging.Manager, t tx.Transaction) error {
	key, err := activeKey(ctx, rt, v)
	if err != nil {
		return err
	}
	content, err := t.ContentBytes()
	if err != nil {
		return err
	}
	sig, err := key.Keypair.Sign(content)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	if err := m.AddSignature(t.ID, key.Keypair.PublicKey(), sig); err != nil {
		return fmt.Errorf("add signature: %w", err)
	}
	return nil
}

// activeKey resolves the signing key from the --key flag or the default.
func activeKey(ctx context.Context, rt *cli.Runtime, v *viper.Viper) (*keyring.Key, error) {
	ref := v.GetString("key")
	if ref != "" {
		key, err := rt.Keyring.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load key %q: %w", ref, err)
		}
		return key, nil
	}
	key, err := rt.Keyring.LoadDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default key (generate one with: stamp keys generate): %w", err)
	}
	return key, nil
}

// resolvePublicKey accepts an encoded public key or a keyring alias. An
// alias that happens to decode as hex (say "beef") must not be mistaken for
// a key, so decoded values are held to the algorithm's key length.
func resolvePublicKey(ctx context.Context, rt *cli.Runtime, ref string) (identity.PublicKey, error) {
	if pk, err := identity.DecodePublicKey(ref); err == nil && pk.Valid() {
		return pk, nil
	}
	key, err := rt.Keyring.Load(ctx, ref)
	if err != nil {
		return identity.PublicKey{}, fmt.Errorf("resolve key %q: %w", ref, err)
	}
	return key.Keypair.PublicKey(), nil
}

// resolveStagedID matches a full ID or an unambiguous prefix against the
// staged transactions of an identity.
func resolveStagedID(m *staging.Manager, ref string) (tx.ID, error) {
	if id, err := tx.IDFromHex(ref); err == nil {
		return id, nil
	}
	var match tx.ID
	found := 0
	for _, item := range m.List() {
		if strings.HasPrefix(item.Tx.ID.Hex(), ref) {
			match = item.Tx.ID
			found++
		}
	}
	switch found {
	case 0:
		return tx.ID{}, fmt.Errorf("no staged transaction matches %q", ref)
	case 1:
		return match, nil
	default:
		return tx.ID{}, fmt.Errorf("staged transaction reference %q is ambiguous", ref)
	}
}
