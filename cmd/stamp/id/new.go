package id

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

func newNewCmd(v *viper.Viper) *cobra.Command {
	var extraKeys []string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new identity",
		Long:  "Create an identity chain with a signed genesis transaction.\nThe signing key (--key or the default) becomes the creator key.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			key, err := loadSignerKey(ctx, rt, v)
			if err != nil {
				return err
			}
			creator := key.Keypair.PublicKey()

			body := tx.CreateIdentity{Creator: creator}
			for _, ref := range extraKeys {
				name, keyHex, found := cutKeyRef(ref)
				if !found {
					return fmt.Errorf("invalid --with-key %q, want name=alias-or-hex", ref)
				}
				extra, err := rt.Keyring.Load(ctx, keyHex)
				if err != nil {
					return fmt.Errorf("load key %q: %w", keyHex, err)
				}
				body.Keys = append(body.Keys, tx.KeyEntry{Name: name, Key: extra.Keypair.PublicKey()})
			}

			genesis, err := tx.New(tx.NilID, time.Now(), body)
			if err != nil {
				return fmt.Errorf("build genesis: %w", err)
			}
			content, err := genesis.ContentBytes()
			if err != nil {
				return err
			}
			sig, err := key.Keypair.Sign(content)
			if err != nil {
				return fmt.Errorf("sign genesis: %w", err)
			}
			genesis = genesis.WithSignature(tx.Sig{
				Signer:     creator,
				Signature:  sig,
				Capability: body.Capability(),
			})

			l, err := ledger.Create(genesis)
			if err != nil {
				return fmt.Errorf("create identity: %w", err)
			}
			if err := rt.Store.SaveLedger(ctx, l); err != nil {
				return fmt.Errorf("save identity: %w", err)
			}

			fmt.Printf("Identity created: %s\n", l.IdentityID().Hex())
			fmt.Printf("  Creator: %s\n", creator.String())
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&extraKeys, "with-key", nil, "additional key to install, as name=alias-or-hex (repeatable)")
	return cmd
}

func cutKeyRef(ref string) (name, key string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '=' {
			return ref[:i], ref[i+1:], i > 0 && i < len(ref)-1
		}
	}
	return "", "", false
}
