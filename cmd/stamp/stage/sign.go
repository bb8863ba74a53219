package stage

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newSignCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sign <txid>",
		Short: "Add a signature to a staged transaction",
		Long:  "Sign a staged transaction with the active key. Use -k to sign with a\nspecific keyring key when collecting a quorum across several keys.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			m, _, err := rt.LoadManager(ctx, identityID)
			if err != nil {
				return err
			}
			txID, err := resolveStagedID(m, args[0])
			if err != nil {
				return err
			}
			item, err := m.Get(txID)
			if err != nil {
				return err
			}
			if err := signStaged(ctx, rt, v, m, item.Tx); err != nil {
				return err
			}
			if err := rt.SaveStagedItem(ctx, m, identityID, txID); err != nil {
				return err
			}

			ready, err := m.Ready(txID)
			if err != nil {
				return err
			}
			fmt.Printf("Signed %s\n", txID.Hex())
			if ready {
				fmt.Println("Quorum met, apply with: stamp stage apply " + txID.Short())
			} else {
				fmt.Println("Waiting for more signatures")
			}
			return nil
		},
	}
}
