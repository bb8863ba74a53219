package stage

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newDiscardCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <txid>",
		Short: "Discard a staged transaction",
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
			if err := m.Discard(txID); err != nil {
				return fmt.Errorf("discard: %w", err)
			}
			if err := rt.Store.DeleteStaged(ctx, identityID, txID); err != nil {
				return fmt.Errorf("delete staged envelope: %w", err)
			}

			fmt.Printf("Discarded %s\n", txID.Hex())
			return nil
		},
	}
}
