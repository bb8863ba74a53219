package stage

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newApplyCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <txid>",
		Short: "Apply a staged transaction to the chain",
		Long:  "Re-check quorum against the chain's current state and, if it holds,\nadmit the staged transaction as the new tip.",
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
			m, l, err := rt.LoadManager(ctx, identityID)
			if err != nil {
				return err
			}
			txID, err := resolveStagedID(m, args[0])
			if err != nil {
				return err
			}
			appliedID, err := m.Apply(txID)
			if err != nil {
				return fmt.Errorf("apply: %w", err)
			}
			if err := rt.CommitApply(ctx, l, identityID, txID); err != nil {
				return err
			}

			fmt.Printf("Applied %s, tip is now %s\n", txID.Short(), appliedID.Hex())
			return nil
		},
	}
}
