package net

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newPublishCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish [identity]",
		Short: "Publish an identity chain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			identityID, err := rt.ResolveIdentityID(ctx, ref)
			if err != nil {
				return err
			}
			l, err := rt.Store.LoadLedger(ctx, identityID)
			if err != nil {
				return err
			}
			network, err := rt.Network(ctx)
			if err != nil {
				return err
			}
			if err := network.Publish(ctx, l); err != nil {
				return fmt.Errorf("publish: %w", err)
			}

			fmt.Printf("Published %s (%d transactions)\n", identityID.Hex(), l.Len())
			return nil
		},
	}

	return cmd
}
