package net

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newFetchCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <identity>",
		Short: "Fetch an identity chain",
		Long:  "Fetch a published chain by its full identity ID, verify every\ntransaction, and store it locally.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			identityID, err := tx.IDFromHex(args[0])
			if err != nil {
				return fmt.Errorf("parse identity id: %w", err)
			}
			network, err := rt.Network(ctx)
			if err != nil {
				return err
			}
			l, err := network.Fetch(ctx, identityID)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			if err := rt.Store.SaveLedger(ctx, l); err != nil {
				return fmt.Errorf("save identity: %w", err)
			}

			fmt.Printf("Fetched %s (%d transactions)\n", identityID.Hex(), l.Len())
			return nil
		},
	}

	return cmd
}
