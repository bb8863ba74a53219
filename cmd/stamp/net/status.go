package net

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <identity>",
		Short: "Check whether an identity chain is published",
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
			exists, err := network.Exists(ctx, identityID)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}

			if exists {
				fmt.Printf("%s is published\n", identityID.Hex())
			} else {
				fmt.Printf("%s is not published\n", identityID.Hex())
			}
			return nil
		},
	}

	return cmd
}
