package id

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newDeleteCmd(v *viper.Viper) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <identity>",
		Short: "Delete an identity from the local database",
		Long:  "Delete an identity chain and all of its staged transactions.\nThis only affects the local database; published copies are untouched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			identityID, err := rt.ResolveIdentityID(ctx, args[0])
			if err != nil {
				return err
			}
			if !force {
				return fmt.Errorf("refusing to delete %s without --force", identityID.Short())
			}
			if err := rt.Store.DeleteLedger(ctx, identityID); err != nil {
				return fmt.Errorf("delete identity: %w", err)
			}
			fmt.Printf("Identity %s deleted\n", identityID.Hex())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm deletion")
	return cmd
}
