package id

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newRollbackCmd(v *viper.Viper) *cobra.Command {
	var (
		target string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "rollback <identity> --to <txid>",
		Short: "Roll an identity chain back to an earlier transaction",
		Long: "Truncate the local copy of an identity chain so that the given\n" +
			"transaction becomes the new tip. Rolling back to the current tip is a no-op.\n\n" +
			"WARNING: rollback is irreversible. The removed transactions are gone and\n" +
			"cannot be re-admitted; anything staged against them will fail to apply.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("rollback is irreversible and removed transactions cannot be re-admitted; re-run with --force")
			}

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
			targetID, err := tx.IDFromHex(target)
			if err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}

			l, err := rt.Store.LoadLedger(ctx, identityID)
			if err != nil {
				return err
			}
			removed, err := l.Rollback(targetID)
			if err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			if removed == 0 {
				fmt.Println("Already at target, nothing to do")
				return nil
			}
			if err := rt.Store.SaveLedger(ctx, l); err != nil {
				return fmt.Errorf("save identity: %w", err)
			}

			fmt.Printf("Rolled back %d transaction(s), tip is now %s\n", removed, l.Tip().Hex())
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "to", "", "transaction ID to become the new tip")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm the irreversible rollback")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
