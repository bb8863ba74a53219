package stage

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

func newRevokeKeyCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "revoke-key <key>",
		Short: "Stage revoking a key",
		Long:  "Stage a transaction that revokes a key. The key stops authorizing\nsignatures from the transaction after this one onward.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, v, opts, func(ctx context.Context, rt *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				pk, err := resolvePublicKey(ctx, rt, args[0])
				if err != nil {
					return nil, err
				}
				return tx.RevokeKey{Key: pk, Reason: reason}, nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "optional human-readable reason")
	return cmd
}
