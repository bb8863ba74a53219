package stage

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

func newAddKeyCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "add-key <name> <key>",
		Short: "Stage installing a new named key",
		Long:  "Stage a transaction that installs a key under a name. The key may be\nan encoded public key or a keyring alias.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, v, opts, func(ctx context.Context, rt *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				pk, err := resolvePublicKey(ctx, rt, args[1])
				if err != nil {
					return nil, err
				}
				return tx.AddKey{Entry: tx.KeyEntry{Name: args[0], Key: pk}}, nil
			})
		},
	}
}
