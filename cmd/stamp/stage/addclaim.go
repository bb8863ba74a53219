package stage

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

func newAddClaimCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-claim <kind> <value>",
		Short: "Stage adding a claim",
		Long: "Stage a transaction that records a claim about this identity,\n" +
			"for example:\n\n" +
			"  stamp stage add-claim email alice@example.org\n" +
			"  stamp stage add-claim domain example.org",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, v, opts, func(_ context.Context, _ *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				return tx.AddClaim{Claim: tx.Claim{
					Kind:  tx.ClaimKind(args[0]),
					Value: args[1],
				}}, nil
			})
		},
	}

	return cmd
}
