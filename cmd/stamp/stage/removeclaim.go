package stage

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

func newRemoveClaimCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-claim <claim-id>",
		Short: "Stage retracting a claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, v, opts, func(_ context.Context, _ *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				claimID, err := tx.IDFromHex(args[0])
				if err != nil {
					return nil, fmt.Errorf("parse claim id: %w", err)
				}
				return tx.RemoveClaim{ClaimID: claimID}, nil
			})
		},
	}
}
