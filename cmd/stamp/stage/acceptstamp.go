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

func newAcceptStampCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var (
		stamper string
		claimID string
		stampID string
	)

	cmd := &cobra.Command{
		Use:   "accept-stamp",
		Short: "Stage accepting a stamp made on one of this identity's claims",
		Long:  "Stage a transaction that records, on this identity's own chain, a stamp\nanother identity made on one of its claims.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStage(cmd, v, opts, func(ctx context.Context, rt *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				pk, err := resolvePublicKey(ctx, rt, stamper)
				if err != nil {
					return nil, err
				}
				claim, err := tx.IDFromHex(claimID)
				if err != nil {
					return nil, fmt.Errorf("parse --claim: %w", err)
				}
				stamp, err := tx.IDFromHex(stampID)
				if err != nil {
					return nil, fmt.Errorf("parse --stamp: %w", err)
				}
				return tx.AcceptStamp{Stamper: pk, ClaimID: claim, StampID: stamp}, nil
			})
		},
	}

	cmd.Flags().StringVar(&stamper, "stamper", "", "public key of the identity that made the stamp")
	cmd.Flags().StringVar(&claimID, "claim", "", "ID of the local claim being stamped")
	cmd.Flags().StringVar(&stampID, "stamp", "", "ID of the stamping transaction on the stamper's chain")
	_ = cmd.MarkFlagRequired("stamper")
	_ = cmd.MarkFlagRequired("claim")
	_ = cmd.MarkFlagRequired("stamp")
	return cmd
}
