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

func newMakeStampCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var confidence uint8

	cmd := &cobra.Command{
		Use:   "make-stamp <subject-identity> <subject-claim>",
		Short: "Stage attesting to a claim on another identity",
		Long:  "Stage a transaction that stamps a claim on another identity's chain.\nBoth arguments are full hex IDs taken from the subject's exported chain.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, v, opts, func(_ context.Context, _ *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				subject, err := tx.IDFromHex(args[0])
				if err != nil {
					return nil, fmt.Errorf("parse subject identity: %w", err)
				}
				claim, err := tx.IDFromHex(args[1])
				if err != nil {
					return nil, fmt.Errorf("parse subject claim: %w", err)
				}
				return tx.MakeStamp{
					SubjectIdentity: subject,
					SubjectClaim:    claim,
					Confidence:      confidence,
				}, nil
			})
		},
	}

	cmd.Flags().Uint8Var(&confidence, "confidence", 100, "confidence in the claim, 0 to 100")
	return cmd
}
