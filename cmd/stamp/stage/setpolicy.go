package stage

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/identity"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/policy"
	"github.com/stampnet/stampd/pkg/tx"
)

func newSetPolicyCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var (
		capability string
		signers    []string
		threshold  int
	)

	cmd := &cobra.Command{
		Use:   "set-policy",
		Short: "Stage installing a quorum rule for a capability",
		Long: "Stage a transaction that sets the quorum rule gating one capability.\n" +
			"The transaction itself is judged by the rule in force before it,\n" +
			"for example:\n\n" +
			"  stamp stage set-policy --capability revoke_key \\\n" +
			"      --signer work --signer backup --threshold 2",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStage(cmd, v, opts, func(ctx context.Context, rt *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				keys := make([]identity.PublicKey, 0, len(signers))
				for _, ref := range signers {
					pk, err := resolvePublicKey(ctx, rt, ref)
					if err != nil {
						return nil, err
					}
					keys = append(keys, pk)
				}
				rule := policy.Rule{
					Capability: policy.Capability(capability),
					Signers:    keys,
					Threshold:  threshold,
				}
				if err := rule.Validate(); err != nil {
					return nil, err
				}
				return tx.SetPolicy{Rule: rule}, nil
			})
		},
	}

	cmd.Flags().StringVar(&capability, "capability", "", "capability the rule gates (add_key, revoke_key, add_claim, ...)")
	cmd.Flags().StringArrayVar(&signers, "signer", nil, "authorized signer, as an encoded key or keyring alias (repeatable)")
	cmd.Flags().IntVar(&threshold, "threshold", 1, "number of signers required")
	_ = cmd.MarkFlagRequired("capability")
	_ = cmd.MarkFlagRequired("signer")
	return cmd
}
