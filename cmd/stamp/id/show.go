package id

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newShowCmd(v *viper.Viper) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "show [identity]",
		Short: "Show an identity's current state",
		Long:  "Show the derived state of an identity: active keys, claims, stamps, and\npolicy rules. The identity may be a full hex ID or an unambiguous prefix.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			ref := ""
			if len(args) > 0 {
				ref = args[0]
			}
			identityID, err := rt.ResolveIdentityID(ctx, ref)
			if err != nil {
				return err
			}
			l, err := rt.Store.LoadLedger(ctx, identityID)
			if err != nil {
				return err
			}
			snap := l.Head()

			if outputFmt == "json" {
				return cli.WriteJSON(os.Stdout, snap)
			}

			fmt.Printf("Identity: %s\n", snap.IdentityID.Hex())
			fmt.Printf("Tip:      %s\n", snap.Tip.Hex())
			fmt.Printf("Creator:  %s\n", snap.Creator.String())
			fmt.Printf("Length:   %d transactions\n", l.Len())

			fmt.Println("\nKeys:")
			for _, k := range snap.Keys {
				status := "active"
				if k.Revoked {
					status = fmt.Sprintf("revoked by %s", k.RevokedBy.Short())
				}
				fmt.Printf("  %-12s %s  %s\n", k.Entry.Name, k.Entry.Key.String(), status)
			}

			if len(snap.Claims) > 0 {
				fmt.Println("\nClaims:")
				for _, c := range snap.Claims {
					fmt.Printf("  %s  %-10s %s\n", c.ID.Short(), c.Claim.Kind, c.Claim.Value)
				}
			}

			if len(snap.Stamps) > 0 {
				fmt.Println("\nStamps:")
				for _, s := range snap.Stamps {
					if s.Made {
						fmt.Printf("  %s  made on claim %s of %s\n", s.ID.Short(), s.ClaimID.Short(), s.Subject.Short())
					} else {
						fmt.Printf("  %s  accepted from %s on claim %s\n", s.ID.Short(), s.Stamper.Short(), s.ClaimID.Short())
					}
				}
			}

			if len(snap.Rules) > 0 {
				fmt.Println("\nPolicy rules:")
				for _, r := range snap.Rules {
					fmt.Printf("  %-16s %d of %d signers\n", r.Capability, r.Threshold, len(r.Signers))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	return cmd
}
