package dag

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newShowCmd(v *viper.Viper) *cobra.Command {
	var (
		outputFmt  string
		identities string
	)

	cmd := &cobra.Command{
		Use:   "show <txid>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			txID, err := tx.IDFromHex(args[0])
			if err != nil {
				return fmt.Errorf("parse transaction id: %w", err)
			}
			identityID, err := rt.ResolveIdentityID(ctx, identities)
			if err != nil {
				return err
			}
			l, err := rt.Store.LoadLedger(ctx, identityID)
			if err != nil {
				return err
			}
			t, ok := l.Get(txID)
			if !ok {
				return fmt.Errorf("transaction %s not found in %s", txID.Short(), identityID.Short())
			}

			if outputFmt == "json" {
				return cli.WriteJSON(os.Stdout, t)
			}

			fmt.Printf("ID:        %s\n", t.ID.Hex())
			fmt.Printf("Previous:  %s\n", t.Previous.Hex())
			fmt.Printf("Kind:      %s\n", t.Body.Kind())
			fmt.Printf("Timestamp: %s\n", t.Timestamp.Format(time.RFC3339Nano))
			fmt.Println("Signatures:")
			for _, s := range t.Signatures {
				fmt.Printf("  %s  (%s)\n", s.Signer.String(), s.Capability)
			}
			fmt.Println("Body:")
			return cli.WriteJSON(os.Stdout, t.Body)
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	cmd.Flags().StringVarP(&identities, "identity", "i", "", "identity chain to search (default: the only local identity)")
	return cmd
}
