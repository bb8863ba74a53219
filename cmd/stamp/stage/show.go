package stage

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newShowCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "show <txid>",
		Short: "Show one staged transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			identityID, err := rt.ResolveIdentityID(ctx, opts.identity)
			if err != nil {
				return err
			}
			m, _, err := rt.LoadManager(ctx, identityID)
			if err != nil {
				return err
			}
			txID, err := resolveStagedID(m, args[0])
			if err != nil {
				return err
			}
			item, err := m.Get(txID)
			if err != nil {
				return err
			}

			if outputFmt == "json" {
				return cli.WriteJSON(os.Stdout, item)
			}

			ready, err := m.Ready(txID)
			if err != nil {
				return err
			}
			status := "pending"
			if ready {
				status = "ready"
			}

			fmt.Printf("ID:        %s\n", item.Tx.ID.Hex())
			fmt.Printf("Kind:      %s\n", item.Tx.Body.Kind())
			fmt.Printf("Previous:  %s\n", item.Tx.Previous.Hex())
			fmt.Printf("Staged at: %s\n", item.StagedAt.Format(time.RFC3339))
			fmt.Printf("State:     %s (%s)\n", item.State, status)
			fmt.Println("Signatures:")
			if len(item.Tx.Signatures) == 0 {
				fmt.Println("  (none)")
			}
			for _, s := range item.Tx.Signatures {
				fmt.Printf("  %s\n", s.Signer.String())
			}
			fmt.Println("Body:")
			return cli.WriteJSON(os.Stdout, item.Tx.Body)
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	return cmd
}
