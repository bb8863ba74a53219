package id

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List identities in the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			ids, err := rt.Store.ListIdentities(ctx)
			if err != nil {
				return fmt.Errorf("list identities: %w", err)
			}

			if len(ids) == 0 {
				fmt.Println("No identities found. Create one with: stamp id new")
				return nil
			}

			type row struct {
				ID      string `json:"id"`
				Creator string `json:"creator"`
				Length  int    `json:"length"`
			}
			rows := make([]row, 0, len(ids))
			for _, identityID := range ids {
				l, err := rt.Store.LoadLedger(ctx, identityID)
				if err != nil {
					return fmt.Errorf("load %s: %w", identityID.Short(), err)
				}
				rows = append(rows, row{
					ID:      identityID.Hex(),
					Creator: l.Head().Creator.String(),
					Length:  l.Len(),
				})
			}

			if outputFmt == "json" {
				return cli.WriteJSON(os.Stdout, rows)
			}

			fmt.Printf("%-64s %-6s %s\n", "IDENTITY", "TXS", "CREATOR")
			for _, r := range rows {
				fmt.Printf("%-64s %-6d %s\n", r.ID, r.Length, cli.Truncate(r.Creator, 32))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	return cmd
}
