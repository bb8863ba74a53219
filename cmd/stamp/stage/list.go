package stage

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newListCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var outputFmt string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staged transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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
			items := m.List()

			if len(items) == 0 {
				fmt.Println("No staged transactions")
				return nil
			}

			type row struct {
				ID       string    `json:"id"`
				Kind     tx.Kind   `json:"kind"`
				StagedAt time.Time `json:"staged_at"`
				Signers  int       `json:"signers"`
				Ready    bool      `json:"ready"`
			}
			rows := make([]row, 0, len(items))
			for _, item := range items {
				ready, err := m.Ready(item.Tx.ID)
				if err != nil {
					return err
				}
				rows = append(rows, row{
					ID:       item.Tx.ID.Hex(),
					Kind:     item.Tx.Body.Kind(),
					StagedAt: item.StagedAt,
					Signers:  len(item.Tx.Signers()),
					Ready:    ready,
				})
			}

			if outputFmt == "json" {
				return cli.WriteJSON(os.Stdout, rows)
			}

			fmt.Printf("%-16s %-20s %-8s %s\n", "ID", "KIND", "SIGNERS", "STATUS")
			for _, r := range rows {
				status := cli.Colorize(cli.PendingStyle, "pending")
				if r.Ready {
					status = cli.Colorize(cli.ReadyStyle, "ready")
				}
				fmt.Printf("%-16s %-20s %-8d %s\n", r.ID[:16], r.Kind, r.Signers, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	return cmd
}
