package dag

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cel"
	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newListCmd(v *viper.Viper) *cobra.Command {
	var (
		outputFmt  string
		filterExpr string
	)

	cmd := &cobra.Command{
		Use:   "list [identity]",
		Short: "List the transactions of an identity chain",
		Long: "List every transaction in admission order. With --filter, only\n" +
			"transactions matching a CEL expression are shown, for example:\n\n" +
			"  stamp dag list --filter 'kind == \"add_claim_v1\"'\n" +
			"  stamp dag list --filter 'signers > 1 && !genesis'",
		Args: cobra.MaximumNArgs(1),
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

			var filter *cel.Filter
			if filterExpr != "" {
				filter, err = cel.Compile(filterExpr, cel.TxKeys)
				if err != nil {
					return fmt.Errorf("compile filter: %w", err)
				}
			}

			type row struct {
				ID        string    `json:"id"`
				Previous  string    `json:"previous"`
				Kind      tx.Kind   `json:"kind"`
				Timestamp time.Time `json:"timestamp"`
				Signers   int       `json:"signers"`
			}
			var rows []row
			for t := range l.Transactions() {
				if filter != nil && !filter.Match(txAttrs(t)) {
					continue
				}
				rows = append(rows, row{
					ID:        t.ID.Hex(),
					Previous:  t.Previous.Hex(),
					Kind:      t.Body.Kind(),
					Timestamp: t.Timestamp,
					Signers:   len(t.Signers()),
				})
			}

			if outputFmt == "json" {
				return cli.WriteJSON(os.Stdout, rows)
			}

			fmt.Printf("%-16s %-20s %-25s %s\n", "ID", "KIND", "TIMESTAMP", "SIGNERS")
			for _, r := range rows {
				fmt.Printf("%-16s %-20s %-25s %d\n",
					r.ID[:16], r.Kind, r.Timestamp.Format(time.RFC3339), r.Signers)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json)")
	cmd.Flags().StringVar(&filterExpr, "filter", "", "CEL expression over kind, capability, id, previous, timestamp, signers, genesis")
	return cmd
}

// txAttrs flattens a transaction into the attribute map filters evaluate.
func txAttrs(t tx.Transaction) map[string]any {
	return map[string]any{
		"kind":       string(t.Body.Kind()),
		"capability": string(t.Body.Capability()),
		"id":         t.ID.Hex(),
		"previous":   t.Previous.Hex(),
		"timestamp":  t.Timestamp.Unix(),
		"signers":    len(t.Signers()),
		"genesis":    t.IsGenesis(),
	}
}
