package dag

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/tx"
)

func newExportCmd(v *viper.Viper) *cobra.Command {
	var (
		identities string
		asBase64   bool
	)

	cmd := &cobra.Command{
		Use:   "export <txid>",
		Short: "Export one transaction in wire format",
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
			data, err := tx.Encode(t)
			if err != nil {
				return fmt.Errorf("encode transaction: %w", err)
			}

			if asBase64 {
				fmt.Println(base64.StdEncoding.EncodeToString(data))
				return nil
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&identities, "identity", "i", "", "identity chain to search (default: the only local identity)")
	cmd.Flags().BoolVar(&asBase64, "base64", false, "emit base64 instead of raw bytes")
	return cmd
}
