package id

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newExportCmd(v *viper.Viper) *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export [identity]",
		Short: "Export an identity chain",
		Long:  "Serialize an identity chain for transfer to another node.\nThe output is written to stdout unless --file is given.",
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
			data, err := l.Serialize()
			if err != nil {
				return fmt.Errorf("serialize chain: %w", err)
			}

			if outFile == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			fmt.Printf("Exported %s (%d transactions) to %s\n", identityID.Short(), l.Len(), outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "write the chain to a file instead of stdout")
	return cmd
}
