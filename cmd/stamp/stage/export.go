package stage

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newExportCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export <txid>",
		Short: "Export a staged transaction for co-signing",
		Long:  "Write a staged transaction's envelope so another holder of an\nauthorized key can import it, sign it, and send it back.",
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
			data, err := m.Export(txID)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			if outFile == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outFile, err)
			}
			fmt.Printf("Exported %s to %s\n", txID.Short(), outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "write the envelope to a file instead of stdout")
	return cmd
}
