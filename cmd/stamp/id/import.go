package id

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
)

func newImportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import an identity chain",
		Long:  "Read a serialized identity chain from a file or stdin, verify every\ntransaction, and store it in the local database.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := cli.Open(ctx, v)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read chain: %w", err)
			}

			l, err := ledger.Deserialize(data)
			if err != nil {
				return fmt.Errorf("verify chain: %w", err)
			}
			if err := rt.Store.SaveLedger(ctx, l); err != nil {
				return fmt.Errorf("save identity: %w", err)
			}

			fmt.Printf("Imported identity %s (%d transactions)\n", l.IdentityID().Hex(), l.Len())
			return nil
		},
	}

	return cmd
}
