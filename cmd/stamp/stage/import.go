package stage

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
)

func newImportCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a staged transaction envelope",
		Long:  "Read an exported envelope from a file or stdin, re-validate it against\nthe local chain, and merge its signatures with any local copy.",
		Args:  cobra.MaximumNArgs(1),
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

			var data []byte
			if len(args) == 0 || args[0] == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read envelope: %w", err)
			}

			item, err := m.Import(data)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			if err := rt.SaveStagedItem(ctx, m, identityID, item.Tx.ID); err != nil {
				return err
			}

			ready, err := m.Ready(item.Tx.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s (%s, %d signatures)\n",
				item.Tx.ID.Hex(), item.Tx.Body.Kind(), len(item.Tx.Signatures))
			if ready {
				fmt.Println("Quorum met, apply with: stamp stage apply " + item.Tx.ID.Short())
			}
			return nil
		},
	}

	return cmd
}
