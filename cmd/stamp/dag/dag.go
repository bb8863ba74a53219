// Package dag implements the stamp dag subcommands: raw transaction
// inspection below the derived-state view.
package dag

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Inspect raw transactions",
		Long:  "Walk, filter, and export the individual transactions of an identity chain.",
	}

	cmd.AddCommand(
		newListCmd(v),
		newShowCmd(v),
		newExportCmd(v),
	)

	return cmd
}
