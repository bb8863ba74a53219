// Package net implements the stamp net subcommands: exchanging identity
// chains through a shared network backend.
package net

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "net",
		Short: "Publish and fetch identity chains",
		Long:  "Exchange identity chains through the configured network backend.\nFetched chains are fully re-verified before they are stored.",
	}

	cmd.AddCommand(
		newPublishCmd(v),
		newFetchCmd(v),
		newStatusCmd(v),
	)

	return cmd
}
