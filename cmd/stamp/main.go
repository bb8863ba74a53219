package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/cmd/stamp/dag"
	"github.com/stampnet/stampd/cmd/stamp/id"
	"github.com/stampnet/stampd/cmd/stamp/keys"
	"github.com/stampnet/stampd/cmd/stamp/net"
	"github.com/stampnet/stampd/cmd/stamp/stage"
	"github.com/stampnet/stampd/internal/config"
)

func main() {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "stamp",
		Short: "Self-sovereign identity ledger",
		Long:  "stamp manages cryptographic identities as signed, hash-linked transaction chains\nwith policy-gated multi-signature staging.",
	}

	config.BindCommonFlags(rootCmd, v)

	rootCmd.PersistentFlags().StringP("key", "k", "", "signing key alias or public key hex")
	_ = v.BindPFlag("key", rootCmd.PersistentFlags().Lookup("key"))

	rootCmd.AddCommand(keys.Entrypoint(v))
	rootCmd.AddCommand(id.Entrypoint(v))
	rootCmd.AddCommand(dag.Entrypoint(v))
	rootCmd.AddCommand(stage.Entrypoint(v))
	rootCmd.AddCommand(net.Entrypoint(v))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newWhoamiCmd(v))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
