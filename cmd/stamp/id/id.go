// Package id implements the stamp id subcommands: local identity lifecycle
// on top of the ledger store.
package id

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/internal/keyring"
)

func Entrypoint(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "id",
		Short: "Manage identities",
		Long:  "Create, inspect, and maintain identity chains in the local database.",
	}

	cmd.AddCommand(
		newNewCmd(v),
		newListCmd(v),
		newShowCmd(v),
		newDeleteCmd(v),
		newRollbackCmd(v),
		newExportCmd(v),
		newImportCmd(v),
	)

	return cmd
}

// loadSignerKey resolves the signing key from the --key flag or the default.
func loadSignerKey(ctx context.Context, rt *cli.Runtime, v *viper.Viper) (*keyring.Key, error) {
	ref := v.GetString("key")
	if ref != "" {
		key, err := rt.Keyring.Load(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("load key %q: %w", ref, err)
		}
		return key, nil
	}
	key, err := rt.Keyring.LoadDefault(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default key (generate one with: stamp keys generate): %w", err)
	}
	return key, nil
}
