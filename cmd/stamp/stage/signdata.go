package stage

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stampnet/stampd/internal/cli"
	"github.com/stampnet/stampd/pkg/ledger"
	"github.com/stampnet/stampd/pkg/tx"
)

func newSignDataCmd(v *viper.Viper, opts *stageOpts) *cobra.Command {
	var (
		subjectHex string
		file       string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "sign-data",
		Short: "Stage a detached signature over external content",
		Long:  "Stage a transaction that binds this identity to external content,\nidentified either by a hex digest (--subject) or by hashing a file (--file).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStage(cmd, v, opts, func(_ context.Context, _ *cli.Runtime, _ *ledger.Ledger) (tx.Body, error) {
				var subject []byte
				switch {
				case subjectHex != "" && file != "":
					return nil, fmt.Errorf("--subject and --file are mutually exclusive")
				case subjectHex != "":
					b, err := hex.DecodeString(subjectHex)
					if err != nil {
						return nil, fmt.Errorf("parse --subject: %w", err)
					}
					subject = b
				case file != "":
					data, err := os.ReadFile(file)
					if err != nil {
						return nil, fmt.Errorf("read %s: %w", file, err)
					}
					digest := tx.HashContent(data)
					subject = digest[:]
				default:
					return nil, fmt.Errorf("one of --subject or --file is required")
				}
				return tx.Sign{Subject: subject, Note: note}, nil
			})
		},
	}

	cmd.Flags().StringVar(&subjectHex, "subject", "", "hex digest of the content being signed")
	cmd.Flags().StringVar(&file, "file", "", "file to hash and sign")
	cmd.Flags().StringVar(&note, "note", "", "optional note recorded with the signature")
	return cmd
}
