package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bikedash/internal/rentals"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the dataset loads and print its load report",
		Long: `Reads the dataset the way the server would and prints the load report as
JSON. A missing file, a header that matches no column profile, or too many
malformed rows make the command fail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := opts.load()
			if err != nil {
				return err
			}

			loader := rentals.NewLoader(rentals.Options{
				Profile:      e.cfg.Dataset.Profile,
				MaxRowErrors: e.cfg.Dataset.MaxRowErrors,
				Logger:       e.logger,
			})
			ds, err := loader.Load(cmd.Context(), e.paths.DatasetFile)
			if err != nil {
				var schemaErr *rentals.SchemaError
				if errors.As(err, &schemaErr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "profile %s is missing columns:\n", schemaErr.Profile)
					for _, col := range schemaErr.Missing {
						fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", col)
					}
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ds.Report())
		},
	}
}
