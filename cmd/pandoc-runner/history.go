// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/pandoc-runner/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			format := history.FormatTable
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				format = history.FormatJSON
			}
			if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
				format = history.FormatYAML
			}

			store, err := history.NewStore(a.store.Paths().HistoryDB())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return history.Write(cmd.OutOrStdout(), runs, format)
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "number of runs to show")
	cmd.Flags().Bool("json", false, "print as JSON")
	cmd.Flags().Bool("yaml", false, "print as YAML")
	cmd.MarkFlagsMutuallyExclusive("json", "yaml")
	return cmd
}
