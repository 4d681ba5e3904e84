package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"circuitengine/cmd/circuitctl/ui"
	"circuitengine/internal/config"
	"circuitengine/internal/profilestore"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect recorded cell phase timings",
	}
	cmd.AddCommand(profileShowCmd())
	return cmd
}

func profileShowCmd() *cobra.Command {
	var profilePath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a table of per-cell, per-phase timings from the profile database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if profilePath == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				profilePath = cfg.ProfileDBPath
			}
			if profilePath == "" {
				return fmt.Errorf("no profile database configured: pass --profile-db or set it in the config")
			}

			store, err := profilestore.Open(profilePath)
			if err != nil {
				return fmt.Errorf("open profile store: %w", err)
			}
			defer store.Close()

			summaries, err := store.Summarize()
			if err != nil {
				return fmt.Errorf("summarize: %w", err)
			}
			if len(summaries) == 0 {
				fmt.Println(ui.Muted("no phase records yet"))
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, rec := range summaries {
				rows = append(rows, []string{
					rec.Cell,
					string(rec.Phase),
					humanize.Comma(rec.Calls),
					humanize.Comma(rec.TotalMicros) + "µs",
					humanize.Comma(rec.MaxMicros) + "µs",
				})
			}
			fmt.Println(ui.Table([]string{"Cell", "Phase", "Calls", "Total", "Max"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile-db", "", "Path to the SQLite profile database")
	return cmd
}
