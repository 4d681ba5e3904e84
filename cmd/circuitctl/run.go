package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"circuitengine/internal/config"
	"circuitengine/internal/profilestore"
	"circuitengine/scheduler"
	"circuitengine/socket"
)

func runCmd() *cobra.Command {
	var iterations int
	var profilePath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the demo circuit and drive it to steady state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if iterations <= 0 {
				iterations = cfg.Iterations
			}
			if profilePath == "" {
				profilePath = cfg.ProfileDBPath
			}

			ci, err := buildDemoCircuit()
			if err != nil {
				return err
			}

			s := scheduler.New(ci)
			if profilePath != "" {
				store, err := profilestore.Open(profilePath)
				if err != nil {
					return fmt.Errorf("open profile store: %w", err)
				}
				defer store.Close()
				s.SetProfileSink(store)
			}

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			if err := s.Execute(ctx, iterations); err != nil {
				return fmt.Errorf("execute: %w", err)
			}

			for _, c := range ci.Cells() {
				c.Outputs.Each(func(name string, sock *socket.Socket) {
					fmt.Printf("%s.%s = %s\n", c.Name(), name, sock.String())
				})
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&iterations, "iterations", 0, "Number of pids to run (0 = use config default)")
	cmd.Flags().StringVar(&profilePath, "profile-db", "", "Path to a SQLite profile database (empty = use config default; profiling is off when neither is set)")
	return cmd
}
