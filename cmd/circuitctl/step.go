package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"circuitengine/cell"
	"circuitengine/cmd/circuitctl/ui"
	"circuitengine/scheduler"
)

func stepCmd() *cobra.Command {
	var maxSteps int

	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run the demo circuit one cell at a time, rendering each step",
		RunE: func(cmd *cobra.Command, args []string) error {
			ci, err := buildDemoCircuit()
			if err != nil {
				return err
			}

			s := scheduler.New(ci)
			s.Debug(true)

			ctx, stop := notifyContext(cmd.Context())
			defer stop()

			for i := 0; i < maxSteps; i++ {
				code, c, err := s.Step(ctx)
				if c == nil && err == nil {
					fmt.Println(ui.Muted("no more work"))
					break
				}
				name := "?"
				var micros int64
				if c != nil {
					name = c.Name()
					micros = c.Microseconds(cell.ProcessPhase)
				}
				ui.PrintStep(ui.StepResult{PID: s.PID(), Cell: name, Code: code, Microseconds: micros, Err: err})
				if err != nil {
					return err
				}
				if code == cell.Quit || code == cell.Break {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxSteps, "max-steps", 50, "Maximum number of cell steps to render before stopping")
	return cmd
}
