package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"circuitengine/cmd/circuitctl/ui"
	"circuitengine/socket"
)

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "Build the demo circuit and dump the type registry it establishes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := buildDemoCircuit(); err != nil {
				return err
			}

			names := socket.Types()
			if len(names) == 0 {
				fmt.Println(ui.Muted("no types established"))
				return nil
			}

			rows := make([][]string, 0, len(names))
			for _, name := range names {
				from := socket.ConvertersFrom(name)
				convertibleFrom := "-"
				if len(from) > 0 {
					convertibleFrom = strings.Join(from, ", ")
				}
				rows = append(rows, []string{name, convertibleFrom})
			}
			fmt.Println(ui.Table([]string{"Type", "Convertible from"}, rows))
			return nil
		},
	}
}
