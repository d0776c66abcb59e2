package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <grammar.yaml> [document...]",
		Short: "Check a grammar file and any documents against it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGrammar(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: ok (%d types, %d commands)\n", args[0], len(g.Types), len(g.Commands))

			for _, path := range args[1:] {
				d, err := a.loadDocument(g, path)
				if err != nil {
					return err
				}
				fmt.Printf("%s: ok (%d observations)\n", path, d.Len())
			}
			return nil
		},
	}
}
