package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newFmtCommand(a *app) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "fmt <grammar.yaml> <document...>",
		Short: "Rewrite documents in canonical form",
		Long: "fmt parses each document against the grammar and renders it back out, " +
			"normalizing whitespace, quoting, and value spellings.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGrammar(args[0])
			if err != nil {
				return err
			}
			for _, path := range args[1:] {
				d, err := a.loadDocument(g, path)
				if err != nil {
					return err
				}
				if write {
					if err := os.WriteFile(path, []byte(d.Text()), 0644); err != nil {
						return err
					}
				} else {
					fmt.Print(d.Text())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite files in place instead of printing")
	return cmd
}
