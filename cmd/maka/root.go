package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/makadata/maka/document"
	"github.com/makadata/maka/grammar"
)

type app struct {
	log     *zap.Logger
	verbose bool
}

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "maka",
		Short:         "Grammar-checked observation documents",
		Long:          "maka validates, formats, and extends observation documents against a project grammar.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if a.verbose {
				a.log, err = zap.NewDevelopment()
			} else {
				a.log, err = zap.NewProduction()
			}
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCheckCommand(a),
		newFmtCommand(a),
		newExpandCommand(a),
		newWatchCommand(a),
	)
	return root
}

// loadGrammar loads a grammar file, printing each defect on its own line
// when the grammar is bad.
func (a *app) loadGrammar(path string) (*grammar.Grammar, error) {
	g, err := grammar.LoadFile(path)
	if err != nil {
		var ge *grammar.GrammarError
		if errors.As(err, &ge) {
			fmt.Fprintf(os.Stderr, "%s: %d grammar defects:\n", path, len(ge.Defects))
			for _, d := range ge.Defects {
				fmt.Fprintf(os.Stderr, "  %s\n", d)
			}
			return nil, fmt.Errorf("invalid grammar %s", path)
		}
		return nil, err
	}
	a.log.Debug("grammar loaded",
		zap.String("path", path),
		zap.Int("types", len(g.Types)),
		zap.Int("commands", len(g.Commands)))
	return g, nil
}

func (a *app) loadDocument(g *grammar.Grammar, path string) (*document.Document, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := document.FromText(g, string(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("document loaded", zap.String("path", path), zap.Int("observations", d.Len()))
	return d, nil
}
