package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/makadata/maka/command"
	"github.com/makadata/maka/document"
	"github.com/makadata/maka/grammar"
)

func newExpandCommand(a *app) *cobra.Command {
	var docPath string

	cmd := &cobra.Command{
		Use:   "expand <grammar.yaml> [command...]",
		Short: "Expand commands into observation lines",
		Long: "expand runs each command through the grammar and prints the resulting " +
			"observation lines. Commands come from the arguments, or from stdin one " +
			"per line. With --document the lines are appended to a document file, " +
			"which is validated first and rewritten only if every command expands.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGrammar(args[0])
			if err != nil {
				return err
			}

			commands := args[1:]
			if len(commands) == 0 {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					if line := strings.TrimSpace(scanner.Text()); line != "" {
						commands = append(commands, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return err
				}
			}

			if docPath == "" {
				return a.expandToStdout(g, commands)
			}
			return a.expandToDocument(g, commands, docPath)
		},
	}
	cmd.Flags().StringVarP(&docPath, "document", "d", "", "append expanded observations to this document file")
	return cmd
}

func (a *app) expandToStdout(g *grammar.Grammar, commands []string) error {
	d := document.New(g)
	ctx := command.NewContext()
	for _, text := range commands {
		next, err := appendExpansion(d, text, ctx)
		if err != nil {
			return err
		}
		d = next
	}
	fmt.Print(d.Text())
	return nil
}

func (a *app) expandToDocument(g *grammar.Grammar, commands []string, path string) error {
	d, err := a.loadDocument(g, path)
	if err != nil {
		return err
	}

	// Seed the serial counters past the largest values already in the
	// document so appended observations keep climbing.
	ctx := command.NewContext()
	seedSerials(ctx.Serials, g, d)

	before := d.Len()
	for _, text := range commands {
		next, err := appendExpansion(d, text, ctx)
		if err != nil {
			return err
		}
		d = next
	}

	if err := os.WriteFile(path, []byte(d.Text()), 0644); err != nil {
		return err
	}
	a.log.Info("document extended",
		zap.String("path", path),
		zap.Int("added", d.Len()-before))
	return nil
}

func appendExpansion(d *document.Document, text string, ctx *command.Context) (*document.Document, error) {
	observations, err := command.Expand(text, d.Grammar(), ctx)
	if err != nil {
		return nil, err
	}
	next, _, err := d.Splice(d.Len(), d.Len(), observations)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// seedSerials positions every serial counter referenced by the grammar's
// commands after the highest value present in the document's integer
// fields, a simple heuristic that avoids reissuing identifiers.
func seedSerials(serials *command.SerialSet, g *grammar.Grammar, d *document.Document) {
	counters := serialCounters(g)
	if len(counters) == 0 {
		return
	}
	max := -1
	for i := 0; i < d.Len(); i++ {
		obs := d.Observation(i)
		typ := g.Type(obs.TypeName())
		for _, f := range typ.Fields {
			if f.Kind != grammar.Integer {
				continue
			}
			if v, ok := obs.Value(f.Name); ok {
				if n := v.(int); n > max {
					max = n
				}
			}
		}
	}
	for _, name := range counters {
		serials.Generator(name).Set(max + 1)
	}
}

func serialCounters(g *grammar.Grammar) []string {
	seen := map[string]bool{}
	var names []string
	add := func(refText string, args []string) {
		ref, err := grammar.ParseRef(refText, args)
		if err == nil && ref.Kind == grammar.RefSerial && !seen[ref.Name] {
			seen[ref.Name] = true
			names = append(names, ref.Name)
		}
	}
	for _, cmd := range g.Commands {
		for _, refText := range cmd.Defaults {
			add(refText, nil)
		}
		for _, tgt := range cmd.Targets {
			for _, refText := range tgt.Fields {
				add(refText, cmd.Args)
			}
		}
	}
	return names
}
