package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/makadata/maka/watch"
)

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <grammar.yaml> <document...>",
		Short: "Re-check documents whenever they or the grammar change",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			grammarPath, docPaths := args[0], args[1:]

			check := func(path string) error {
				g, err := a.loadGrammar(grammarPath)
				if err != nil {
					return err
				}
				for _, docPath := range docPaths {
					d, err := a.loadDocument(g, docPath)
					if err != nil {
						return err
					}
					fmt.Printf("%s: ok (%d observations)\n", docPath, d.Len())
				}
				return nil
			}

			// Check once up front so defects existing before the first
			// change are reported too.
			if err := check(grammarPath); err != nil {
				a.log.Warn("initial check failed", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return watch.Watch(ctx, watch.Config{
				Paths:    append([]string{grammarPath}, docPaths...),
				OnChange: check,
				Logger:   a.log,
			})
		},
	}
}
