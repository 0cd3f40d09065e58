package main

import (
	"github.com/spf13/cobra"
)

func newMovieCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "movie <id>",
		Short: "Print one stored catalog record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			movie, err := a.store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, movie)
		},
	}
}
