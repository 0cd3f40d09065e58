package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Download the product catalog and score new titles",
		Args:  cobra.NoArgs,
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

			report, err := a.ingest.Ingest(cmd.Context())
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}

			rows := [][]string{
				{"Pages", strconv.Itoa(report.Pages)},
				{"Seen", strconv.Itoa(report.Seen)},
				{"Created", strconv.Itoa(report.Created)},
				{"Skipped", strconv.Itoa(report.Skipped)},
				{"Matched", strconv.Itoa(report.Matched)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Counter", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}
