package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/reelscout/backend/internal/domain"
)

func newNearbyCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "nearby <zip>",
		Short: "List the best rated titles in stock near a ZIP code",
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

			entries, err := a.inventory.Aggregate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []domain.StockEntry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No titles in stock nearby.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStockTable(entries))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}

func renderStockTable(entries []domain.StockEntry) string {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Title(),
			strconv.Itoa(e.Score()),
			strconv.FormatFloat(e.Distance, 'f', 2, 64),
			e.StoreID,
		})
	}
	return renderTable(
		[]string{"#", "Title", "Score", "Miles", "Kiosk"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
	)
}
