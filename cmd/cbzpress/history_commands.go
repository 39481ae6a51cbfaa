package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cbzpress/internal/history"
	"cbzpress/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent per-archive outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No history recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					saved := "-"
					if e.Status == history.StatusCompressed && e.OriginalBytes > 0 {
						saved = humanize.IBytes(uint64(max(e.OriginalBytes-e.KeptBytes, 0)))
					}
					detail := e.ErrorKind
					if e.ErrorMessage != "" {
						detail = e.ErrorMessage
					}
					rows = append(rows, []string{
						e.RecordedAt.Local().Format("2006-01-02 15:04"),
						filepath.Base(e.ArchivePath),
						textutil.TitleCase(string(e.Status)),
						strconv.Itoa(e.Pages),
						saved,
						detail,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"When", "Archive", "Status", "Pages", "Saved", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show (0 = all)")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d history entries\n", removed)
				return nil
			})
		},
	})
	return historyCmd
}
