package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cbzpress/internal/archive"
	"cbzpress/internal/complog"
)

func newInspectCommand() *cobra.Command {
	var showLog bool

	cmd := &cobra.Command{
		Use:         "inspect ARCHIVE",
		Short:       "List archive entries and compression status",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			if showLog {
				data, err := archive.ReadEntry(path, complog.FileName)
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("%s has no %s; it has not been compressed", path, complog.FileName)
				}
				if err != nil {
					return err
				}
				fmt.Fprint(out, string(data))
				return nil
			}

			entries, err := archive.List(path)
			if err != nil {
				return err
			}
			marked, err := archive.HasCompressionLog(path)
			if err != nil {
				return err
			}

			var total uint64
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				total += e.Size
				rows = append(rows, []string{
					e.Name,
					humanize.IBytes(e.Size),
					humanize.IBytes(e.CompressedSize),
					e.Modified.Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Entry", "Size", "Stored", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Entries: %d (%s uncompressed)\n", len(entries), humanize.IBytes(total))
			fmt.Fprintf(out, "Already compressed: %s\n", yesNo(marked))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showLog, "log", false, "Print the embedded compression log")
	return cmd
}
