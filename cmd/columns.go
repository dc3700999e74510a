// =============================================================================
// Report Consolidator - Columns Command
// =============================================================================
//
// Prints the header row of a spreadsheet, the column names the auto-mapper
// works with.
//
// COMMAND USAGE:
//   reportctl columns --file <path> [--sheet <name>] [--header-row <n>] [--json]
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/headers"
)

var (
	columnsFile      string
	columnsSheet     string
	columnsHeaderRow int
	columnsJSON      bool
)

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Print the column headers of a spreadsheet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sheets, err := headers.SheetNames(columnsFile)
		if err != nil {
			return err
		}
		columns, err := headers.ExtractColumns(columnsFile, headers.Options{
			Sheet:     columnsSheet,
			HeaderRow: columnsHeaderRow,
		})
		if err != nil {
			return err
		}
		app.logger.Debug("read %d column(s) from %s", len(columns), columnsFile)

		out := cmd.OutOrStdout()
		if columnsJSON {
			return printJSON(out, map[string]any{
				"filename": filepath.Base(columnsFile),
				"sheets":   sheets,
				"columns":  columns,
			})
		}

		if len(sheets) > 0 {
			sheet := columnsSheet
			if sheet == "" {
				sheet = sheets[0]
			}
			fmt.Fprintf(out, "Sheet: %s (of %d)\n", sheet, len(sheets))
		}
		for i, c := range columns {
			fmt.Fprintf(out, "%3d  %s\n", i+1, c)
		}
		return nil
	},
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(columnsCmd)

	columnsCmd.Flags().StringVar(&columnsFile, "file", "", "Spreadsheet to read (.xlsx, .xlsm, .xls, .csv)")
	columnsCmd.Flags().StringVar(&columnsSheet, "sheet", "", "Worksheet name (default: first sheet)")
	columnsCmd.Flags().IntVar(&columnsHeaderRow, "header-row", 0, "0-based index of the header row")
	columnsCmd.Flags().BoolVar(&columnsJSON, "json", false, "Print JSON instead of a list")
	columnsCmd.MarkFlagRequired("file")
}
