// =============================================================================
// Report Consolidator - AutoMap Command
// =============================================================================
//
// Maps spreadsheet columns onto the semantic fields of a form.
//
// COMMAND USAGE:
//   reportctl automap --file budget.xlsx
//   reportctl automap --form outstanding --file march.xls --sheet OS
//   reportctl automap --form budget --columns "Exec Name,Branch,Cust Code"
//
// The form is taken from --form or, when omitted, picked by matching the
// file name against each form's file_matching_patterns.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/headers"
	"github.com/ginjaninja78/report-consolidator/internal/validation"
)

var (
	automapForm      string
	automapFile      string
	automapColumns   []string
	automapSheet     string
	automapHeaderRow int
	automapJSON      bool
)

var automapCmd = &cobra.Command{
	Use:   "automap",
	Short: "Map spreadsheet columns onto a form's fields",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if automapFile == "" && len(automapColumns) == 0 {
			return errors.New("one of --file or --columns is required")
		}

		table, err := selectForm(automapForm, automapFile)
		if err != nil {
			return err
		}

		columns := automapColumns
		if automapFile != "" {
			opts := app.headerOptions(table.Name)
			if cmd.Flags().Changed("sheet") {
				opts.Sheet = automapSheet
			}
			if cmd.Flags().Changed("header-row") {
				opts.HeaderRow = automapHeaderRow
			}
			columns, err = headers.ExtractColumns(automapFile, opts)
			if err != nil {
				return err
			}
		}

		mapping := automap.AutoMap(columns, table)
		result := validation.ValidateMapping(mapping, columns, table)
		app.logger.Debug("form %s: mapped %d/%d field(s)", table.Name, mapping.Mapped(), len(table.Fields))

		out := cmd.OutOrStdout()
		if automapJSON {
			return printJSON(out, map[string]any{
				"form":       table.Name,
				"columns":    columns,
				"mapping":    mapping,
				"mapped":     mapping.Mapped(),
				"validation": result,
			})
		}
		return printMapping(out, table, mapping, result)
	},
}

// selectForm resolves --form, falling back to file name matching.
func selectForm(form, file string) (automap.AliasTable, error) {
	if form != "" {
		table, ok := app.registry.Lookup(form)
		if !ok {
			return automap.AliasTable{}, fmt.Errorf("unknown form %q", form)
		}
		return table, nil
	}
	if file == "" {
		return automap.AliasTable{}, errors.New("--form is required with --columns")
	}
	table, ok := app.registry.MatchFile(filepath.Base(file))
	if !ok {
		return automap.AliasTable{}, fmt.Errorf("no form matches %q; pass --form", filepath.Base(file))
	}
	return table, nil
}

// printMapping renders the mapping as a field/column table followed by any
// validation findings.
func printMapping(w io.Writer, table automap.AliasTable, mapping automap.Mapping, result *validation.ValidationResult) error {
	fmt.Fprintf(w, "Form: %s (%s normalizer)\n\n", table.Name, table.Normalizer)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tCOLUMN\tREQUIRED")
	for _, f := range table.Fields {
		col := mapping[f.Field]
		if col == "" {
			col = "-"
		}
		req := ""
		if f.Required {
			req = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Field, col, req)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nMapped %d of %d field(s).\n", mapping.Mapped(), len(table.Fields))
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\n%s", validation.FormatErrors(result.Errors))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(automapCmd)

	automapCmd.Flags().StringVar(&automapForm, "form", "", "Form name (default: match by file name)")
	automapCmd.Flags().StringVar(&automapFile, "file", "", "Spreadsheet whose header row is mapped")
	automapCmd.Flags().StringSliceVar(&automapColumns, "columns", nil, "Comma-separated column names, instead of --file")
	automapCmd.Flags().StringVar(&automapSheet, "sheet", "", "Worksheet name (default: form setting or first sheet)")
	automapCmd.Flags().IntVar(&automapHeaderRow, "header-row", 0, "0-based header row (default: form setting or 0)")
	automapCmd.Flags().BoolVar(&automapJSON, "json", false, "Print JSON")
	automapCmd.MarkFlagsMutuallyExclusive("file", "columns")
}
