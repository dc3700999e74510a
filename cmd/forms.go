// =============================================================================
// Report Consolidator - Forms Command
// =============================================================================
//
// COMMAND USAGE:
//   reportctl forms               list every known form
//   reportctl forms show <name>   print one form as a definition file
//
// Built-in forms can be overridden by a definition file with the same
// form_name in forms_dir.
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/report-consolidator/internal/config"
)

var formsCmd = &cobra.Command{
	Use:   "forms",
	Short: "List the upload forms and their alias tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FORM\tNORMALIZER\tFIELDS\tSOURCE\tPATTERNS")
		for _, t := range app.registry.Tables() {
			source := "built-in"
			if f, ok := config.FindForm(app.forms, t.Name); ok {
				source = f.SourceFile
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				t.Name, t.Normalizer, len(t.Fields), source, strings.Join(t.FilePatterns, ", "))
		}
		return tw.Flush()
	},
}

var formsShowCmd = &cobra.Command{
	Use:   "show <form>",
	Short: "Print a form as a YAML definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, ok := app.registry.Lookup(args[0])
		if !ok {
			return fmt.Errorf("unknown form %q", args[0])
		}

		def := config.FormConfig{
			FormName:             table.Name,
			Description:          table.Description,
			Normalizer:           string(table.Normalizer),
			FileMatchingPatterns: table.FilePatterns,
			Fields:               table.Fields,
		}
		if f, ok := config.FindForm(app.forms, table.Name); ok {
			def.SheetName = f.SheetName
			def.HeaderRow = f.HeaderRow
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return fmt.Errorf("failed to encode form: %w", err)
		}
		return enc.Close()
	},
}

func init() {
	formsCmd.AddCommand(formsShowCmd)
	rootCmd.AddCommand(formsCmd)
}
