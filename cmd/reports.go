// =============================================================================
// Report Consolidator - Reports Command
// =============================================================================
//
// Manages the consolidated report store.
//
// COMMAND USAGE:
//   reportctl reports add --category <name> --file <reports.json|->
//   reportctl reports list [--json]
//   reportctl reports summary [--json]
//   reportctl reports clear [--category <name>]
//
// The reports file holds a JSON array of report tables:
//   [{"title": "...", "df": [{"Executive": "A", "Budget": 10}], "percent_cols": []}]
//
// Adding replaces the whole category. Invalid reports (no title, empty df)
// are dropped; if none remain the store is left untouched.
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/reportstore"
	"github.com/ginjaninja78/report-consolidator/internal/types"
	"github.com/ginjaninja78/report-consolidator/internal/validation"
)

var (
	reportsCategory      string
	reportsClearCategory string
	reportsFile          string
	reportsJSON          bool
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Manage the consolidated report store",
}

var reportsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Replace a category with the reports in a JSON file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reports, err := readReports(reportsFile)
		if err != nil {
			return err
		}

		store, err := app.reportStore()
		if err != nil {
			return err
		}

		result := validation.ValidateReports(reports)
		accepted := store.AddReports(reportsCategory, reports)

		out := cmd.OutOrStdout()
		if len(result.Errors) > 0 {
			fmt.Fprintln(out, validation.FormatErrors(result.Errors))
		}
		if accepted == 0 {
			return fmt.Errorf("no valid reports in %s; category %q unchanged", reportsFile, reportsCategory)
		}
		fmt.Fprintf(out, "Stored %d of %d report(s) under %s.\n", accepted, len(reports), reportsCategory)
		return nil
	},
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored reports by category",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.reportStore()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if reportsJSON {
			return printJSON(out, store.Reports())
		}

		data := store.Reports()
		if data.Len() == 0 {
			fmt.Fprintln(out, "No reports stored.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CATEGORY\t#\tTITLE\tROWS\tSLIDES")
		for _, c := range data.Entries() {
			for i, r := range c.Reports {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\n", c.Name, i+1, r.Title, len(r.DF), reportstore.ReportSlides(r))
			}
		}
		return tw.Flush()
	},
}

var reportsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show report counts, export buckets and the slide estimate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.reportStore()
		if err != nil {
			return err
		}

		sum := store.Summary()

		out := cmd.OutOrStdout()
		if reportsJSON {
			return printJSON(out, sum)
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, name := range sum.Categories {
			fmt.Fprintf(tw, "%s\t%d\n", name, sum.Counts[name])
		}
		fmt.Fprintf(tw, "Total\t%d\n\n", sum.Total)
		fmt.Fprintf(tw, "Budget\t%d\n", sum.Buckets.Budget)
		fmt.Fprintf(tw, "OD collection\t%d\n", sum.Buckets.ODCollection)
		fmt.Fprintf(tw, "Product\t%d\n", sum.Buckets.Product)
		fmt.Fprintf(tw, "Customer\t%d\n", sum.Buckets.Customer)
		fmt.Fprintf(tw, "OD target\t%d\n\n", sum.Buckets.ODTarget)
		fmt.Fprintf(tw, "Estimated slides\t%d\n", sum.EstimatedSlides)
		return tw.Flush()
	},
}

var reportsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear one category, or the whole store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := app.reportStore()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if reportsClearCategory != "" {
			store.ClearCategory(reportsClearCategory)
			fmt.Fprintf(out, "Cleared %s.\n", reportsClearCategory)
			return nil
		}
		store.ClearAll()
		fmt.Fprintln(out, "Cleared all reports.")
		return nil
	},
}

// readReports decodes a JSON array of reports from path, or stdin for "-".
func readReports(path string) ([]types.Report, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open reports file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var reports []types.Report
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, fmt.Errorf("failed to parse reports file: %w", err)
	}
	if len(reports) == 0 {
		return nil, errors.New("reports file holds no reports")
	}
	return reports, nil
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsAddCmd, reportsListCmd, reportsSummaryCmd, reportsClearCmd)

	reportsAddCmd.Flags().StringVar(&reportsCategory, "category", "", "Category to replace, e.g. budget_results")
	reportsAddCmd.Flags().StringVar(&reportsFile, "file", "", "JSON array of reports, or - for stdin")
	reportsAddCmd.MarkFlagRequired("category")
	reportsAddCmd.MarkFlagRequired("file")

	reportsClearCmd.Flags().StringVar(&reportsClearCategory, "category", "", "Only clear this category")

	reportsListCmd.Flags().BoolVar(&reportsJSON, "json", false, "Print the store as JSON")
	reportsSummaryCmd.Flags().BoolVar(&reportsJSON, "json", false, "Print JSON")
}
