// =============================================================================
// Report Consolidator - Export Command
// =============================================================================
//
// Exports every stored report, flattened in category insertion order.
//
// COMMAND USAGE:
//   reportctl export xlsx [--title <title>] [--out <path>]
//   reportctl export ppt  [--title <title>] [--out <path>] [--logo <image>]
//
// The default output path is output_dir/<output_name_format>.<ext>.
// PPT rendering is done by the backend configured under backend.url.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/export"
	"github.com/ginjaninja78/report-consolidator/internal/types"
	"github.com/ginjaninja78/report-consolidator/pkg/utils"
)

var (
	exportTitle string
	exportOut   string
	exportLogo  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the consolidated reports",
}

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Write the consolidated Excel workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flat, err := exportReports()
		if err != nil {
			return err
		}

		path, err := exportPath(".xlsx")
		if err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := export.WriteWorkbook(f, exportTitle, flat); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", path, err)
		}

		app.logger.Info("workbook written: %d report(s) to %s", len(flat), path)
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d report(s) to %s\n", len(flat), path)
		return nil
	},
}

var exportPPTCmd = &cobra.Command{
	Use:   "ppt",
	Short: "Render the consolidated deck via the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.config
		if cfg.Backend.URL == "" {
			return errors.New("backend.url is not configured")
		}

		flat, err := exportReports()
		if err != nil {
			return err
		}

		var logo *export.Logo
		if exportLogo != "" {
			data, err := os.ReadFile(exportLogo)
			if err != nil {
				return fmt.Errorf("failed to read logo: %w", err)
			}
			logo = &export.Logo{Filename: filepath.Base(exportLogo), Data: data}
		}

		client := export.NewClient(cfg.Backend.URL, cfg.Backend.PPTPath, cfg.Backend.Timeout, app.logger)
		data, err := client.GenerateConsolidatedPPT(cmd.Context(), export.NewPPTRequest(exportTitle, flat, logo))
		if err != nil {
			return err
		}

		path, err := exportPath(".pptx")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d report(s) to %s\n", len(flat), path)
		return nil
	},
}

// exportReports returns the flattened store, or an error when it is empty.
func exportReports() ([]types.FlatReport, error) {
	store, err := app.reportStore()
	if err != nil {
		return nil, err
	}
	flat := store.Flatten()
	if len(flat) == 0 {
		return nil, errors.New("no reports to export")
	}
	return flat, nil
}

// exportPath returns --out or a generated name in the output directory.
func exportPath(ext string) (string, error) {
	if exportOut != "" {
		return exportOut, nil
	}
	if err := app.config.EnsureDirectories(); err != nil {
		return "", err
	}
	title := exportTitle
	if title == "" {
		title = "consolidated_report"
	}
	name := utils.GenerateOutputFileName(app.config.OutputNameFormat, map[string]string{"title": title}, ext)
	return filepath.Join(app.config.OutputDir, name), nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportXLSXCmd, exportPPTCmd)

	exportCmd.PersistentFlags().StringVar(&exportTitle, "title", "", "Deck or workbook title")
	exportCmd.PersistentFlags().StringVarP(&exportOut, "out", "o", "", "Output file (default: generated in output_dir)")
	exportPPTCmd.Flags().StringVar(&exportLogo, "logo", "", "Logo image for the title slide")
}
