// =============================================================================
// Report Consolidator - Process Command
// =============================================================================
//
// Batch auto-mapping of every spreadsheet in the input directory.
//
// COMMAND USAGE:
//   reportctl process [flags]
//
// FLAGS:
//   --dry-run  : Map and report without writing mapping files
//   --form     : Use this form for every file instead of matching by name
//   --pattern  : Only process files whose name matches this glob
//
// PROCESSING PIPELINE:
//   1. Discover spreadsheets in input_dir
//   2. For each file (concurrently, at most max_concurrency at a time):
//      a. Pick the form by file name (or --form)
//      b. Read the header row at the form's sheet/header_row
//      c. Auto-map columns onto the form's fields
//      d. Validate the mapping
//      e. Write <name>.<ext>.mapping.json to output_dir
//   3. Write a run summary to output_dir
//
// A file no form matches is reported as unmatched, not failed. Errors in one
// file do not stop the others.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/headers"
	"github.com/ginjaninja78/report-consolidator/internal/validation"
	"github.com/ginjaninja78/report-consolidator/pkg/utils"
)

var (
	dryRun         bool
	processForm    string
	processPattern string
)

// errNoForm marks files no form matched.
var errNoForm = errors.New("no matching form")

// fileResult is the outcome of mapping one file.
type fileResult struct {
	path       string
	form       automap.AliasTable
	columns    []string
	mapping    automap.Mapping
	validation *validation.ValidationResult
	outputFile string
	elapsed    time.Duration
	err        error
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Auto-map every spreadsheet in the input directory",
	Long: `The process command scans the input directory for spreadsheets, picks the
form for each one by file name, maps the header row onto the form's fields
and writes the mapping next to a run summary in the output directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Map files without writing output")
	processCmd.Flags().StringVar(&processForm, "form", "", "Form used for every file")
	processCmd.Flags().StringVar(&processPattern, "pattern", "", "Only process files matching this glob")
}

// runProcess orchestrates the batch run.
func runProcess(cmd *cobra.Command) error {
	cfg := app.config
	logger := app.logger
	out := cmd.OutOrStdout()

	summary := utils.ProcessingSummary{StartTime: time.Now()}

	var fixed *automap.AliasTable
	if processForm != "" {
		table, ok := app.registry.Lookup(processForm)
		if !ok {
			return fmt.Errorf("unknown form %q", processForm)
		}
		fixed = &table
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	files, err := fm.DiscoverInputFiles(processPattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No spreadsheets found in %s.\n", cfg.InputDir)
		return nil
	}
	logger.Info("processing %d file(s) from %s", len(files), cfg.InputDir)

	outputs := utils.MappingFileNames(files, cfg.OutputDir)

	var wg sync.WaitGroup
	results := make(chan fileResult, len(files))
	sem := make(chan struct{}, cfg.MaxConcurrency)

	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- processFile(path, fixed, outputs[path])
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect in input order for a stable report.
	byPath := make(map[string]fileResult, len(files))
	for r := range results {
		byPath[r.path] = r
	}

	for _, path := range files {
		r := byPath[path]
		name := filepath.Base(path)
		summary.TotalFiles++

		switch {
		case errors.Is(r.err, errNoForm):
			summary.UnmatchedFiles++
			logger.Warn("%s: %v", name, r.err)
			fmt.Fprintf(out, "  ? %s: no matching form\n", name)
			continue
		case r.err != nil:
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    name,
				ErrorMessage: r.err.Error(),
			})
			logger.Error("%s: %v", name, r.err)
			fmt.Fprintf(out, "  ✗ %s: %v\n", name, r.err)
			continue
		}

		summary.SuccessfulFiles++
		summary.TotalColumns += len(r.columns)
		summary.MappedFields += r.mapping.Mapped()
		summary.Findings += len(r.validation.Errors)
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   name,
			OutputFile:  r.outputFile,
			Form:        r.form.Name,
			Columns:     len(r.columns),
			Mapped:      r.mapping.Mapped(),
			Fields:      len(r.form.Fields),
			ProcessTime: r.elapsed,
		})

		mark := "✓"
		if !r.validation.IsValid {
			mark = "!"
		}
		fmt.Fprintf(out, "  %s %s -> %s (%d/%d fields)\n", mark, name, r.form.Name, r.mapping.Mapped(), len(r.form.Fields))
		for _, finding := range r.validation.Errors {
			logger.Debug("%s: %s", name, finding.Error())
		}
	}

	summary.EndTime = time.Now()

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Mapped:          %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Unmatched:       %d\n", summary.UnmatchedFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))

	if dryRun {
		return nil
	}
	path, err := utils.WriteSummaryLog(summary, cfg.OutputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Summary:         %s\n", path)
	return nil
}

// processFile maps a single spreadsheet and writes the result to output.
// fixed, when set, overrides the file name match.
func processFile(path string, fixed *automap.AliasTable, output string) fileResult {
	start := time.Now()
	r := fileResult{path: path}

	if fixed != nil {
		r.form = *fixed
	} else {
		table, ok := app.registry.MatchFile(filepath.Base(path))
		if !ok {
			r.err = errNoForm
			return r
		}
		r.form = table
	}

	opts := app.headerOptions(r.form.Name)
	columns, err := headers.ExtractColumns(path, opts)
	if err != nil {
		r.err = err
		return r
	}
	r.columns = columns
	r.mapping = automap.AutoMap(columns, r.form)
	r.validation = validation.ValidateMapping(r.mapping, columns, r.form)

	if !dryRun {
		findings := make([]string, 0, len(r.validation.Errors))
		for _, f := range r.validation.Errors {
			findings = append(findings, f.Error())
		}
		err := utils.WriteMappingFile(utils.MappingFile{
			InputFile: filepath.Base(path),
			Form:      r.form.Name,
			Sheet:     opts.Sheet,
			Columns:   columns,
			Mapping:   r.mapping,
			Mapped:    r.mapping.Mapped(),
			Valid:     r.validation.IsValid,
			Findings:  findings,
			MappedAt:  time.Now(),
		}, output)
		if err != nil {
			r.err = err
			return r
		}
		r.outputFile = output
	}

	r.elapsed = time.Since(start)
	return r
}
