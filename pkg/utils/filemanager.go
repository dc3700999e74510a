// =============================================================================
// Report Consolidator - File Manager Utility
// =============================================================================
//
// File helpers shared by the batch commands:
//   - Spreadsheet discovery in the input directory
//   - Output file naming from a placeholder format
//   - Mapping result and run summary files
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/report-consolidator/internal/headers"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager locates input spreadsheets and places generated files.
type FileManager struct {
	// InputDir is the directory scanned for spreadsheets.
	InputDir string

	// OutputDir receives mapping results, summaries and exports.
	OutputDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir string) *FileManager {
	return &FileManager{InputDir: inputDir, OutputDir: outputDir}
}

// EnsureDirectories creates the input and output directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists spreadsheets in the input directory.
//
// PARAMETERS:
//   - pattern: An optional glob matched against the base name. When empty,
//              every supported spreadsheet (.xlsx, .xlsm, .xls, .csv) is
//              returned.
//
// RETURNS:
//   - Matching file paths, sorted by name. Directories, Office lock files
//     ("~$...") and unsupported extensions are skipped.
//   - An error if the directory cannot be read or the pattern is malformed.
func (fm *FileManager) DiscoverInputFiles(pattern string) ([]string, error) {
	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", pattern, err)
		}
	}

	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || !headers.Supported(name) {
			continue
		}
		if pattern != "" {
			if ok, _ := filepath.Match(pattern, name); !ok {
				continue
			}
		}
		files = append(files, filepath.Join(fm.InputDir, name))
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands a file name format.
//
// PARAMETERS:
//   - format: The format string. Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {<key>}     - Any key from params, e.g. {title}, {original}
//   - params: Placeholder values. Values are made file-system safe.
//   - ext:    The extension to ensure, e.g. ".xlsx". Empty leaves the name as is.
//
// EXAMPLE:
//   format: "{title}_{timestamp}"
//   params: {"title": "Q1 Review"}
//   ext:    ".xlsx"
//   output: "Q1_Review_20240115_143022.xlsx"
func GenerateOutputFileName(format string, params map[string]string, ext string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = SafeName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}
	if result == "" {
		result = "report_" + replacements["{timestamp}"]
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// SafeName replaces characters that are awkward in file names.
func SafeName(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return -1
		}
		return r
	}, s)
}

// =============================================================================
// MAPPING RESULTS
// =============================================================================

// MappingFile is the per-spreadsheet result written by the batch run.
type MappingFile struct {
	InputFile string            `json:"input_file"`
	Form      string            `json:"form"`
	Sheet     string            `json:"sheet,omitempty"`
	Columns   []string          `json:"columns"`
	Mapping   map[string]string `json:"mapping"`
	Mapped    int               `json:"mapped"`
	Valid     bool              `json:"valid"`
	Findings  []string          `json:"findings,omitempty"`
	MappedAt  time.Time         `json:"mapped_at"`
}

// MappingFileNames assigns each input a mapping file name in outputDir.
//
// Names keep the input's extension ("budget.csv.mapping.json"), so budget.csv
// and budget.xlsx do not collide. Names that still clash, ignoring case, get
// a numeric suffix in input order ("budget.csv_2.mapping.json").
//
// RETURNS:
//   - A map from each input path to its mapping file path.
func MappingFileNames(inputs []string, outputDir string) map[string]string {
	names := make(map[string]string, len(inputs))
	taken := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		base := SafeName(filepath.Base(input))
		name := base
		for n := 2; taken[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		taken[strings.ToLower(name)] = true
		names[input] = filepath.Join(outputDir, name+".mapping.json")
	}
	return names
}

// WriteMappingFile writes m as indented JSON to path.
func WriteMappingFile(m MappingFile, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode mapping for %s: %w", m.InputFile, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write mapping file: %w", err)
	}
	return nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a batch mapping run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	UnmatchedFiles  int
	TotalColumns    int
	MappedFields    int
	Findings        int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a mapped spreadsheet.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	Form        string
	Columns     int
	Mapped      int
	Fields      int
	ProcessTime time.Duration
}

// FailedFileInfo describes a spreadsheet that could not be mapped.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a processing summary to a text file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	name := fmt.Sprintf("mapping_summary_%s.txt", summary.EndTime.Format("20060102_150405"))
	path := filepath.Join(outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	const rule = "================================================================================\n"
	const thin = "--------------------------------------------------------------------------------\n"

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "Report Consolidator - Mapping Summary\n%s\n", rule)
	fmt.Fprintf(w, "Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
	fmt.Fprintf(w, "Statistics:\n"+
		"  Total Files:     %d\n"+
		"  Successful:      %d\n"+
		"  Failed:          %d\n"+
		"  Unmatched:       %d\n"+
		"  Columns Read:    %d\n"+
		"  Fields Mapped:   %d\n"+
		"  Findings:        %d\n\n",
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.UnmatchedFiles,
		summary.TotalColumns,
		summary.MappedFields,
		summary.Findings)

	if len(summary.ProcessedFiles) > 0 {
		fmt.Fprintf(w, "Mapped Files:\n%s", thin)
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(w, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(w, "  Form:         %s\n", pf.Form)
			fmt.Fprintf(w, "  Mapping:      %d/%d fields from %d columns\n", pf.Mapped, pf.Fields, pf.Columns)
			if pf.OutputFile != "" {
				fmt.Fprintf(w, "  Output:       %s\n", pf.OutputFile)
			}
			fmt.Fprintf(w, "  Process Time: %s\n\n", pf.ProcessTime.Round(time.Millisecond))
		}
	}

	if len(summary.FailedFilesList) > 0 {
		fmt.Fprintf(w, "Failed Files:\n%s", thin)
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(w, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(w, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	fmt.Fprintf(w, "%sEnd of Summary\n", rule)

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return path, nil
}
