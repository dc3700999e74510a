// =============================================================================
// Report Consolidator - Export
// =============================================================================
//
// This module turns the flattened consolidated reports into deliverables:
//   - An Excel workbook written locally with excelize (workbook.go)
//   - A PowerPoint deck rendered by the backend service (ppt.go)
//
// WORKBOOK LAYOUT:
//   Summary sheet : deck title, estimated slide count, one line per report
//   Report sheets : title in A1, header row 3, data from row 4
//
// Columns listed in a report's percent_cols are written as "12.34%".
//
// =============================================================================

package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/report-consolidator/internal/reportstore"
	"github.com/ginjaninja78/report-consolidator/internal/types"
)

// SummarySheet is the name of the overview sheet.
const SummarySheet = "Summary"

const (
	maxSheetName   = 31
	titleRow       = 1
	headerRow      = 3
	firstDataRow   = 4
	summaryListRow = 4
)

// =============================================================================
// WORKBOOK
// =============================================================================

// WriteWorkbook writes the consolidated workbook to w.
func WriteWorkbook(w io.Writer, title string, reports []types.FlatReport) error {
	f, err := BuildWorkbook(title, reports)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// BuildWorkbook builds the consolidated workbook in memory.
//
// PARAMETERS:
//   - title: The deck title shown on the summary sheet.
//   - reports: The flattened reports, in export order.
//
// RETURNS:
//   - The workbook. The caller closes it.
//   - An error if a sheet cannot be created.
func BuildWorkbook(title string, reports []types.FlatReport) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	sheetNames := make([]string, len(reports))
	used := map[string]bool{strings.ToLower(SummarySheet): true}
	for i, r := range reports {
		sheetNames[i] = uniqueSheetName(r.Title, i+1, used)
	}

	if err := writeSummary(f, title, reports, sheetNames, bold, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	for i, r := range reports {
		if err := writeReportSheet(f, sheetNames[i], r, bold, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("report %q: %w", r.Title, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSummary(f *excelize.File, title string, reports []types.FlatReport, sheetNames []string, bold, headerStyle int) error {
	sheet := SummarySheet

	if title == "" {
		title = "Consolidated Report"
	}
	f.SetCellValue(sheet, "A1", title)
	f.SetCellStyle(sheet, "A1", "A1", bold)
	f.SetCellValue(sheet, "A2", "Estimated slides")
	f.SetCellValue(sheet, "B2", reportstore.EstimateSlides(reports))

	header := []any{"#", "Category", "Title", "Rows", "Slides", "Sheet"}
	if err := f.SetSheetRow(sheet, cellName(1, summaryListRow), &header); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	f.SetRowStyle(sheet, summaryListRow, summaryListRow, headerStyle)

	for i, r := range reports {
		line := []any{i + 1, r.Category, r.Title, len(r.DF), reportstore.ReportSlides(r.Report), sheetNames[i]}
		if err := f.SetSheetRow(sheet, cellName(1, summaryListRow+1+i), &line); err != nil {
			return fmt.Errorf("failed to write summary line: %w", err)
		}
	}

	f.SetColWidth(sheet, "A", "A", 18)
	f.SetColWidth(sheet, "B", "B", 28)
	f.SetColWidth(sheet, "C", "C", 40)
	f.SetColWidth(sheet, "D", "F", 12)
	return nil
}

func writeReportSheet(f *excelize.File, sheet string, r types.FlatReport, bold, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", sheet, err)
	}

	f.SetCellValue(sheet, cellName(1, titleRow), r.Title)
	f.SetCellStyle(sheet, cellName(1, titleRow), cellName(1, titleRow), bold)

	columns := r.ColumnOrder()
	if len(columns) == 0 {
		return nil
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, cellName(1, headerRow), &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	f.SetCellStyle(sheet, cellName(1, headerRow), cellName(len(columns), headerRow), headerStyle)

	percent := make(map[int]bool, len(r.PercentCols))
	for _, idx := range r.PercentCols {
		percent[idx] = true
	}

	for i, row := range r.DF {
		values := make([]any, len(columns))
		for j, col := range columns {
			v, _ := row.Get(col)
			if percent[j] {
				if s, ok := FormatPercent(v); ok {
					v = s
				}
			}
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cellName(1, firstDataRow+i), &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	last, _ := excelize.ColumnNumberToName(len(columns))
	f.SetColWidth(sheet, "A", last, 16)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// FormatPercent renders a numeric cell as "<value with 2 decimals>%".
// Non-numeric values are reported as not formattable.
func FormatPercent(v any) (string, bool) {
	var d decimal.Decimal
	switch n := v.(type) {
	case float64:
		d = decimal.NewFromFloat(n)
	case float32:
		d = decimal.NewFromFloat32(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case decimal.Decimal:
		d = n
	case string:
		parsed, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		if err != nil {
			return "", false
		}
		d = parsed
	default:
		return "", false
	}
	return d.StringFixed(2) + "%", true
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// uniqueSheetName derives a valid, unused sheet name from a report title.
func uniqueSheetName(title string, n int, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
	base = strings.Trim(base, "'")
	if base == "" {
		base = fmt.Sprintf("Report %d", n)
	}
	base = truncateRunes(base, maxSheetName)

	name := base
	for i := 2; used[strings.ToLower(name)]; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
