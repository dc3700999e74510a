// =============================================================================
// Report Consolidator - Header Extraction
// =============================================================================
//
// This module reads the header row of an uploaded spreadsheet so the
// auto-mapper has column names to work with.
//
// SUPPORTED FORMATS:
//   .xlsx / .xlsm : github.com/xuri/excelize/v2
//   .xls          : github.com/extrame/xls
//   .csv          : encoding/csv
//
// HEADER RULES:
//   - The header row index is 0-based (row 0 is the first row of the sheet).
//   - The default sheet is the first sheet of the workbook.
//   - Header cells are trimmed. Blank cells become Column_<n> (1-based),
//     matching what the calculation backend names unnamed columns.
//   - Trailing blank cells after the last named header are dropped.
//
// =============================================================================

package headers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// MaxXLSRows bounds how far into a legacy workbook we look for the header.
const MaxXLSRows = 100000

// Options selects where the header row lives.
type Options struct {
	// Sheet is the worksheet name. Empty means the first sheet.
	// Ignored for CSV files.
	Sheet string

	// HeaderRow is the 0-based index of the header row.
	HeaderRow int
}

// Supported reports whether the file extension can be read.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}

// =============================================================================
// EXTRACTION
// =============================================================================

// ExtractColumns returns the header row of the spreadsheet at path.
//
// PARAMETERS:
//   - path: The spreadsheet path. The extension selects the reader.
//   - opts: Sheet and header row selection.
//
// RETURNS:
//   - The column headers in sheet order.
//   - An error if the file cannot be read, the sheet does not exist, or the
//     header row is out of range.
func ExtractColumns(path string, opts Options) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return ExtractColumnsFromReader(f, filepath.Base(path), opts)
}

// ExtractColumnsFromReader is ExtractColumns for uploaded content. filename
// is only used for its extension.
func ExtractColumnsFromReader(r io.Reader, filename string, opts Options) ([]string, error) {
	if opts.HeaderRow < 0 {
		return nil, fmt.Errorf("header row must be >= 0, got %d", opts.HeaderRow)
	}

	rows, err := readRows(r, filename, opts.Sheet, opts.HeaderRow+1)
	if err != nil {
		return nil, err
	}
	if opts.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("header row %d out of range: sheet has %d row(s)", opts.HeaderRow, len(rows))
	}

	return normalizeHeaders(rows[opts.HeaderRow]), nil
}

// SheetNames lists the worksheets of the file at path. CSV files have a
// single unnamed sheet and return an empty list.
func SheetNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return SheetNamesFromReader(f, filepath.Base(path))
}

// SheetNamesFromReader is SheetNames for uploaded content.
func SheetNamesFromReader(r io.Reader, filename string) ([]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		wb, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to open workbook: %w", err)
		}
		defer wb.Close()
		return wb.GetSheetList(), nil

	case ".xls":
		wb, err := openXLS(r)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, wb.NumSheets())
		for i := 0; i < wb.NumSheets(); i++ {
			if sheet := wb.GetSheet(i); sheet != nil {
				names = append(names, sheet.Name)
			}
		}
		return names, nil

	case ".csv":
		return []string{}, nil

	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// =============================================================================
// READERS
// =============================================================================

// readRows returns at least the first want rows of the selected sheet
// (fewer if the sheet is shorter).
func readRows(r io.Reader, filename, sheet string, want int) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		return readXLSX(r, sheet)
	case ".xls":
		return readXLS(r, sheet, want)
	case ".csv":
		return readCSV(r, want)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func readXLSX(r io.Reader, sheet string) ([][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheet = wb.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("workbook has no sheets")
		}
	} else if idx, err := wb.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", sheet, err)
	}
	return rows, nil
}

func openXLS(r io.Reader) (*xls.WorkBook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("failed to open workbook: no Workbook stream")
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return wb, nil
}

func readXLS(r io.Reader, sheet string, want int) ([][]string, error) {
	wb, err := openXLS(r)
	if err != nil {
		return nil, err
	}

	var ws *xls.WorkSheet
	if sheet == "" {
		ws = wb.GetSheet(0)
	} else {
		for i := 0; i < wb.NumSheets(); i++ {
			if s := wb.GetSheet(i); s != nil && s.Name == sheet {
				ws = s
				break
			}
		}
	}
	if ws == nil {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}

	last := int(ws.MaxRow)
	if want > 0 && want-1 < last {
		last = want - 1
	}
	if last >= MaxXLSRows {
		last = MaxXLSRows - 1
	}

	rows := make([][]string, 0, last+1)
	for i := 0; i <= last; i++ {
		row := xlsRow(ws, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// xlsRow returns row i of ws, or nil when the sheet has no record for it.
// WorkSheet.Row dereferences missing rows.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(i)
}

func readCSV(r io.Reader, want int) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for want <= 0 || len(rows) < want {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func normalizeHeaders(row []string) []string {
	last := -1
	for i, cell := range row {
		if strings.TrimSpace(cell) != "" {
			last = i
		}
	}

	headers := make([]string, 0, last+1)
	for i := 0; i <= last; i++ {
		h := strings.TrimSpace(strings.TrimPrefix(row[i], "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers = append(headers, h)
	}
	return headers
}
