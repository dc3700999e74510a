// =============================================================================
// Report Consolidator - Validation
// =============================================================================
//
// This module checks the two kinds of data that cross the tool's boundary:
//   - Column mappings, before a user-confirmed mapping is sent for
//     calculation.
//   - Report tables, before they are stored for the consolidated export.
//
// SEVERITY:
//   "error"   - the data cannot be used as is
//   "warning" - the data is usable but probably not what the user meant
//
// The report store applies its own keep/drop rule; the checks here are
// richer and meant for display (CLI output, HTTP responses).
//
// =============================================================================

package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Rule names.
const (
	RuleTitleRequired  = "title_required"
	RuleRowsRequired   = "rows_required"
	RulePercentColumn  = "percent_column_range"
	RuleUnknownColumn  = "unknown_column"
	RuleColumnNotFound = "column_not_found"
	RuleFieldRequired  = "field_required"
	RuleUnknownField   = "unknown_field"
	RuleSharedColumn   = "shared_column"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string `json:"severity"`

	// Field is the semantic field, report column or report attribute the
	// finding is about.
	Field string `json:"field"`

	// Value is the offending value.
	Value string `json:"value,omitempty"`

	// Rule is the violated rule.
	Rule string `json:"rule"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Report is the report title, for report findings.
	Report string `json:"report,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", strings.ToUpper(e.Severity))
	if e.Report != "" {
		fmt.Fprintf(&b, "Report '%s', ", e.Report)
	}
	fmt.Fprintf(&b, "Field '%s': %s", e.Field, e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

// IsError reports whether the finding is fatal.
func (e *ValidationError) IsError() bool {
	return e.Severity == SeverityError
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult summarizes a set of findings.
type ValidationResult struct {
	// IsValid is true if there are no errors (warnings allowed).
	IsValid bool `json:"is_valid"`

	// Errors contains all findings, errors and warnings.
	Errors []*ValidationError `json:"errors"`

	// ErrorCount is the number of errors.
	ErrorCount int `json:"error_count"`

	// WarningCount is the number of warnings.
	WarningCount int `json:"warning_count"`
}

// NewResult tallies findings into a ValidationResult.
func NewResult(findings []*ValidationError) *ValidationResult {
	result := &ValidationResult{Errors: findings}
	if result.Errors == nil {
		result.Errors = []*ValidationError{}
	}
	for _, f := range findings {
		if f.IsError() {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}
	result.IsValid = result.ErrorCount == 0
	return result
}

// =============================================================================
// REPORT VALIDATION
// =============================================================================

// ValidateReport checks one report table.
//
// A missing title or an empty table is an error. Percent column indices
// outside the column range and explicit columns no row carries are
// warnings.
func ValidateReport(r types.Report) []*ValidationError {
	var findings []*ValidationError

	if r.Title == "" {
		findings = append(findings, &ValidationError{
			Severity: SeverityError,
			Field:    "title",
			Rule:     RuleTitleRequired,
			Message:  "report title is empty",
		})
	}
	if len(r.DF) == 0 {
		findings = append(findings, &ValidationError{
			Severity: SeverityError,
			Field:    "df",
			Rule:     RuleRowsRequired,
			Message:  "report has no rows",
			Report:   r.Title,
		})
		return findings
	}

	columns := r.ColumnOrder()
	for _, idx := range r.PercentCols {
		if idx < 0 || idx >= len(columns) {
			findings = append(findings, &ValidationError{
				Severity: SeverityWarning,
				Field:    "percent_cols",
				Value:    fmt.Sprint(idx),
				Rule:     RulePercentColumn,
				Message:  fmt.Sprintf("percent column index outside 0..%d", len(columns)-1),
				Report:   r.Title,
			})
		}
	}

	if len(r.Columns) > 0 {
		present := make(map[string]bool)
		for _, row := range r.DF {
			for _, f := range row {
				present[f.Key] = true
			}
		}
		for _, col := range r.Columns {
			if !present[col] {
				findings = append(findings, &ValidationError{
					Severity: SeverityWarning,
					Field:    col,
					Rule:     RuleUnknownColumn,
					Message:  "column is not present in any row",
					Report:   r.Title,
				})
			}
		}
	}

	return findings
}

// ValidateReports checks a batch of reports.
func ValidateReports(reports []types.Report) *ValidationResult {
	var findings []*ValidationError
	for _, r := range reports {
		findings = append(findings, ValidateReport(r)...)
	}
	return NewResult(findings)
}

// =============================================================================
// MAPPING VALIDATION
// =============================================================================

// ValidateMapping checks a (possibly user-edited) column mapping against the
// columns of the uploaded sheet and the form's alias table.
//
// PARAMETERS:
//   - mapping: Semantic field -> column header ("" for unmapped).
//   - columns: The headers of the uploaded sheet.
//   - table: The form's alias table.
//
// RETURNS:
//   - A ValidationResult. A value that is not one of columns, an unmapped
//     required field, or a field the form does not define is an error. One
//     column used by several fields is a warning.
func ValidateMapping(mapping automap.Mapping, columns []string, table automap.AliasTable) *ValidationResult {
	var findings []*ValidationError

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}
	fields := make(map[string]bool, len(table.Fields))
	for _, f := range table.Fields {
		fields[f.Field] = true
	}

	for _, field := range table.RequiredFields() {
		if mapping[field] == "" {
			findings = append(findings, &ValidationError{
				Severity: SeverityError,
				Field:    field,
				Rule:     RuleFieldRequired,
				Message:  "required field is not mapped",
			})
		}
	}

	users := make(map[string][]string)
	for _, field := range sortedKeys(mapping) {
		col := mapping[field]
		if !fields[field] {
			findings = append(findings, &ValidationError{
				Severity: SeverityError,
				Field:    field,
				Value:    col,
				Rule:     RuleUnknownField,
				Message:  fmt.Sprintf("form %q has no such field", table.Name),
			})
			continue
		}
		if col == "" {
			continue
		}
		if !known[col] {
			findings = append(findings, &ValidationError{
				Severity: SeverityError,
				Field:    field,
				Value:    col,
				Rule:     RuleColumnNotFound,
				Message:  "column is not in the uploaded sheet",
			})
			continue
		}
		users[col] = append(users[col], field)
	}

	for _, col := range columns {
		if shared := users[col]; len(shared) > 1 {
			findings = append(findings, &ValidationError{
				Severity: SeverityWarning,
				Field:    strings.Join(shared, ","),
				Value:    col,
				Rule:     RuleSharedColumn,
				Message:  "one column is mapped to several fields",
			})
			delete(users, col)
		}
	}

	return NewResult(findings)
}

func sortedKeys(m automap.Mapping) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation findings for display or logging.
//
// PARAMETERS:
//   - errors: The findings to format.
//
// RETURNS:
//   - A formatted string containing all findings.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
