package reportstore

import "github.com/ginjaninja78/report-consolidator/internal/types"

const (
	// ExecutiveColumn marks executive-level tables that may need splitting.
	ExecutiveColumn = "Executive"

	// MaxExecutivesPerSlide is the largest executive table kept on one slide.
	MaxExecutivesPerSlide = 20

	// SplitSlides is the slide cost of a split table: Part 1, Part 2 and
	// the grand total.
	SplitSlides = 3
)

// summaryExecutives are Executive values for total lines, not people.
var summaryExecutives = map[string]bool{
	"ACCLP": true,
	"TOTAL": true,
}

// EstimateSlides returns the slide count of a consolidated deck: one title
// slide plus the cost of every report with rows.
func EstimateSlides(reports []types.FlatReport) int {
	slides := 1
	for _, r := range reports {
		slides += ReportSlides(r.Report)
	}
	return slides
}

// ReportSlides returns the slides one report contributes. Empty tables
// contribute nothing. A table whose first row has an Executive column costs
// SplitSlides when it lists more than MaxExecutivesPerSlide executives.
func ReportSlides(r types.Report) int {
	if len(r.DF) == 0 {
		return 0
	}
	if !r.DF[0].Has(ExecutiveColumn) {
		return 1
	}
	if countExecutives(r.DF) <= MaxExecutivesPerSlide {
		return 1
	}
	return SplitSlides
}

func countExecutives(rows []types.Row) int {
	n := 0
	for _, row := range rows {
		v, _ := row.Get(ExecutiveColumn)
		if s, ok := v.(string); ok && summaryExecutives[s] {
			continue
		}
		n++
	}
	return n
}
