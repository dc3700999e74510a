// =============================================================================
// Report Consolidator - Main Entry Point
// =============================================================================
//
// USAGE:
//   reportctl columns   - Print the header row of a spreadsheet
//   reportctl automap   - Map spreadsheet columns onto a form
//   reportctl process   - Auto-map every spreadsheet in the input directory
//   reportctl reports   - Manage the consolidated report store
//   reportctl export    - Export the consolidated workbook or deck
//   reportctl serve     - Serve the JSON API
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Auto-mapper, report store, storage, exports, API
//   - pkg/           : Shared file utilities
//   - configs/forms/ : Form definitions (YAML or TOML)
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/report-consolidator/cmd"
)

func main() {
	cmd.Execute()
}
