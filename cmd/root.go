// =============================================================================
// Report Consolidator - Root Command
// =============================================================================
//
// The root command owns the global flags and the shared application state
// every subcommand works with.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reportctl)
//   ├── formsCmd    (reportctl forms [show <name>])
//   ├── columnsCmd  (reportctl columns --file ...)
//   ├── automapCmd  (reportctl automap ...)
//   ├── processCmd  (reportctl process)
//   ├── reportsCmd  (reportctl reports add|list|summary|clear)
//   ├── exportCmd   (reportctl export xlsx|ppt)
//   ├── serveCmd    (reportctl serve)
//   └── versionCmd  (reportctl version)
//
// STARTUP:
//   1. Load .env (--env-file) into the environment
//   2. Load the main configuration (--config), env overrides applied
//   3. Open the logger
//   4. Load form definitions and build the alias registry
//   The report store is opened on first use.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/config"
	"github.com/ginjaninja78/report-consolidator/internal/headers"
	"github.com/ginjaninja78/report-consolidator/internal/logging"
	"github.com/ginjaninja78/report-consolidator/internal/reportstore"
	"github.com/ginjaninja78/report-consolidator/internal/storage"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is loaded into the environment before the configuration.
var envFile string

// verbose forces debug logging.
var verbose bool

// app is the state shared by subcommands. Set by PersistentPreRunE.
var app *appState

// appState bundles the configured components.
type appState struct {
	config   *config.MainConfig
	logger   *logging.StdLogger
	forms    []*config.FormConfig
	registry *automap.Registry

	storage storage.Storage
	store   *reportstore.Store
}

// reportStore opens the configured storage backend on first use.
func (a *appState) reportStore() (*reportstore.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	s, err := storage.Open(a.config.Store.Backend, a.config.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", a.config.Store.Backend, err)
	}
	a.logger.Debug("opened %s store at %s", a.config.Store.Backend, a.config.Store.Path)

	a.storage = s
	a.store = reportstore.NewWithOptions(s, reportstore.Options{
		Key:    a.config.Store.Key,
		Logger: a.logger,
	})
	return a.store, nil
}

// headerOptions returns the form's header location, if the form came from
// a definition file.
func (a *appState) headerOptions(form string) (opts headers.Options) {
	if f, ok := config.FindForm(a.forms, form); ok {
		return f.HeaderOptions()
	}
	return opts
}

func (a *appState) close() {
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("failed to close store: %v", err)
		}
	}
	a.logger.Close()
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Report Consolidator - auto-map spreadsheet columns and consolidate reports",
	Long: `Report Consolidator maps the columns of uploaded spreadsheets onto the
semantic fields each report form needs, and keeps a consolidated store of
generated report tables that can be exported as one workbook or one deck.

Key Features:
  - Alias-table column auto-mapping with per-form normalization
  - Form definitions in YAML or TOML
  - Header extraction from .xlsx, .xls and .csv files
  - Persistent consolidated report store (file or SQLite)
  - Excel and PowerPoint exports
  - JSON API with a live change stream

Example Usage:
  reportctl columns --file budget.xlsx
  reportctl automap --file budget.xlsx
  reportctl process --dry-run
  reportctl reports add --category budget_results --file reports.json
  reportctl export xlsx --title "Q1 Review"
  reportctl serve --addr :8080`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[annotationNoSetup] == "true" {
			return nil
		}
		return setup()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// annotationNoSetup marks commands that run without configuration.
const annotationNoSetup = "no-setup"

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. It is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if app != nil {
		app.close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration, logging and forms into app.
func setup() error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	if verbose {
		level = logging.LevelDebug
	}
	logger, err := logging.Open(cfg.LogFilePath(filepath.Dir(cfgFile)), level)
	if err != nil {
		return err
	}

	forms, err := config.LoadFormConfigs(cfg.FormsDir)
	if err != nil {
		logger.Close()
		return fmt.Errorf("failed to load form definitions: %w", err)
	}
	logger.Debug("loaded %d form definition(s) from %s", len(forms), cfg.FormsDir)

	app = &appState{
		config:   cfg,
		logger:   logger,
		forms:    forms,
		registry: config.BuildRegistry(forms),
	}
	return nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)
	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Environment file loaded before the configuration",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
