package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/report-consolidator/internal/automap"
	"github.com/ginjaninja78/report-consolidator/internal/headers"
)

// =============================================================================
// FORM CONFIGURATION STRUCTURE
// =============================================================================

// FormConfig is one upload form's auto-mapping definition.
//
// Example (YAML):
//
//	form_name: budget
//	normalizer: simple
//	file_matching_patterns: ["*budget*"]
//	header_row: 0
//	fields:
//	  - field: exec_name_col
//	    aliases: [executivename, ename, empname]
//	    required: true
type FormConfig struct {
	// FormName identifies the form. A form named like a built-in table
	// replaces it. Defaults to the file name without extension.
	FormName string `yaml:"form_name" toml:"form_name"`

	Description string `yaml:"description" toml:"description"`

	// Normalizer is "simple" (default) or "strict".
	Normalizer string `yaml:"normalizer" toml:"normalizer"`

	// FileMatchingPatterns pick this form for files in the input directory.
	FileMatchingPatterns []string `yaml:"file_matching_patterns" toml:"file_matching_patterns"`

	// SheetName and HeaderRow locate the header row. Empty sheet means the
	// first sheet; HeaderRow is 0-based.
	SheetName string `yaml:"sheet_name" toml:"sheet_name"`
	HeaderRow int    `yaml:"header_row" toml:"header_row"`

	Fields []automap.FieldAliases `yaml:"fields" toml:"fields"`

	// SourceFile is the file the form was loaded from.
	SourceFile string `yaml:"-" toml:"-"`
}

// AliasTable converts the form into an auto-mapper table.
func (f *FormConfig) AliasTable() automap.AliasTable {
	return automap.AliasTable{
		Name:         f.FormName,
		Description:  f.Description,
		Normalizer:   automap.NormalizerKind(f.Normalizer),
		FilePatterns: f.FileMatchingPatterns,
		Fields:       f.Fields,
	}
}

// HeaderOptions returns where the form's header row lives.
func (f *FormConfig) HeaderOptions() headers.Options {
	return headers.Options{Sheet: f.SheetName, HeaderRow: f.HeaderRow}
}

// =============================================================================
// FORM LOADING
// =============================================================================

// LoadFormConfigs loads every form file in formsDir.
//
// PARAMETERS:
//   - formsDir: Directory of *.yaml, *.yml and *.toml form files. A missing
//     directory yields no forms.
//
// RETURNS:
//   - The forms, ordered by file name.
//   - An error if any file cannot be parsed or is invalid, or two files
//     define the same form.
func LoadFormConfigs(formsDir string) ([]*FormConfig, error) {
	if _, err := os.Stat(formsDir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml", "*.toml"} {
		matches, err := filepath.Glob(filepath.Join(formsDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to list form files: %w", err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	seen := make(map[string]string)
	forms := make([]*FormConfig, 0, len(files))
	for _, file := range files {
		form, err := LoadFormConfig(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		if prev, ok := seen[form.FormName]; ok {
			return nil, fmt.Errorf("form %q defined in both %s and %s", form.FormName, prev, file)
		}
		seen[form.FormName] = file
		forms = append(forms, form)
	}

	return forms, nil
}

// LoadFormConfig loads a single form file. The extension selects YAML or
// TOML.
func LoadFormConfig(filePath string) (*FormConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var form FormConfig
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".toml":
		if err := toml.Unmarshal(data, &form); err != nil {
			return nil, fmt.Errorf("failed to parse file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &form); err != nil {
			return nil, fmt.Errorf("failed to parse file: %w", err)
		}
	}
	form.SourceFile = filePath

	applyFormConfigDefaults(&form)
	if err := validateFormConfig(&form); err != nil {
		return nil, err
	}
	return &form, nil
}

// applyFormConfigDefaults sets default values for form configuration.
func applyFormConfigDefaults(form *FormConfig) {
	if form.FormName == "" {
		base := filepath.Base(form.SourceFile)
		form.FormName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if form.Normalizer == "" {
		form.Normalizer = string(automap.NormalizerSimple)
	}
	form.Normalizer = strings.ToLower(form.Normalizer)
}

// validateFormConfig validates a form configuration.
func validateFormConfig(form *FormConfig) error {
	if _, err := automap.NormalizerFor(automap.NormalizerKind(form.Normalizer)); err != nil {
		return fmt.Errorf("form %q: %w", form.FormName, err)
	}
	if form.HeaderRow < 0 {
		return fmt.Errorf("form %q: header_row must be >= 0", form.FormName)
	}
	if len(form.Fields) == 0 {
		return fmt.Errorf("form %q: no fields defined", form.FormName)
	}

	keys := make(map[string]bool, len(form.Fields))
	for i, f := range form.Fields {
		if f.Field == "" {
			return fmt.Errorf("form %q: field %d has no name", form.FormName, i+1)
		}
		if keys[f.Field] {
			return fmt.Errorf("form %q: field %q defined twice", form.FormName, f.Field)
		}
		keys[f.Field] = true
		if len(f.Aliases) == 0 {
			return fmt.Errorf("form %q: field %q has no aliases", form.FormName, f.Field)
		}
	}

	for _, p := range form.FileMatchingPatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("form %q: bad file pattern %q: %w", form.FormName, p, err)
		}
	}
	return nil
}

// BuildRegistry returns the built-in alias tables with forms registered on
// top, replacing built-ins of the same name.
func BuildRegistry(forms []*FormConfig) *automap.Registry {
	registry := automap.DefaultRegistry()
	for _, f := range forms {
		registry.Register(f.AliasTable())
	}
	return registry
}

// FindForm returns the form named name.
func FindForm(forms []*FormConfig, name string) (*FormConfig, bool) {
	for _, f := range forms {
		if f.FormName == name {
			return f, true
		}
	}
	return nil, false
}
