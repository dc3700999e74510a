// =============================================================================
// Report Consolidator - Column Auto-Mapper
// =============================================================================
//
// Guesses which spreadsheet column holds each semantic field of an upload
// form (executive name, branch, due date, net value, ...).
//
// MATCHING RULES:
//   1. Headers and aliases are normalized with the table's normalizer.
//   2. For each field, aliases are tried in order. For an alias, the first
//      header (input order) whose normalized form contains the normalized
//      alias is selected.
//   3. The first alias that selects a header wins. No alias -> "".
//   4. Fields are resolved independently. One header may serve several
//      fields.
//
// Matching is substring containment only. There is no scoring, no exact
// match preference and no edit distance.
//
// =============================================================================

package automap

import (
	"path/filepath"
	"strings"
)

// =============================================================================
// ALIAS TABLES
// =============================================================================

// FieldAliases is the alias vocabulary of one semantic field.
type FieldAliases struct {
	// Field is the semantic key, e.g. "exec_name_col".
	Field string `yaml:"field" toml:"field" json:"field"`

	// Aliases are tried in order; earlier aliases take priority.
	Aliases []string `yaml:"aliases" toml:"aliases" json:"aliases"`

	// Required marks fields the form cannot be submitted without.
	Required bool `yaml:"required,omitempty" toml:"required,omitempty" json:"required,omitempty"`
}

// AliasTable is the auto-mapping configuration of one upload form.
type AliasTable struct {
	// Name identifies the form, e.g. "budget".
	Name string `json:"name"`

	// Description is shown in form listings.
	Description string `json:"description,omitempty"`

	// Normalizer selects the header normalization rule for every field of
	// the table.
	Normalizer NormalizerKind `json:"normalizer"`

	// FilePatterns are glob patterns matched against upload file names when
	// a form has to be picked automatically.
	FilePatterns []string `json:"file_patterns,omitempty"`

	// Fields are resolved in this order.
	Fields []FieldAliases `json:"fields"`
}

// RequiredFields returns the keys flagged as required.
func (t AliasTable) RequiredFields() []string {
	var keys []string
	for _, f := range t.Fields {
		if f.Required {
			keys = append(keys, f.Field)
		}
	}
	return keys
}

// MatchesFile reports whether fileName matches one of the table's patterns.
// The comparison is case-insensitive.
func (t AliasTable) MatchesFile(fileName string) bool {
	name := strings.ToLower(filepath.Base(fileName))
	for _, pattern := range t.FilePatterns {
		matched, err := filepath.Match(strings.ToLower(pattern), name)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// =============================================================================
// MAPPING
// =============================================================================

// Mapping assigns a column header (or "") to every field of a table.
type Mapping map[string]string

// Mapped returns the number of fields that received a header.
func (m Mapping) Mapped() int {
	n := 0
	for _, v := range m {
		if v != "" {
			n++
		}
	}
	return n
}

// Mapper is an AliasTable compiled for repeated use.
type Mapper struct {
	table     AliasTable
	normalize Normalizer
	aliases   [][]string
}

// NewMapper compiles table. An unknown normalizer kind falls back to simple.
func NewMapper(table AliasTable) *Mapper {
	normalize, err := NormalizerFor(table.Normalizer)
	if err != nil {
		normalize = NormalizeSimple
	}

	aliases := make([][]string, len(table.Fields))
	for i, f := range table.Fields {
		normalized := make([]string, 0, len(f.Aliases))
		for _, alias := range f.Aliases {
			a := normalize(alias)
			if a == "" {
				// An empty alias would match every header.
				continue
			}
			normalized = append(normalized, a)
		}
		aliases[i] = normalized
	}

	return &Mapper{
		table:     table,
		normalize: normalize,
		aliases:   aliases,
	}
}

// Map resolves every field of the table against columns.
func (m *Mapper) Map(columns []string) Mapping {
	normalized := make([]string, len(columns))
	for i, col := range columns {
		normalized[i] = m.normalize(col)
	}

	mapping := make(Mapping, len(m.table.Fields))
	for i, f := range m.table.Fields {
		mapping[f.Field] = m.resolve(m.aliases[i], columns, normalized)
	}
	return mapping
}

func (m *Mapper) resolve(aliases, columns, normalized []string) string {
	for _, alias := range aliases {
		for i, col := range normalized {
			if strings.Contains(col, alias) {
				return columns[i]
			}
		}
	}
	return ""
}

// AutoMap maps columns with table in one call.
func AutoMap(columns []string, table AliasTable) Mapping {
	return NewMapper(table).Map(columns)
}
