package automap

import (
	"reflect"
	"testing"
)

func singleField(normalizer NormalizerKind, aliases ...string) AliasTable {
	return AliasTable{
		Name:       "test",
		Normalizer: normalizer,
		Fields:     []FieldAliases{{Field: "f", Aliases: aliases}},
	}
}

func TestAutoMap_NoMatchYieldsEmpty(t *testing.T) {
	t.Parallel()

	columns := []string{"Emp Code", "Executive Code", "empcode"}
	got := AutoMap(columns, singleField(NormalizerSimple, "executivename", "ename", "empname"))

	if v, ok := got["f"]; !ok || v != "" {
		t.Fatalf("mapping[f] = %q (present=%v), want empty string", v, ok)
	}
}

func TestAutoMap_FirstColumnInListOrderWins(t *testing.T) {
	t.Parallel()

	columns := []string{"Branch Code", "Executive Code"}
	got := AutoMap(columns, singleField(NormalizerSimple, "code", "empcode"))

	if got["f"] != "Branch Code" {
		t.Fatalf("mapping[f] = %q, want %q", got["f"], "Branch Code")
	}
}

func TestAutoMap_EarlierAliasBeatsEarlierColumn(t *testing.T) {
	t.Parallel()

	// "ename" only matches the second column, but it is tried before
	// "name", which would match the first one.
	columns := []string{"Customer Name", "E Name"}
	got := AutoMap(columns, singleField(NormalizerSimple, "ename", "name"))

	if got["f"] != "E Name" {
		t.Fatalf("mapping[f] = %q, want %q", got["f"], "E Name")
	}
}

func TestAutoMap_SameHeaderForSeveralFields(t *testing.T) {
	t.Parallel()

	table := AliasTable{
		Name: "dup",
		Fields: []FieldAliases{
			{Field: "exec_name_col", Aliases: []string{"executive"}},
			{Field: "exec_code_col", Aliases: []string{"executive"}},
		},
	}
	got := AutoMap([]string{"Executive"}, table)

	want := Mapping{"exec_name_col": "Executive", "exec_code_col": "Executive"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mapping = %v, want %v", got, want)
	}
}

func TestAutoMap_CaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	columns := []string{"  NET   Value ", "Executive\tName"}
	table := AliasTable{
		Name: "ws",
		Fields: []FieldAliases{
			{Field: "net_value", Aliases: []string{"Net Value"}},
			{Field: "exec_name", Aliases: []string{"executivename"}},
		},
	}
	got := AutoMap(columns, table)

	if got["net_value"] != "  NET   Value " {
		t.Errorf("net_value = %q", got["net_value"])
	}
	if got["exec_name"] != "Executive\tName" {
		t.Errorf("exec_name = %q", got["exec_name"])
	}
}

func TestAutoMap_StrictNormalizerStripsPunctuation(t *testing.T) {
	t.Parallel()

	columns := []string{"Due-Date", "Net.Value (Rs)"}
	table := AliasTable{
		Name:       "os",
		Normalizer: NormalizerStrict,
		Fields: []FieldAliases{
			{Field: "due_date", Aliases: []string{"duedate"}},
			{Field: "net_value", Aliases: []string{"netvalue"}},
		},
	}

	got := AutoMap(columns, table)
	if got["due_date"] != "Due-Date" || got["net_value"] != "Net.Value (Rs)" {
		t.Fatalf("strict mapping = %v", got)
	}

	// The simple normalizer keeps punctuation, so neither header matches.
	table.Normalizer = NormalizerSimple
	got = AutoMap(columns, table)
	if got["due_date"] != "" || got["net_value"] != "" {
		t.Fatalf("simple mapping = %v, want no matches", got)
	}
}

func TestAutoMap_EmptyAliasIgnored(t *testing.T) {
	t.Parallel()

	got := AutoMap([]string{"Anything"}, singleField(NormalizerSimple, "", "   "))
	if got["f"] != "" {
		t.Fatalf("mapping[f] = %q, want empty", got["f"])
	}
}

func TestAutoMap_IdempotentAndContained(t *testing.T) {
	t.Parallel()

	columns := []string{"Date", "Executive Name", "Emp Code", "Branch", "Region", "Customer Code", "Net Value", "Qty"}

	for _, table := range BuiltinTables() {
		first := AutoMap(columns, table)
		second := AutoMap(columns, table)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: mapping not deterministic: %v vs %v", table.Name, first, second)
		}

		if len(first) != len(table.Fields) {
			t.Errorf("%s: mapping has %d keys, want %d", table.Name, len(first), len(table.Fields))
		}

		for field, header := range first {
			if header == "" {
				continue
			}
			found := false
			for _, col := range columns {
				if col == header {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("%s: field %s mapped to %q which is not an input column", table.Name, field, header)
			}
		}
	}
}

func TestAutoMap_NoColumns(t *testing.T) {
	t.Parallel()

	table, _ := DefaultRegistry().Lookup(FormBudget)
	got := AutoMap(nil, table)
	if got.Mapped() != 0 {
		t.Fatalf("expected no mapped fields, got %v", got)
	}
	if len(got) != len(table.Fields) {
		t.Fatalf("mapping has %d keys, want %d", len(got), len(table.Fields))
	}
}

func TestBuiltinBudgetForm(t *testing.T) {
	t.Parallel()

	table, ok := DefaultRegistry().Lookup(FormBudget)
	if !ok {
		t.Fatal("budget form not registered")
	}

	columns := []string{"SL Code", "Party Name", "Executive Code", "Executive Name", "Branch", "Region", "Budget Value"}
	got := AutoMap(columns, table)

	want := Mapping{
		"customer_col":  "SL Code",
		"exec_code_col": "Executive Code",
		"exec_name_col": "Executive Name",
		"branch_col":    "Branch",
		"region_col":    "Region",
		"cust_name_col": "Party Name",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("budget mapping = %v, want %v", got, want)
	}
}

func TestBuiltinBranchRegionForm(t *testing.T) {
	t.Parallel()

	table, _ := DefaultRegistry().Lookup(FormBranchRegion)
	got := AutoMap([]string{"Emp Name", "Emp Code", "Branch Name", "Region Name"}, table)

	want := Mapping{
		"exec_name_col": "Emp Name",
		"exec_code_col": "Emp Code",
		"branch_col":    "Branch Name",
		"region_col":    "Region Name",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("branch/region mapping = %v, want %v", got, want)
	}
}

func TestMatchesFile(t *testing.T) {
	t.Parallel()

	table := AliasTable{FilePatterns: []string{"*budget*", "os_*"}}
	tests := []struct {
		name string
		want bool
	}{
		{"/uploads/Budget_2026.xlsx", true},
		{"os_march.xls", true},
		{"OS_March.xls", true},
		{"sales.xlsx", false},
	}
	for _, tt := range tests {
		if got := table.MatchesFile(tt.name); got != tt.want {
			t.Errorf("MatchesFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRegistry_ReplaceKeepsPosition(t *testing.T) {
	t.Parallel()

	r := NewRegistry(
		AliasTable{Name: "a"},
		AliasTable{Name: "b"},
	)
	r.Register(AliasTable{Name: "a", Description: "override"})
	r.Register(AliasTable{Name: "c"})

	tables := r.Tables()
	var names []string
	for _, tbl := range tables {
		names = append(names, tbl.Name)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Fatalf("order = %v", names)
	}
	if tables[0].Description != "override" {
		t.Fatalf("table a not replaced: %+v", tables[0])
	}
}

func TestRegistry_MatchFile(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	table, ok := r.MatchFile("Budget-Q3.xlsx")
	if !ok || table.Name != FormBudget {
		t.Fatalf("MatchFile = %v, %v", table.Name, ok)
	}
	if _, ok := r.MatchFile("notes.txt"); ok {
		t.Fatal("unexpected match for notes.txt")
	}
}
