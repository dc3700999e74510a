package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b_sales.xlsx", "a_budget.csv", "old.xls", "notes.txt", "~$b_sales.xlsx"} {
		touch(t, filepath.Join(dir, name))
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.csv"), 0755); err != nil {
		t.Fatal(err)
	}

	fm := NewFileManager(dir, t.TempDir())

	tests := []struct {
		pattern string
		want    []string
	}{
		{"", []string{"a_budget.csv", "b_sales.xlsx", "old.xls"}},
		{"*sales*", []string{"b_sales.xlsx"}},
		{"*.txt", nil},
	}
	for _, tt := range tests {
		files, err := fm.DiscoverInputFiles(tt.pattern)
		if err != nil {
			t.Fatalf("DiscoverInputFiles(%q): %v", tt.pattern, err)
		}
		var got []string
		for _, f := range files {
			got = append(got, filepath.Base(f))
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("DiscoverInputFiles(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}

	if _, err := fm.DiscoverInputFiles("[bad"); err == nil {
		t.Error("expected error for malformed pattern")
	}
	if _, err := NewFileManager(filepath.Join(dir, "missing"), "").DiscoverInputFiles(""); err == nil {
		t.Error("expected error for missing input dir")
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "in"), filepath.Join(root, "out", "deep"))
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{fm.InputDir, fm.OutputDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestGenerateOutputFileName(t *testing.T) {
	tests := []struct {
		format string
		params map[string]string
		ext    string
		want   *regexp.Regexp
	}{
		{"{title}_{timestamp}", map[string]string{"title": "Q1 Review"}, ".xlsx", regexp.MustCompile(`^Q1_Review_\d{8}_\d{6}\.xlsx$`)},
		{"{original}-{date}.json", map[string]string{"original": "a/b:c"}, ".json", regexp.MustCompile(`^abc-\d{8}\.json$`)},
		{"deck_{uuid}", nil, ".pptx", regexp.MustCompile(`^deck_[0-9a-f-]{36}\.pptx$`)},
		{"{time}", nil, "", regexp.MustCompile(`^\d{6}$`)},
		{"", nil, ".xlsx", regexp.MustCompile(`^report_\d{8}_\d{6}\.xlsx$`)},
	}
	for _, tt := range tests {
		got := GenerateOutputFileName(tt.format, tt.params, tt.ext)
		if !tt.want.MatchString(got) {
			t.Errorf("GenerateOutputFileName(%q) = %q, want match %s", tt.format, got, tt.want)
		}
	}
}

func TestWriteMappingFile(t *testing.T) {
	dir := t.TempDir()
	m := MappingFile{
		InputFile: "/data/in/Budget Q1.xlsx",
		Form:      "budget",
		Columns:   []string{"Exec", "Budget"},
		Mapping:   map[string]string{"exec_name_col": "Exec", "exec_code_col": ""},
		Mapped:    1,
		MappedAt:  time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
	path := MappingFileNames([]string{m.InputFile}, dir)[m.InputFile]
	if filepath.Base(path) != "Budget_Q1.xlsx.mapping.json" {
		t.Errorf("path = %s", path)
	}
	if err := WriteMappingFile(m, path); err != nil {
		t.Fatalf("WriteMappingFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got MappingFile
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Form != "budget" || got.Mapping["exec_name_col"] != "Exec" || got.Mapped != 1 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestMappingFileNamesAreUnique(t *testing.T) {
	inputs := []string{
		"/in/budget.csv",
		"/in/budget.CSV",
		"/in/budget.xlsx",
		"/in/budget.xlsx.csv",
		"/other/budget.csv",
	}
	names := MappingFileNames(inputs, "/out")

	want := map[string]string{
		"/in/budget.csv":      "/out/budget.csv.mapping.json",
		"/in/budget.CSV":      "/out/budget.CSV_2.mapping.json",
		"/in/budget.xlsx":     "/out/budget.xlsx.mapping.json",
		"/in/budget.xlsx.csv": "/out/budget.xlsx.csv.mapping.json",
		"/other/budget.csv":   "/out/budget.csv_3.mapping.json",
	}
	for in, w := range want {
		if got := names[in]; got != filepath.FromSlash(w) {
			t.Errorf("MappingFileNames[%s] = %s, want %s", in, got, w)
		}
	}

	seen := make(map[string]bool)
	for _, name := range names {
		key := strings.ToLower(name)
		if seen[key] {
			t.Errorf("duplicate mapping file %s", name)
		}
		seen[key] = true
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	summary := ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		ProcessedFiles: []ProcessedFileInfo{
			{InputFile: "budget.xlsx", Form: "budget", Columns: 5, Mapped: 4, Fields: 4},
		},
		FailedFilesList: []FailedFileInfo{
			{InputFile: "broken.xlsx", ErrorMessage: "zip: not a valid zip file"},
		},
	}

	path, err := WriteSummaryLog(summary, dir)
	if err != nil {
		t.Fatalf("WriteSummaryLog: %v", err)
	}
	if filepath.Base(path) != "mapping_summary_20240115_143002.txt" {
		t.Errorf("path = %s", path)
	}

	data, _ := os.ReadFile(path)
	text := string(data)
	for _, want := range []string{
		"Duration:       2s",
		"Successful:      1",
		"Mapping:      4/4 fields from 5 columns",
		"Error: zip: not a valid zip file",
		"End of Summary",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		" Q1 Review ": "Q1_Review",
		`a/b\c:d`:     "abcd",
		"plain":       "plain",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
