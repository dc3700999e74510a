package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/report-consolidator/internal/config"
)

// workspace writes a config rooted in a temp dir and returns its path.
func workspace(t *testing.T) (root, cfg string) {
	t.Helper()
	for _, env := range []string{config.EnvStoreBackend, config.EnvStorePath, config.EnvBackendURL, config.EnvServerAddr, config.EnvLogLevel} {
		t.Setenv(env, "")
	}

	root = t.TempDir()
	for _, dir := range []string{"input", "output"} {
		if err := os.Mkdir(filepath.Join(root, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}

	cfg = filepath.Join(root, "config.yaml")
	body := strings.Join([]string{
		"input_dir: " + filepath.Join(root, "input"),
		"output_dir: " + filepath.Join(root, "output"),
		"forms_dir: " + filepath.Join(root, "forms"),
		"log_level: error",
		"store:",
		"  backend: file",
		"  path: " + filepath.Join(root, "data"),
	}, "\n")
	if err := os.WriteFile(cfg, []byte(body+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return root, cfg
}

// run executes the CLI with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if app != nil {
		app.close()
		app = nil
	}
	return out.String(), err
}

func TestProcessCommand(t *testing.T) {
	root, cfg := workspace(t)
	input := filepath.Join(root, "input")

	files := map[string]string{
		"budget_q1.csv": "Cust Code,Exec Name,Branch,Region\nC1,Asha,North,N\n",
		"random.csv":    "a,b\n",
		"notes.txt":     "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(input, name), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := run(t, "process", "--config", cfg, "--env-file", filepath.Join(root, "none.env"))
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	for _, want := range []string{
		"budget_q1.csv -> budget (4/6 fields)",
		"? random.csv: no matching form",
		"Total files:     2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := os.Stat(filepath.Join(root, "output", "budget_q1.csv.mapping.json")); err != nil {
		t.Errorf("mapping file: %v", err)
	}
	summaries, _ := filepath.Glob(filepath.Join(root, "output", "mapping_summary_*.txt"))
	if len(summaries) != 1 {
		t.Errorf("summaries = %v", summaries)
	}
}

func TestProcessKeepsSameNamedInputsApart(t *testing.T) {
	root, cfg := workspace(t)
	input := filepath.Join(root, "input")

	if err := os.WriteFile(filepath.Join(input, "budget.csv"), []byte("Exec Name,Branch\nAsha,North\n"), 0644); err != nil {
		t.Fatal(err)
	}
	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]any{"Cust Code", "Exec Name"})
	if err := f.SaveAs(filepath.Join(input, "budget.xlsx")); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, err := run(t, "process", "--config", cfg, "--env-file", filepath.Join(root, "none.env"))
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Mapped:          2") {
		t.Errorf("output:\n%s", out)
	}

	outputs, _ := filepath.Glob(filepath.Join(root, "output", "*.mapping.json"))
	if len(outputs) != 2 {
		t.Fatalf("mapping files = %v, want one per input", outputs)
	}
	for _, name := range []string{"budget.csv.mapping.json", "budget.xlsx.mapping.json"} {
		if _, err := os.Stat(filepath.Join(root, "output", name)); err != nil {
			t.Errorf("mapping file: %v", err)
		}
	}
}

func TestRelativeLogFileFollowsConfig(t *testing.T) {
	root, cfg := workspace(t)

	f, err := os.OpenFile(cfg, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("log_file: logs/reportctl.log\n")
	f.Close()

	if out, err := run(t, "reports", "list", "--config", cfg, "--env-file", filepath.Join(root, "none.env")); err != nil {
		t.Fatalf("reports list: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(root, "logs", "reportctl.log")); err != nil {
		t.Errorf("log file not created next to config: %v", err)
	}
}

func TestReportsAndExportCommands(t *testing.T) {
	root, cfg := workspace(t)
	env := filepath.Join(root, "none.env")

	reports := filepath.Join(root, "reports.json")
	body := `[
		{"title": "Budget North", "df": [{"Executive": "Asha", "Budget": 10}], "percent_cols": []},
		{"title": "", "df": []}
	]`
	if err := os.WriteFile(reports, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "reports", "add", "--config", cfg, "--env-file", env, "--category", "budget_results", "--file", reports)
	if err != nil {
		t.Fatalf("reports add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Stored 1 of 2 report(s) under budget_results.") {
		t.Errorf("add output:\n%s", out)
	}

	out, err = run(t, "reports", "summary", "--config", cfg, "--env-file", env, "--json")
	if err != nil {
		t.Fatalf("reports summary: %v", err)
	}
	if !strings.Contains(out, `"total": 1`) || !strings.Contains(out, `"estimated_slides": 2`) {
		t.Errorf("summary output:\n%s", out)
	}

	xlsx := filepath.Join(root, "out.xlsx")
	out, err = run(t, "export", "xlsx", "--config", cfg, "--env-file", env, "--title", "Q1", "--out", xlsx)
	if err != nil {
		t.Fatalf("export xlsx: %v\n%s", err, out)
	}
	f, err := excelize.OpenFile(xlsx)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[1] != "Budget North" {
		t.Errorf("sheets = %v", sheets)
	}

	if _, err := run(t, "reports", "clear", "--config", cfg, "--env-file", env); err != nil {
		t.Fatalf("reports clear: %v", err)
	}
	if _, err := run(t, "export", "xlsx", "--config", cfg, "--env-file", env, "--out", xlsx); err == nil {
		t.Error("expected error exporting an empty store")
	}
}
