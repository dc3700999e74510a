package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/report-consolidator/internal/export"
	"github.com/ginjaninja78/report-consolidator/internal/reportstore"
	"github.com/ginjaninja78/report-consolidator/internal/storage"
)

func newTestServer(t *testing.T, ppt *export.Client) (*Server, *reportstore.Store) {
	t.Helper()
	store := reportstore.New(storage.NewMemory())
	s := New(Deps{Store: store, PPT: ppt, Version: "test"})
	t.Cleanup(s.Close)
	return s, store
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
}

const budgetReports = `[
  {"df":[{"Executive":"Asha","Budget":100,"Achieved":75.5},{"Executive":"TOTAL","Budget":100,"Achieved":75.5}],"title":"Budget North","percent_cols":[2]},
  {"df":[],"title":"Empty"}
]`

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestForms(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var list struct {
		Forms []struct{ Name string } `json:"forms"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/forms", ""), &list)
	if len(list.Forms) == 0 || list.Forms[0].Name != "budget" {
		t.Fatalf("forms = %+v", list.Forms)
	}

	if rec := do(t, h, http.MethodGet, "/api/forms/outstanding", ""); rec.Code != http.StatusOK {
		t.Fatalf("get form = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/forms/nope", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown form = %d", rec.Code)
	}
}

func TestAutoMap(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	var resp struct {
		Form       string            `json:"form"`
		Mapping    map[string]string `json:"mapping"`
		Mapped     int               `json:"mapped"`
		Validation struct {
			IsValid bool `json:"is_valid"`
		} `json:"validation"`
	}
	body := `{"form":"branch_region","columns":["Emp Name","Emp Code","Branch","Region"]}`
	rec := do(t, h, http.MethodPost, "/api/automap", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("automap = %d %s", rec.Code, rec.Body)
	}
	decode(t, rec, &resp)
	if resp.Mapping["exec_name_col"] != "Emp Name" || resp.Mapping["exec_code_col"] != "Emp Code" || resp.Mapped != 4 || !resp.Validation.IsValid {
		t.Fatalf("resp = %+v", resp)
	}

	decode(t, do(t, h, http.MethodPost, "/api/automap", `{"filename":"os_march.xlsx","columns":["Due Date"]}`), &resp)
	if resp.Form != "outstanding" || resp.Mapping["due_date"] != "Due Date" || resp.Validation.IsValid {
		t.Fatalf("filename resp = %+v", resp)
	}

	for body, code := range map[string]int{
		`{"form":"nope"}`:         http.StatusNotFound,
		`{"filename":"misc.txt"}`: http.StatusNotFound,
		`{}`:                      http.StatusBadRequest,
		`{`:                       http.StatusBadRequest,
	} {
		if rec := do(t, h, http.MethodPost, "/api/automap", body); rec.Code != code {
			t.Errorf("automap %s = %d, want %d", body, rec.Code, code)
		}
	}
}

func TestColumnsUpload(t *testing.T) {
	s, _ := newTestServer(t, nil)

	wb := excelize.NewFile()
	wb.SetSheetName("Sheet1", "Data")
	wb.SetSheetRow("Data", "A1", &[]any{"Report"})
	wb.SetSheetRow("Data", "A2", &[]any{"Executive Name", "Branch"})
	var file bytes.Buffer
	if _, err := wb.WriteTo(&file); err != nil {
		t.Fatal(err)
	}
	wb.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "budget.xlsx")
	part.Write(file.Bytes())
	mw.WriteField("header_row", "1")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/columns", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("columns = %d %s", rec.Code, rec.Body)
	}
	var resp columnsResponse
	decode(t, rec, &resp)
	if strings.Join(resp.Columns, ",") != "Executive Name,Branch" || resp.Sheet != "Data" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestReportLifecycle(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/reports/budget_results", budgetReports)
	var added addReportsResponse
	decode(t, rec, &added)
	if added.Submitted != 2 || added.Accepted != 1 || added.Validation.ErrorCount != 1 {
		t.Fatalf("add = %+v", added)
	}

	do(t, h, http.MethodPost, "/api/reports/od_results", `[{"df":[{"Branch":"N"}],"title":"OD"}]`)

	rec = do(t, h, http.MethodGet, "/api/reports", "")
	if !strings.HasPrefix(rec.Body.String(), `{"budget_results":[{"df":[{"Executive":"Asha","Budget":100,"Achieved":75.5}`) {
		t.Fatalf("reports = %s", rec.Body)
	}

	var summary reportstore.Summary
	decode(t, do(t, h, http.MethodGet, "/api/reports/summary", ""), &summary)
	if summary.Total != 2 || summary.Buckets.Budget != 1 || summary.Buckets.ODTarget != 1 || summary.EstimatedSlides != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if strings.Join(summary.Categories, ",") != "budget_results,od_results" {
		t.Fatalf("categories = %v", summary.Categories)
	}

	var flat []map[string]any
	decode(t, do(t, h, http.MethodGet, "/api/reports/flat", ""), &flat)
	if len(flat) != 2 || flat[1]["category"] != "od_results" {
		t.Fatalf("flat = %v", flat)
	}

	do(t, h, http.MethodDelete, "/api/reports/budget_results", "")
	var after reportstore.Summary
	decode(t, do(t, h, http.MethodGet, "/api/reports/summary", ""), &after)
	if after.Total != 1 || after.Counts["budget_results"] != 0 {
		t.Fatalf("after category clear = %+v", after)
	}

	do(t, h, http.MethodDelete, "/api/reports", "")
	rec = do(t, h, http.MethodGet, "/api/reports/flat", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("flat after clear = %s", rec.Body)
	}

	if rec := do(t, h, http.MethodPost, "/api/reports/x", `{"df":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-array body = %d", rec.Code)
	}
}

func TestExportXLSX(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/api/export/xlsx", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty export = %d", rec.Code)
	}

	do(t, h, http.MethodPost, "/api/reports/budget_results", budgetReports)
	rec := do(t, h, http.MethodGet, "/api/export/xlsx?title=Q1+Review", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d %s", rec.Code, rec.Body)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="Q1_Review_`) {
		t.Fatalf("Content-Disposition = %q", cd)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Summary", "A1"); v != "Q1 Review" {
		t.Fatalf("title = %q", v)
	}
}

func TestExportPPT(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req export.PPTRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Title != "Deck" || len(req.ReportsData) != 1 {
			http.Error(w, "bad payload", http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte("PPTX"))
	}))
	defer backend.Close()

	s, _ := newTestServer(t, export.NewClient(backend.URL, "", 5*time.Second, nil))
	h := s.Handler()

	do(t, h, http.MethodPost, "/api/reports/budget_results", budgetReports)
	rec := do(t, h, http.MethodPost, "/api/export/ppt", `{"title":"Deck"}`)
	if rec.Code != http.StatusOK || rec.Body.String() != "PPTX" {
		t.Fatalf("ppt = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/export/ppt", `{"title":"Other"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("backend failure = %d", rec.Code)
	}

	unconfigured, _ := newTestServer(t, nil)
	if rec := do(t, unconfigured.Handler(), http.MethodPost, "/api/export/ppt", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured = %d", rec.Code)
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	s, _ := newTestServer(t, nil)
	if rec := do(t, s.Handler(), http.MethodGet, "/api/nothing", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", rec.Code)
	}
	if rec := do(t, s.Handler(), http.MethodPut, "/api/reports", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bad method = %d", rec.Code)
	}
}

func TestEventStream(t *testing.T) {
	s, store := newTestServer(t, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/reports/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	if name, _ := readEvent(); name != "connected" {
		t.Fatalf("first event = %q", name)
	}

	do(t, s.Handler(), http.MethodPost, "/api/reports/product_results", `[{"df":[{"A":1}],"title":"P"}]`)
	name, data := readEvent()
	if name != "reports_updated" {
		t.Fatalf("event = %q", name)
	}
	var e reportstore.Event
	json.Unmarshal([]byte(data), &e)
	if e.Category != "product_results" || e.Count != 1 {
		t.Fatalf("event data = %+v", e)
	}

	store.ClearCategory("product_results")
	if name, _ := readEvent(); name != "category_cleared" {
		t.Fatalf("event = %q", name)
	}
}
