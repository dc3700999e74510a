package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ginjaninja78/report-consolidator/internal/logging"
	"github.com/ginjaninja78/report-consolidator/internal/types"
)

// DefaultPPTPath is the backend's consolidated PPT endpoint.
const DefaultPPTPath = "/api/generate-consolidated-ppt"

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// =============================================================================
// REQUEST TYPES
// =============================================================================

// PPTReport is one table of the consolidated PPT payload.
type PPTReport struct {
	DF          []types.Row `json:"df"`
	Title       string      `json:"title"`
	PercentCols []int       `json:"percent_cols"`
	Columns     []string    `json:"columns"`
}

// Logo is an optional image placed on the title slide.
type Logo struct {
	Filename string
	Data     []byte
}

// PPTRequest is the body of a consolidated PPT call. Without a logo it is
// sent as JSON with "logo_file": null; with a logo as multipart form data.
type PPTRequest struct {
	ReportsData []PPTReport `json:"reports_data"`
	Title       string      `json:"title"`
	LogoFile    *string     `json:"logo_file"`

	Logo *Logo `json:"-"`
}

// NewPPTRequest builds the payload from flattened reports.
func NewPPTRequest(title string, reports []types.FlatReport, logo *Logo) PPTRequest {
	data := make([]PPTReport, 0, len(reports))
	for _, r := range reports {
		percent := r.PercentCols
		if percent == nil {
			percent = []int{}
		}
		data = append(data, PPTReport{
			DF:          r.DF,
			Title:       r.Title,
			PercentCols: percent,
			Columns:     r.ColumnOrder(),
		})
	}
	return PPTRequest{ReportsData: data, Title: title, Logo: logo}
}

// =============================================================================
// CLIENT
// =============================================================================

// BackendError is returned when the backend answers with a non-2xx status.
type BackendError struct {
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Client calls the rendering backend.
type Client struct {
	baseURL string
	pptPath string
	http    *http.Client
	logger  logging.Logger
}

// NewClient creates a backend client.
//
// PARAMETERS:
//   - baseURL: The backend base URL, e.g. "http://localhost:8000".
//   - pptPath: The consolidated PPT endpoint. Empty means DefaultPPTPath.
//   - timeout: Per-request timeout. Zero means no client-side timeout.
//   - logger: Receives one line per call. May be nil.
func NewClient(baseURL, pptPath string, timeout time.Duration, logger logging.Logger) *Client {
	if pptPath == "" {
		pptPath = DefaultPPTPath
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		pptPath: "/" + strings.TrimLeft(pptPath, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GenerateConsolidatedPPT posts the payload and returns the PPT bytes.
func (c *Client) GenerateConsolidatedPPT(ctx context.Context, req PPTRequest) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("backend url is not configured")
	}
	if len(req.ReportsData) == 0 {
		return nil, fmt.Errorf("no reports to export")
	}

	body, contentType, err := encodePPTRequest(req)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + c.pptPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("consolidated PPT failed: %d from %s", resp.StatusCode, url)
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("backend returned an empty file")
	}

	c.logger.Info("consolidated PPT generated: %d report(s), %d bytes in %s", len(req.ReportsData), len(data), time.Since(start).Round(time.Millisecond))
	return data, nil
}

func encodePPTRequest(req PPTRequest) (io.Reader, string, error) {
	if req.Logo == nil {
		data, err := json.Marshal(req)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}

	reports, err := json.Marshal(req.ReportsData)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode reports: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("reports_data", string(reports)); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("title", req.Title); err != nil {
		return nil, "", err
	}
	name := req.Logo.Filename
	if name == "" {
		name = "logo.png"
	}
	part, err := mw.CreateFormFile("logo_file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(req.Logo.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
