// Package analyzer talks to the external accessibility analyzer services.
// The rule evaluation itself is opaque; this client only moves requests and
// raw findings across the wire.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"a11y-checker/internal/config"
	"a11y-checker/internal/models"
)

// Statuses the analyzer may return. Anything else is handled as an error by
// the caller, never as a crash.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// RawIssue is a finding exactly as the analyzer reports it, before impact
// resolution and WCAG classification.
type RawIssue struct {
	Code     string `json:"code"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
	Selector string `json:"selector,omitempty"`
	Impact   string `json:"impact,omitempty"`
}

// RawResult holds unprocessed findings for one resource.
type RawResult struct {
	ResourceID    string     `json:"resourceId"`
	DocumentTitle string     `json:"documentTitle"`
	DurationMS    int64      `json:"durationMs"`
	Issues        []RawIssue `json:"issues"`
}

// Invocation is the analyzer's response envelope.
type Invocation struct {
	Status     string      `json:"status"`
	IssueCount int         `json:"issueCount"`
	Results    []RawResult `json:"results"`
	Error      string      `json:"error,omitempty"`
}

// Request identifies one stored resource to analyze.
type Request struct {
	ResourceID string `json:"resourceId"`
	Container  string `json:"container"`
	Key        string `json:"key"`
	FileType   string `json:"-"`
}

type invokeBody struct {
	ResourceID string                `json:"resourceId"`
	Container  string                `json:"container"`
	Key        string                `json:"key"`
	Config     models.AnalyzerConfig `json:"config"`
}

// Client invokes the per-family analyzer services over HTTP.
type Client struct {
	httpClient *http.Client
	pdfURL     string
	htmlURL    string
	timeout    time.Duration
	snapshot   models.AnalyzerConfig
}

// New builds a client from config. The timeout bounds each invocation's
// wall clock, including connection setup and body read.
func New(cfg config.Config) *Client {
	timeout := cfg.AnalyzerTimeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		pdfURL:     cfg.AnalyzerPDFURL,
		htmlURL:    cfg.AnalyzerHTMLURL,
		timeout:    timeout,
		snapshot: models.AnalyzerConfig{
			Standard:        cfg.WCAGStandard,
			Runner:          cfg.Runner,
			IncludeWarnings: cfg.IncludeWarnings,
			IncludeNotices:  cfg.IncludeNotices,
		},
	}
}

// ConfigSnapshot returns the invocation options recorded on every result.
func (c *Client) ConfigSnapshot() models.AnalyzerConfig {
	return c.snapshot
}

// Invoke runs one analysis call. Network failures and timeouts surface as
// TransportError; an HTTP error status or malformed body does as well. A
// well-formed response is returned verbatim, whatever its status field says.
func (c *Client) Invoke(ctx context.Context, req Request) (Invocation, error) {
	base := c.htmlURL
	if req.FileType == models.FileTypePDF {
		base = c.pdfURL
	}
	url := base + "/api/analyze"

	body, err := json.Marshal(invokeBody{
		ResourceID: req.ResourceID,
		Container:  req.Container,
		Key:        req.Key,
		Config:     c.snapshot,
	})
	if err != nil {
		return Invocation{}, fmt.Errorf("marshal analyze request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Invocation{}, fmt.Errorf("build analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Invocation{}, &models.TransportError{Op: "invoke analyzer", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024*1024))
	if err != nil {
		return Invocation{}, &models.TransportError{Op: "read analyzer response", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Invocation{}, &models.TransportError{
			Op:  "invoke analyzer",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 256)),
		}
	}

	var inv Invocation
	if err := json.Unmarshal(raw, &inv); err != nil {
		return Invocation{}, &models.TransportError{Op: "decode analyzer response", Err: err}
	}
	return inv, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
