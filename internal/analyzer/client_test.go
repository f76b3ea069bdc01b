package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"a11y-checker/internal/config"
	"a11y-checker/internal/models"
)

func testConfig(url string) config.Config {
	return config.Config{
		AnalyzerPDFURL:  url,
		AnalyzerHTMLURL: url,
		AnalyzerTimeout: 2 * time.Second,
		WCAGStandard:    "WCAG2AA",
		Runner:          "axe",
		IncludeWarnings: true,
	}
}

func TestInvokeDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body invokeBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Config.Standard != "WCAG2AA" {
			t.Errorf("config snapshot not sent, got %+v", body.Config)
		}
		_ = json.NewEncoder(w).Encode(Invocation{
			Status:     StatusCompleted,
			IssueCount: 1,
			Results: []RawResult{{
				ResourceID: body.ResourceID,
				Issues:     []RawIssue{{Code: "image-alt", Type: "error", Message: "missing alt"}},
			}},
		})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	inv, err := c.Invoke(context.Background(), Request{ResourceID: "page.html", FileType: models.FileTypeHTML})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if inv.Status != StatusCompleted || len(inv.Results) != 1 || inv.Results[0].Issues[0].Code != "image-alt" {
		t.Fatalf("unexpected invocation: %+v", inv)
	}
}

func TestInvokeUnrecognizedStatusIsReturnedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Invocation{Status: "warming_up"})
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	inv, err := c.Invoke(context.Background(), Request{ResourceID: "a.pdf", FileType: models.FileTypePDF})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if inv.Status != "warming_up" {
		t.Fatalf("status must pass through untouched, got %q", inv.Status)
	}
}

func TestInvokeTimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.AnalyzerTimeout = 50 * time.Millisecond
	c := New(cfg)
	_, err := c.Invoke(context.Background(), Request{ResourceID: "slow.html", FileType: models.FileTypeHTML})
	var te *models.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestInvokeHTTPErrorIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "analyzer exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	_, err := c.Invoke(context.Background(), Request{ResourceID: "a.html", FileType: models.FileTypeHTML})
	var te *models.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
