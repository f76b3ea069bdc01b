package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"a11y-checker/internal/analyzer"
	"a11y-checker/internal/config"
	"a11y-checker/internal/models"
	"a11y-checker/internal/orchestrator"
	"a11y-checker/internal/store"
)

type fakeObjects struct {
	mu   sync.Mutex
	puts map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{puts: make(map[string][]byte)}
}

func (f *fakeObjects) Put(ctx context.Context, container, key string, body []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts[container+"/"+key] = body
	return nil
}

func (f *fakeObjects) Get(ctx context.Context, container, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.puts[container+"/"+key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return body, nil
}

func (f *fakeObjects) List(ctx context.Context, container, prefix string) ([]string, error) {
	return nil, nil
}

func (f *fakeObjects) Delete(ctx context.Context, container, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.puts, container+"/"+key)
	return nil
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Invoke(ctx context.Context, req analyzer.Request) (analyzer.Invocation, error) {
	return analyzer.Invocation{
		Status: analyzer.StatusCompleted,
		Results: []analyzer.RawResult{{
			ResourceID:    req.ResourceID,
			DocumentTitle: "Page",
			Issues:        []analyzer.RawIssue{{Code: "label", Type: models.IssueError}},
		}},
	}, nil
}

func (fakeAnalyzer) ConfigSnapshot() models.AnalyzerConfig {
	return models.AnalyzerConfig{Standard: "WCAG2AA", Runner: "axe"}
}

type fakeBuilder struct{}

func (fakeBuilder) Build(ctx context.Context, jobID, fileType string, results []models.AnalysisResult, consolidated models.ConsolidatedReport) ([]models.Artifact, error) {
	return nil, nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	return false, nil
}

func testServer(t *testing.T) (*Server, *store.MemoryStore, *fakeObjects) {
	t.Helper()
	cfg := config.Load()
	jobs := store.NewMemoryStore()
	objects := newFakeObjects()
	orch := orchestrator.New(cfg, jobs, objects, fakeAnalyzer{}, fakeBuilder{})
	return New(cfg, orch, objects, nil), jobs, objects
}

func multipartBody(t *testing.T, declaredType, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if declaredType != "" {
		if err := mw.WriteField("type", declaredType); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestSubmitAccepted(t *testing.T) {
	s, _, _ := testServer(t)
	router := s.Router()

	body, contentType := multipartBody(t, "html", "page.html", []byte("<html></html>"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("empty job id")
	}

	// The pipeline runs in the background; poll the status endpoint until it
	// settles.
	deadline := time.Now().Add(5 * time.Second)
	for {
		req := httptest.NewRequest(http.MethodGet, "/api/status/"+resp.JobID, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d", rec.Code)
		}
		var st struct {
			Status string            `json:"status"`
			Stages map[string]string `json:"stages"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if st.Status == models.StatusCompleted {
			if st.Stages[models.StageAnalyzing] != models.StageDone {
				t.Fatalf("analyzing stage = %q", st.Stages[models.StageAnalyzing])
			}
			break
		}
		if st.Status == models.StatusError {
			t.Fatalf("job failed: %s", rec.Body.String())
		}
		if time.Now().After(deadline) {
			t.Fatal("job never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubmitRejectsBadType(t *testing.T) {
	s, jobs, _ := testServer(t)

	body, contentType := multipartBody(t, "spreadsheet", "doc.xls", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	list, _ := jobs.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("rejected submit created %d jobs", len(list))
	}
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	s, _, _ := testServer(t)

	body, contentType := multipartBody(t, "html", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	cfg := config.Load()
	jobs := store.NewMemoryStore()
	objects := newFakeObjects()
	orch := orchestrator.New(cfg, jobs, objects, fakeAnalyzer{}, fakeBuilder{})
	s := New(cfg, orch, objects, denyLimiter{})

	body, contentType := multipartBody(t, "html", "page.html", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
}

func TestStatusNotFound(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status/nope", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDownload(t *testing.T) {
	s, jobs, objects := testServer(t)
	router := s.Router()

	art := models.Artifact{
		Name:      "page_report_2024_03_05_14_07.html",
		Ext:       "html",
		Container: "html-reports",
		Key:       "reports/job-1/page_report_2024_03_05_14_07.html",
		Status:    models.ArtifactUploaded,
	}
	if err := jobs.RecordArtifact(context.Background(), art); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}
	objects.puts[art.Container+"/"+art.Key] = []byte("<html>report</html>")

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+art.Key, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html" {
		t.Errorf("content type = %q, want text/html", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="`+art.Name+`"` {
		t.Errorf("disposition = %q", got)
	}
	if rec.Body.String() != "<html>report</html>" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDownloadUnknownKey(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/download/reports/nope/missing.json", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDownloadObjectGone(t *testing.T) {
	s, jobs, _ := testServer(t)

	// Indexed but the stored object has since vanished.
	art := models.Artifact{
		Name:      "gone_report_2024_03_05_14_07.json",
		Ext:       "json",
		Container: "html-reports",
		Key:       "reports/job-2/gone_report_2024_03_05_14_07.json",
		Status:    models.ArtifactUploaded,
	}
	if err := jobs.RecordArtifact(context.Background(), art); err != nil {
		t.Fatalf("RecordArtifact: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+art.Key, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMetricsServedOnMainRouter(t *testing.T) {
	s, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("a11y_")) {
		t.Error("metrics output missing service collectors")
	}
}

func TestHealthAndJobsList(t *testing.T) {
	s, jobs, _ := testServer(t)
	router := s.Router()

	job := models.NewJob("job-list-1", models.FileTypeHTML, "page.html")
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var health struct {
		Status string `json:"status"`
		Jobs   int    `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || health.Jobs != 1 {
		t.Fatalf("health = %+v", health)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("jobs status = %d", rec.Code)
	}
	var list struct {
		Jobs []struct {
			ID       string `json:"id"`
			Filename string `json:"filename"`
		} `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != "job-list-1" {
		t.Fatalf("jobs = %+v", list.Jobs)
	}
}
