package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hbenali/csvchat/internal/analyst"
	"github.com/hbenali/csvchat/internal/config"
	"github.com/hbenali/csvchat/internal/dataset"
)

// fakeAnalyst is a scripted Analyst for handler tests.
type fakeAnalyst struct {
	ds       *dataset.Dataset
	result   analyst.QueryResult
	askErr   error
	askCalls int
	lastFP   analyst.Fingerprint
	resets   int
}

func (f *fakeAnalyst) Ask(ctx context.Context, fp analyst.Fingerprint, question string) (analyst.QueryResult, error) {
	f.askCalls++
	f.lastFP = fp
	if f.askErr != nil {
		return analyst.QueryResult{}, f.askErr
	}
	return f.result, nil
}

func (f *fakeAnalyst) SetDataset(ds *dataset.Dataset) error { f.ds = ds; return nil }
func (f *fakeAnalyst) Dataset() *dataset.Dataset            { return f.ds }
func (f *fakeAnalyst) Reset()                               { f.resets++ }

func testConfig() *config.Config {
	return &config.Config{
		GroqAPIKey:  "gsk_env_key",
		Provider:    "groq",
		Model:       config.ModelOptions[0],
		Temperature: 0.0,
		MaxRows:     1000,
	}
}

func newTestHandler(t *testing.T, fa *fakeAnalyst) (*Handler, string) {
	t.Helper()
	plotsDir := t.TempDir()
	return NewHandler(fa, nil, testConfig(), nil, plotsDir), plotsDir
}

func doJSON(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestUploadRawCSV(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("a,b\n1,2\n"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fa.ds == nil {
		t.Fatalf("Expected dataset to be installed")
	}

	var resp struct {
		Summary   dataset.Summary `json:"summary"`
		Encoding  string          `json:"encoding"`
		Delimiter string          `json:"delimiter"`
	}
	decode(t, rec, &resp)
	if resp.Summary.Rows != 1 || resp.Summary.Columns != 2 {
		t.Errorf("Unexpected summary: %+v", resp.Summary)
	}
	if resp.Delimiter != "," {
		t.Errorf("Expected comma delimiter, got %q", resp.Delimiter)
	}
}

func TestUploadMultipart(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "data.csv")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fmt.Fprint(fw, "x,y\n1,2\n3,4\n")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fa.ds == nil || len(fa.ds.Rows) != 2 {
		t.Errorf("Expected a 2-row dataset, got %+v", fa.ds)
	}
}

func TestUploadTooManyRows(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)
	h.cfg.MaxRows = 2

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("a\n1\n2\n3\n"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d: %s", rec.Code, rec.Body.String())
	}
	if fa.ds != nil {
		t.Errorf("Oversized upload must not install a dataset")
	}
}

func TestUploadUnparseable(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("\x00\x01\x02"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUploadEmptyBody(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty upload, got %d", rec.Code)
	}
}

func TestAskSuccessWithPlot(t *testing.T) {
	fa := &fakeAnalyst{result: analyst.QueryResult{
		Output:   "The mean is 2.",
		PlotPath: "/work/s_plot_1.png",
		Success:  true,
	}}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "mean of x?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp askResponse
	decode(t, rec, &resp)
	if !resp.Success || resp.Output != "The mean is 2." {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.Plot != "/api/plots/s_plot_1.png" {
		t.Errorf("Expected plot URL, got %q", resp.Plot)
	}

	// Omitted fields fall back to the process config.
	if fa.lastFP.Credential != "gsk_env_key" || fa.lastFP.Model != config.ModelOptions[0] {
		t.Errorf("Expected config fallback fingerprint, got %+v", fa.lastFP)
	}
}

func TestAskOverridesFingerprint(t *testing.T) {
	fa := &fakeAnalyst{result: analyst.QueryResult{Output: "ok", Success: true}}
	h, _ := newTestHandler(t, fa)

	temp := float32(0.9)
	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{
		"question":    "q",
		"api_key":     "gsk_other",
		"model":       "llama3-8b-8192",
		"temperature": temp,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := analyst.Fingerprint{Credential: "gsk_other", Model: "llama3-8b-8192", Temperature: 0.9}
	if fa.lastFP != want {
		t.Errorf("Expected %+v, got %+v", want, fa.lastFP)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if fa.askCalls != 0 {
		t.Errorf("Blank question must not reach the analyst")
	}
}

func TestAskRejectsUnknownModel(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "q", "model": "gpt-9"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown model, got %d", rec.Code)
	}
}

func TestAskRejectsOutOfRangeTemperature(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "q", "temperature": 1.5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad temperature, got %d", rec.Code)
	}
}

func TestAskBadCredential(t *testing.T) {
	fa := &fakeAnalyst{askErr: &analyst.InvalidCredentialError{Prefix: "gsk_"}}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "q"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAskNoDataset(t *testing.T) {
	fa := &fakeAnalyst{askErr: &analyst.NoDatasetError{}}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "q"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAskEngineFailureIsNormalResponse(t *testing.T) {
	fa := &fakeAnalyst{result: analyst.QueryResult{
		Output:  "Error processing query: provider unreachable",
		Success: false,
	}}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/ask", map[string]any{"question": "q"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Engine failures are 200 with success=false, got %d", rec.Code)
	}
	var resp askResponse
	decode(t, rec, &resp)
	if resp.Success {
		t.Errorf("Expected success=false, got %+v", resp)
	}
}

func TestReset(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if fa.resets != 1 {
		t.Errorf("Expected one analyst reset, got %d", fa.resets)
	}
}

func TestHistoryEmptyWithoutLog(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodGet, "/api/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var resp struct {
		Turns []any `json:"turns"`
	}
	decode(t, rec, &resp)
	if resp.Turns == nil || len(resp.Turns) != 0 {
		t.Errorf("Expected empty turns array, got %v", resp.Turns)
	}
}

func TestHistorySearchRequiresQuery(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodGet, "/api/history/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without q, got %d", rec.Code)
	}
}

func TestSummaryWithoutDataset(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestSummaryWithDataset(t *testing.T) {
	ds, err := dataset.Load([]byte("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("failed to load dataset: %v", err)
	}
	fa := &fakeAnalyst{ds: ds}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var s dataset.Summary
	decode(t, rec, &s)
	if s.Rows != 1 || s.Columns != 2 {
		t.Errorf("Unexpected summary: %+v", s)
	}
}

func TestGetConfig(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodGet, "/api/config", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Provider string   `json:"provider"`
		Model    string   `json:"model"`
		Models   []string `json:"models"`
	}
	decode(t, rec, &resp)
	if resp.Provider != "groq" || resp.Model != config.ModelOptions[0] {
		t.Errorf("Unexpected config: %+v", resp)
	}
	if len(resp.Models) != len(config.ModelOptions) {
		t.Errorf("Expected %d selectable models, got %d", len(config.ModelOptions), len(resp.Models))
	}
}

func TestUpdateConfigPersistsPreferences(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)
	manager := config.NewManagerAt(t.TempDir())
	h.prefs = manager

	rec := doJSON(t, h, http.MethodPost, "/api/config", map[string]any{
		"model":       "compound-beta",
		"temperature": 0.2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The running config picks up the update immediately.
	if h.cfg.Model != "compound-beta" || h.cfg.Temperature != 0.2 {
		t.Errorf("Running config not updated: model=%q temperature=%v", h.cfg.Model, h.cfg.Temperature)
	}

	// And the preferences survive a reload from disk.
	saved, err := manager.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved.Model != "compound-beta" {
		t.Errorf("Expected saved model compound-beta, got %q", saved.Model)
	}
	if saved.Temperature == nil || *saved.Temperature != 0.2 {
		t.Errorf("Expected saved temperature 0.2, got %v", saved.Temperature)
	}
}

func TestUpdateConfigRejectsUnknownModel(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/config", map[string]any{"model": "gpt-9"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown model, got %d", rec.Code)
	}
	if h.cfg.Model == "gpt-9" {
		t.Errorf("Rejected update must not mutate the running config")
	}
}

func TestUpdateConfigRejectsOutOfRangeTemperature(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	rec := doJSON(t, h, http.MethodPost, "/api/config", map[string]any{"temperature": 1.5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad temperature, got %d", rec.Code)
	}
}

func TestPlotServing(t *testing.T) {
	fa := &fakeAnalyst{}
	h, plotsDir := newTestHandler(t, fa)

	if err := os.WriteFile(filepath.Join(plotsDir, "s_plot_1.png"), []byte("png-bytes"), 0644); err != nil {
		t.Fatalf("failed to write plot: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/plots/s_plot_1.png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("Unexpected plot body: %q", rec.Body.String())
	}
}

func TestPlotNameSanitized(t *testing.T) {
	fa := &fakeAnalyst{}
	h, _ := newTestHandler(t, fa)

	for _, name := range []string{"notes.txt", "a..b.png"} {
		rec := doJSON(t, h, http.MethodGet, "/api/plots/"+name, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %q, got %d", name, rec.Code)
		}
	}
}
