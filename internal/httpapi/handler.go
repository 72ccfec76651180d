// Package httpapi exposes the analysis service over HTTP: CSV upload,
// question dispatch, conversation history, and plot artifact serving.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hbenali/csvchat/internal/analyst"
	"github.com/hbenali/csvchat/internal/config"
	"github.com/hbenali/csvchat/internal/conversation"
	"github.com/hbenali/csvchat/internal/dataset"
)

// maxUploadBytes bounds CSV upload size. Row count is the real ceiling; this
// only stops pathological bodies from being buffered.
const maxUploadBytes = 256 << 20 // 256MB

// Analyst is the orchestrator surface the API depends on. Narrow so tests
// can substitute a fake.
type Analyst interface {
	Ask(ctx context.Context, fp analyst.Fingerprint, question string) (analyst.QueryResult, error)
	SetDataset(ds *dataset.Dataset) error
	Dataset() *dataset.Dataset
	Reset()
}

// Handler wires the HTTP surface to the analyst and conversation log.
type Handler struct {
	analyst  Analyst
	convo    *conversation.Log
	cfg      *config.Config
	prefs    *config.Manager
	plotsDir string
}

// NewHandler creates the API handler. prefs may be nil, in which case config
// updates apply to the running process only. plotsDir is the workspace
// directory plot artifacts are written into.
func NewHandler(a Analyst, convo *conversation.Log, cfg *config.Config, prefs *config.Manager, plotsDir string) *Handler {
	return &Handler{
		analyst:  a,
		convo:    convo,
		cfg:      cfg,
		prefs:    prefs,
		plotsDir: plotsDir,
	}
}

// Routes builds the chi router for the API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.HandleUpload)
		r.Post("/ask", h.HandleAsk)
		r.Post("/reset", h.HandleReset)
		r.Get("/history", h.HandleHistory)
		r.Get("/history/search", h.HandleHistorySearch)
		r.Get("/summary", h.HandleSummary)
		r.Get("/config", h.HandleGetConfig)
		r.Post("/config", h.HandleUpdateConfig)
		r.Get("/plots/{name}", h.HandlePlot)
	})
	return r
}

// HandleUpload handles POST /api/upload: raw CSV bytes, or a multipart form
// with a "file" field. On success the dataset becomes active and its summary
// is returned.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	raw, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "empty upload")
		return
	}

	opts := dataset.DefaultLoadOptions()
	if h.cfg != nil && h.cfg.MaxRows > 0 {
		opts.MaxRows = h.cfg.MaxRows
	}

	ds, err := dataset.LoadWithOptions(raw, opts)
	if err != nil {
		var tooLarge *dataset.TooLargeError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, tooLarge.Error())
			return
		}
		var unparseable *dataset.UnparseableError
		if errors.As(err, &unparseable) {
			writeError(w, http.StatusUnprocessableEntity, unparseable.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.analyst.SetDataset(ds); err != nil {
		log.Printf("WARNING: Failed to install dataset: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store dataset")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":   dataset.Summarize(ds),
		"encoding":  ds.Encoding,
		"delimiter": string(ds.Delimiter),
	})
}

// readUpload extracts CSV bytes from a multipart form or the raw body.
func readUpload(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file field: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

type askRequest struct {
	Question    string   `json:"question"`
	APIKey      string   `json:"api_key,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

type askResponse struct {
	Output  string `json:"output"`
	Plot    string `json:"plot,omitempty"`
	Success bool   `json:"success"`
}

// HandleAsk handles POST /api/ask. Engine failures are a normal response
// with success=false; only boundary errors (bad credential, no dataset,
// malformed request) get error status codes.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	fp := h.fingerprint(req)
	if fp.Temperature < 0.0 || fp.Temperature > 1.0 {
		writeError(w, http.StatusBadRequest, "temperature must be in [0.0, 1.0]")
		return
	}
	if (h.cfg == nil || h.cfg.Provider == "" || h.cfg.Provider == "groq") && !config.IsSupportedModel(fp.Model) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported model %q", fp.Model))
		return
	}

	result, err := h.analyst.Ask(r.Context(), fp, req.Question)
	if err != nil {
		var badCred *analyst.InvalidCredentialError
		if errors.As(err, &badCred) {
			writeError(w, http.StatusUnauthorized, badCred.Error())
			return
		}
		var noData *analyst.NoDatasetError
		if errors.As(err, &noData) {
			writeError(w, http.StatusBadRequest, noData.Error())
			return
		}
		log.Printf("WARNING: Ask failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	plotName := ""
	if result.PlotPath != "" {
		plotName = filepath.Base(result.PlotPath)
	}

	h.appendTurns(r.Context(), req.Question, result.Output, plotName)

	resp := askResponse{
		Output:  result.Output,
		Success: result.Success,
	}
	if plotName != "" {
		resp.Plot = "/api/plots/" + plotName
	}
	writeJSON(w, http.StatusOK, resp)
}

// fingerprint resolves the request's engine configuration, falling back to
// the process defaults for anything omitted.
func (h *Handler) fingerprint(req askRequest) analyst.Fingerprint {
	fp := analyst.Fingerprint{
		Credential:  req.APIKey,
		Model:       req.Model,
		Temperature: config.DefaultTemperature,
	}
	if h.cfg != nil {
		if fp.Credential == "" {
			fp.Credential = h.cfg.GroqAPIKey
		}
		if fp.Model == "" {
			fp.Model = h.cfg.Model
		}
		fp.Temperature = h.cfg.Temperature
	}
	if fp.Model == "" {
		fp.Model = config.ModelOptions[0]
	}
	if req.Temperature != nil {
		fp.Temperature = *req.Temperature
	}
	return fp
}

// appendTurns folds a question/answer pair into the conversation log.
func (h *Handler) appendTurns(ctx context.Context, question, answer, plotName string) {
	if h.convo == nil {
		return
	}
	if err := h.convo.Append(ctx, conversation.Turn{Role: conversation.RoleUser, Content: question}); err != nil {
		log.Printf("WARNING: Failed to record user turn: %v", err)
	}
	if err := h.convo.Append(ctx, conversation.Turn{
		Role:      conversation.RoleAssistant,
		Content:   answer,
		ImagePath: plotName,
	}); err != nil {
		log.Printf("WARNING: Failed to record assistant turn: %v", err)
	}
}

// HandleReset handles POST /api/reset: clears the transcript, drops the
// engine session, and sweeps plot files.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.analyst.Reset()
	if h.convo != nil {
		if err := h.convo.Reset(r.Context()); err != nil {
			log.Printf("WARNING: Failed to clear conversation: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to clear conversation")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleHistory handles GET /api/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	var turns []conversation.Turn
	if h.convo != nil {
		turns = h.convo.History()
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// HandleHistorySearch handles GET /api/history/search?q=...&limit=N.
func (h *Handler) HandleHistorySearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	limit := 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	var hits []conversation.SearchHit
	if h.convo != nil {
		var err error
		hits, err = h.convo.Search(query, limit)
		if err != nil {
			log.Printf("WARNING: History search failed: %v", err)
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
	}
	if hits == nil {
		hits = []conversation.SearchHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": hits})
}

// HandleSummary handles GET /api/summary for the active dataset.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ds := h.analyst.Dataset()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no dataset loaded")
		return
	}
	writeJSON(w, http.StatusOK, dataset.Summarize(ds))
}

// HandleGetConfig handles GET /api/config: the effective runtime settings
// plus the selectable model list.
func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"models": config.ModelOptions}
	if h.cfg != nil {
		resp["provider"] = h.cfg.Provider
		resp["model"] = h.cfg.Model
		resp["temperature"] = h.cfg.Temperature
		resp["base_url"] = h.cfg.BaseURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdateConfig handles POST /api/config: overlays the submitted
// preferences onto the running config and persists them when a preferences
// store is attached.
func (h *Handler) HandleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var prefs config.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if prefs.Temperature != nil && (*prefs.Temperature < 0.0 || *prefs.Temperature > 1.0) {
		writeError(w, http.StatusBadRequest, "temperature must be in [0.0, 1.0]")
		return
	}

	provider := prefs.Provider
	if provider == "" && h.cfg != nil {
		provider = h.cfg.Provider
	}
	if prefs.Model != "" && (provider == "" || provider == "groq") && !config.IsSupportedModel(prefs.Model) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported model %q", prefs.Model))
		return
	}

	if h.cfg != nil {
		prefs.Apply(h.cfg)
	}
	if h.prefs != nil {
		// Merge into whatever is already on disk so a partial update does not
		// wipe previously saved fields.
		saved, err := h.prefs.Load()
		if err != nil {
			saved = &config.Preferences{}
		}
		if prefs.Provider != "" {
			saved.Provider = prefs.Provider
		}
		if prefs.Model != "" {
			saved.Model = prefs.Model
		}
		if prefs.Temperature != nil {
			saved.Temperature = prefs.Temperature
		}
		if prefs.BaseURL != "" {
			saved.BaseURL = prefs.BaseURL
		}
		if err := h.prefs.Save(saved); err != nil {
			log.Printf("WARNING: Failed to save preferences: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to save preferences")
			return
		}
	}

	h.HandleGetConfig(w, r)
}

// HandlePlot handles GET /api/plots/{name}. Only flat .png names are served;
// anything path-like is rejected.
func (h *Handler) HandlePlot(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") || !strings.HasSuffix(name, ".png") {
		writeError(w, http.StatusBadRequest, "invalid plot name")
		return
	}
	http.ServeFile(w, r, filepath.Join(h.plotsDir, name))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARNING: Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
