// Package analyst orchestrates the question/answer lifecycle: it owns the
// reasoning-engine session for a dataset, reserves plot filenames, dispatches
// questions, and classifies engine output into user-facing results.
package analyst

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hbenali/csvchat/internal/dataset"
	"github.com/hbenali/csvchat/internal/engine"
	"github.com/hbenali/csvchat/internal/providers"
	"github.com/hbenali/csvchat/internal/sandbox"
)

// DefaultCredentialPrefix is the required prefix of Groq API keys.
const DefaultCredentialPrefix = "gsk_"

// DefaultMaxPlotFiles bounds the reset-time plot cleanup sweep.
const DefaultMaxPlotFiles = 10

// Fingerprint identifies a reasoning-engine configuration. A session handle
// is only reusable while the fingerprint is unchanged.
type Fingerprint struct {
	Credential  string
	Model       string
	Temperature float32
}

// QueryResult is the outcome of a single question.
type QueryResult struct {
	Output   string `json:"output"`
	PlotPath string `json:"plot_path,omitempty"`
	Success  bool   `json:"success"`
}

// Config holds the analyst's static configuration.
type Config struct {
	WorkDir          string        // session workspace (dataset file + plot output)
	SessionID        string        // stable session identity; "" = new UUID
	Provider         string        // LLM provider name ("" = groq)
	BaseURL          string        // provider endpoint override
	CredentialPrefix string        // required API key prefix (default "gsk_")
	MaxIterations    int           // engine step cap per question
	MaxPlotFiles     int           // plot cleanup sweep bound (default 10)
	ToolTimeout      time.Duration // per-cell execution timeout (0 = sandbox default)
}

// Analyst holds one analysis session: at most one live engine handle, rebuilt
// whenever the fingerprint changes. Safe for concurrent use; questions are
// serialized.
type Analyst struct {
	mu      sync.Mutex
	cfg     Config
	runner  sandbox.Runner
	id      string
	ds      *dataset.Dataset
	agent   *engine.Agent
	fp      Fingerprint
	ready   bool
	plotSeq int

	// newClient is swappable for tests.
	newClient func(provider, apiKey, modelName, baseURL string) (engine.LLMClient, error)
}

// New creates an analyst bound to a workspace directory and sandbox runner.
func New(cfg Config, runner sandbox.Runner) *Analyst {
	if cfg.CredentialPrefix == "" {
		cfg.CredentialPrefix = DefaultCredentialPrefix
	}
	if cfg.MaxPlotFiles <= 0 {
		cfg.MaxPlotFiles = DefaultMaxPlotFiles
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = engine.DefaultMaxIterations
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	return &Analyst{
		cfg:       cfg,
		runner:    runner,
		id:        cfg.SessionID,
		newClient: providers.NewLLMClient,
	}
}

// SessionID returns the stable identifier plot artifacts are keyed by.
func (a *Analyst) SessionID() string {
	return a.id
}

// Dataset returns the active dataset, or nil when none is loaded.
func (a *Analyst) Dataset() *dataset.Dataset {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ds
}

// SetDataset installs a new active dataset: it is written into the workspace
// as a normalized UTF-8 CSV for generated code to read, and the current
// engine handle is invalidated so the next question rebuilds it with fresh
// dataset context.
func (a *Analyst) SetDataset(ds *dataset.Dataset) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := writeDatasetFile(filepath.Join(a.cfg.WorkDir, datasetFile), ds); err != nil {
		return err
	}

	a.ds = ds
	a.agent = nil
	a.ready = false

	rows, cols := ds.Shape()
	log.Printf("Dataset loaded: %d rows x %d columns (encoding=%s)", rows, cols, ds.Encoding)
	return nil
}

// EnsureSession validates the fingerprint and guarantees a live engine
// handle for it. The credential is checked against the required prefix
// before any network client is constructed; a bad credential never leaves
// the process. An existing handle is reused only for an identical
// fingerprint.
func (a *Analyst) EnsureSession(fp Fingerprint) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ensureSessionLocked(fp)
}

func (a *Analyst) ensureSessionLocked(fp Fingerprint) error {
	if len(fp.Credential) < len(a.cfg.CredentialPrefix) ||
		fp.Credential[:len(a.cfg.CredentialPrefix)] != a.cfg.CredentialPrefix {
		return &InvalidCredentialError{Prefix: a.cfg.CredentialPrefix}
	}
	if a.ds == nil {
		return &NoDatasetError{}
	}
	if a.ready && a.agent != nil && fp == a.fp {
		return nil
	}

	system, err := buildSystemPrompt(a.ds)
	if err != nil {
		return err
	}

	client, err := a.newClient(a.cfg.Provider, fp.Credential, fp.Model, a.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	tools := engine.ToolRegistry{
		"run_python": newPythonTool(a.runner, a.cfg.WorkDir, a.cfg.ToolTimeout),
	}

	a.agent = engine.NewAgent(client, tools, system, engine.AgentConfig{
		Model:         fp.Model,
		MaxIterations: a.cfg.MaxIterations,
		Temperature:   fp.Temperature,
	})
	a.fp = fp
	a.ready = true
	log.Printf("Session %s ready (model=%s temperature=%.1f)", a.id, fp.Model, fp.Temperature)
	return nil
}

// Ask runs one question through the engine and normalizes the outcome.
// Session and credential problems are returned as errors; engine failures
// are folded into a QueryResult with Success=false and never propagate.
func (a *Analyst) Ask(ctx context.Context, fp Fingerprint, question string) (QueryResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ensureSessionLocked(fp); err != nil {
		return QueryResult{}, err
	}

	// The plot name is reserved before dispatch so a slow engine response
	// can never collide with the next question's artifact.
	a.plotSeq++
	plotName := plotFileName(a.id, a.plotSeq)

	instruction, err := buildInstruction(a.ds, question, plotName)
	if err != nil {
		return QueryResult{}, err
	}

	out, runErr := a.agent.Run(ctx, instruction)
	if runErr != nil {
		log.Printf("WARNING: Engine run failed: %v", runErr)
		return QueryResult{Output: classifyError(runErr), Success: false}, nil
	}

	output, limited := softenOutput(out)
	return QueryResult{
		Output:   output,
		PlotPath: findPlot(a.cfg.WorkDir, plotName),
		Success:  !limited,
	}, nil
}

// Reset invalidates the session handle, zeroes the plot counter, and sweeps
// this session's plot files at indices below the configured maximum.
func (a *Analyst) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.agent = nil
	a.ready = false
	cleanupPlots(a.cfg.WorkDir, a.id, a.cfg.MaxPlotFiles)
	a.plotSeq = 0
}

// TokenTotals returns accumulated token usage for the live session, if any.
func (a *Analyst) TokenTotals() engine.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.agent == nil {
		return engine.Usage{}
	}
	return a.agent.TokenTotals()
}

// writeDatasetFile renders the parsed table back out as plain UTF-8 CSV so
// generated code never has to guess the original encoding or delimiter.
func writeDatasetFile(path string, ds *dataset.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.ColumnNames()); err != nil {
		return fmt.Errorf("failed to write dataset header: %w", err)
	}
	for _, row := range ds.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write dataset row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush dataset file: %w", err)
	}
	return nil
}
