package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hbenali/csvchat/internal/analyst"
	"github.com/hbenali/csvchat/internal/config"
	"github.com/hbenali/csvchat/internal/conversation"
	"github.com/hbenali/csvchat/internal/httpapi"
	"github.com/hbenali/csvchat/internal/sandbox"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func run() error {
	fs := flag.NewFlagSet("csvchat", flag.ExitOnError)
	listenFlag := fs.String("listen", "", "Listen address (overrides LISTEN_ADDR)")
	dataDirFlag := fs.String("data-dir", "", "Data directory (overrides DATA_DIR)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *listenFlag != "" {
		cfg.ListenAddr = *listenFlag
	}
	if *dataDirFlag != "" {
		cfg.DataDir = *dataDirFlag
	}

	// Persisted user preferences overlay the environment.
	var prefsManager *config.Manager
	if m, err := config.NewManager(); err == nil {
		prefsManager = m
		if prefs, err := m.Load(); err == nil {
			prefs.Apply(cfg)
		} else {
			log.Printf("WARNING: Failed to load preferences: %v", err)
		}
	}

	workDir := filepath.Join(cfg.DataDir, "workspace")
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return err
	}

	// The session identity survives restarts so the persisted transcript and
	// plot files still belong to the running session.
	sessionID, err := loadOrCreateSessionID(filepath.Join(cfg.DataDir, "session"))
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := conversation.NewStore(ctx, filepath.Join(cfg.DataDir, "turns.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	index, err := conversation.NewSearchIndex(filepath.Join(cfg.DataDir, "turns.bleve"))
	if err != nil {
		return err
	}
	defer index.Close()

	runner := sandbox.NewDefaultRunner()

	a := analyst.New(analyst.Config{
		WorkDir:      workDir,
		SessionID:    sessionID,
		Provider:     cfg.Provider,
		BaseURL:      cfg.BaseURL,
		MaxPlotFiles: cfg.MaxPlotFiles,
	}, runner)

	convo, err := conversation.NewLogFromStore(ctx, sessionID, store, index)
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(a, convo, cfg, prefsManager, workDir)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 csvchat listening on %s (model=%s provider=%s)", cfg.ListenAddr, cfg.Model, cfg.Provider)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// loadOrCreateSessionID reads the session identity from path, creating it on
// first start.
func loadOrCreateSessionID(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(raw)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id+"\n"), 0600); err != nil {
		return "", fmt.Errorf("failed to persist session id: %w", err)
	}
	return id, nil
}
