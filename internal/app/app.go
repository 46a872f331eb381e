package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"dreamlog/internal/audio"
	"dreamlog/internal/config"
	"dreamlog/internal/database"
	"dreamlog/internal/dream"
	"dreamlog/internal/media"
	"dreamlog/internal/structure"
	"dreamlog/internal/transcribe"
)

// App is the application layer between the CLI and the pipeline. It
// constructs all dependencies from config, exposes flow builders, and manages
// the store lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   dream.EntryStore
	media   dream.MediaStore
	service *dream.DreamService
	logger  dream.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Record", "Search").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	if cfg.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner_id not set; run 'dreamlog config init'", dream.ErrConfig)
	}

	m, err := media.NewMediaStoreFromConfig(ctx, cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("creating media store: %w", err)
	}

	store, err := database.NewEntryStoreFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating entry store: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID+"/"+operation)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	svc := dream.NewDreamService(store, m, logger, dream.RealClock{}, dream.UUIDGenerator{})

	return &App{
		cfg:     cfg,
		store:   store,
		media:   m,
		service: svc,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// OwnerID returns the configured owning user id.
func (a *App) OwnerID() string { return a.cfg.OwnerID }

// Service returns the persistence service for entry operations.
func (a *App) Service() *dream.DreamService { return a.service }

// Logger returns the application logger.
func (a *App) Logger() dream.Logger { return a.logger }

// NewCaptureFlow builds an orchestrator for the full audio flow: recorder,
// transcription and structuring clients, persistence. A missing API key
// fails here, before any recording starts.
func (a *App) NewCaptureFlow(ctx context.Context) (*dream.CaptureOrchestrator, error) {
	transcriber, structurer, err := a.buildClients()
	if err != nil {
		return nil, err
	}

	device, err := audio.NewDeviceFromConfig(a.cfg.Capture)
	if err != nil {
		return nil, fmt.Errorf("creating capture device: %w", err)
	}
	session := audio.NewSession(device, a.logger)

	return dream.NewCaptureOrchestrator(session, transcriber, structurer, a.service, a.logger), nil
}

// NewTextFlow builds an orchestrator for the text-only flow; capture and
// transcription are skipped entirely.
func (a *App) NewTextFlow() (*dream.CaptureOrchestrator, error) {
	_, structurer, err := a.buildClients()
	if err != nil {
		return nil, err
	}
	return dream.NewCaptureOrchestrator(nil, nil, structurer, a.service, a.logger), nil
}

func (a *App) buildClients() (dream.Transcriber, dream.Structurer, error) {
	key := a.cfg.APIKey()

	transcriber, err := transcribe.NewClient(key, a.logger,
		transcribe.WithEndpoint(a.cfg.OpenAI.TranscriptionURL),
		transcribe.WithModel(a.cfg.OpenAI.TranscriptionModel),
	)
	if err != nil {
		return nil, nil, err
	}

	structurer, err := structure.NewClient(key, a.logger,
		structure.WithEndpoint(a.cfg.OpenAI.CompletionsURL),
		structure.WithModel(a.cfg.OpenAI.StructuringModel),
	)
	if err != nil {
		return nil, nil, err
	}

	return transcriber, structurer, nil
}

// Close releases the entry store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = err
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
