package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vascribe-labs/vascribe-core/internal/backend"
	"github.com/vascribe-labs/vascribe-core/internal/bus"
	"github.com/vascribe-labs/vascribe-core/internal/command"
	"github.com/vascribe-labs/vascribe-core/internal/config"
	"github.com/vascribe-labs/vascribe-core/internal/dictation"
	"github.com/vascribe-labs/vascribe-core/internal/macros"
	"github.com/vascribe-labs/vascribe-core/internal/narrative"
	"github.com/vascribe-labs/vascribe-core/internal/natsserver"
	"github.com/vascribe-labs/vascribe-core/internal/procstore"
	"github.com/vascribe-labs/vascribe-core/internal/stt"
)

// Runtime assembles the dictation daemon: bus, transcription, the command
// engine, persistence, and the backend link.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	defer busClient.Close()

	store, err := procstore.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open procedure store: %w", err)
	}
	defer store.Close()

	library, err := macros.Load(
		r.cfg.Dictation.MacrosPath,
		r.cfg.Dictation.HotwordsPath,
		r.cfg.Dictation.FieldMappingsPath,
		r.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to load dictation vocabulary: %w", err)
	}

	backendClient := backend.NewClient(r.cfg.Backend, r.logger)
	if r.cfg.Backend.Enabled {
		// Offline mode is fine; the error is already logged.
		_ = backendClient.Connect(ctx)
	}
	defer backendClient.Close()

	parser := command.NewParser(r.cfg.Dictation.Vessels, library.Fields)
	buffer := narrative.New(library.Macros)
	session := dictation.NewSession("", parser, buffer, r.logger)

	dictationService := dictation.NewService(ctx, r.cfg.Dictation, busClient, session, store, backendClient, r.logger)
	if err := dictationService.Start(); err != nil {
		return fmt.Errorf("failed to start dictation service: %w", err)
	}
	defer dictationService.Close()

	recognizer, err := buildRecognizer(r.cfg.STT)
	if err != nil {
		return fmt.Errorf("failed to build recognizer: %w", err)
	}
	sttService := stt.NewService(ctx, r.cfg.STT, busClient, recognizer, library.HotwordPrompt())
	if err := sttService.Start(); err != nil {
		return fmt.Errorf("failed to start stt service: %w", err)
	}
	defer sttService.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("session_id", session.ID()),
		slog.Int("macros", len(library.Macros)),
		slog.Int("hotwords", len(library.Hotwords)))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func buildRecognizer(cfg config.STTConfig) (stt.Recognizer, error) {
	if cfg.Mode == "exec" {
		return stt.NewExecRecognizer(cfg)
	}
	return stt.NewMockRecognizer(), nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
