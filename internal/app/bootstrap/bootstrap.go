package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "medcot/internal/config"
	"medcot/internal/llm"
	"medcot/internal/observability/metrics"
	"medcot/pkg/logging"
)

// NewLogger builds the process logger from config.
func NewLogger(cfg *appconfig.Config) *logging.Logger {
	return logging.NewWithOptions(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
}

// BuildLLMClient wires the OpenAI client for model with metrics and the
// configured retry policy.  Every attempt is counted separately.
func BuildLLMClient(cfg *appconfig.Config, model string, m *metrics.GenerationMetrics, logger *logging.Logger) llm.Client {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; requests will be rejected unless OPENAI_BASE_URL points at a keyless endpoint")
	}
	base := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.LLMTimeout,
	})
	logger.Info("llm client configured",
		"model", base.Model(),
		"max_attempts", cfg.LLMMaxAttempts,
		"timeout", cfg.LLMTimeout.String(),
	)
	return llm.NewRetryClient(llm.NewInstrumentedClient(base, m), logger).
		WithMaxAttempts(cfg.LLMMaxAttempts).
		WithBaseDelay(cfg.LLMRetryBaseDelay)
}

// OpenDatabase opens and pings a Postgres handle.  The caller owns Close.
func OpenDatabase(ctx context.Context, cfg *appconfig.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: ping database: %w", err)
	}
	return db, nil
}

// ServeMetrics exposes gatherer on addr/metrics until ctx is done.  An empty
// addr disables the endpoint.  The returned function shuts the server down.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *logging.Logger) func() {
	if addr == "" {
		return func() {}
	}
	if logger == nil {
		logger = logging.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "error", err)
		}
	}()
	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop
}
