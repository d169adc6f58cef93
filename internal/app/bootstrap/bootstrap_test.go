package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "medcot/internal/config"
	"medcot/internal/llm"
	"medcot/internal/observability/metrics"
	"medcot/pkg/logging"
)

func TestBuildLLMClientRetriesAndCounts(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Rest."}}]}`))
	}))
	defer srv.Close()

	cfg := &appconfig.Config{
		OpenAIAPIKey:      "test-key",
		OpenAIBaseURL:     srv.URL + "/v1",
		Temperature:       0.7,
		LLMTimeout:        5 * time.Second,
		LLMMaxAttempts:    2,
		LLMRetryBaseDelay: time.Millisecond,
	}
	reg := prometheus.NewRegistry()
	client := BuildLLMClient(cfg, "gpt-4o", metrics.NewGenerationMetrics(reg), logging.Discard())

	out, err := client.Generate(llm.WithPurpose(context.Background(), "doctor"), "headache")
	require.NoError(t, err)
	assert.Equal(t, "Rest.", out)
	assert.Equal(t, 2, calls)

	summary := metrics.Summarize(reg)
	assert.Equal(t, 2, summary.LLMCalls)
	assert.Equal(t, 1, summary.LLMFailures)
}

func TestServeMetricsDisabled(t *testing.T) {
	stop := ServeMetrics(context.Background(), "", prometheus.NewRegistry(), logging.Discard())
	stop()
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&appconfig.Config{LogLevel: "debug", LogFormat: "text"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
