package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questionServer(t *testing.T, reply string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"choices": []map[string]any{{"index": 0, "message": map[string]string{"role": "assistant", "content": reply}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setTestEnv(t *testing.T, baseURL string) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", baseURL+"/v1")
	t.Setenv("OPENAI_MODEL_QUESTIONS", "gpt-4o-mini")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("METRICS_ADDR", "")
}

func writeChunk(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestRunPreviewPrintsQuestions(t *testing.T) {
	var req openai.ChatCompletionRequest
	srv := questionServer(t, "What causes migraines?\n\nHow long do they last?\nAre they hereditary?\n", &req)
	setTestEnv(t, srv.URL)
	path := writeChunk(t, "Migraines are recurrent headaches.")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-chunk-file", path, "-count", "2", "-style", "simple"}, &out))

	assert.Equal(t, "1. What causes migraines?\n2. How long do they last?\n", out.String())
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Migraines are recurrent headaches.")
}

func TestRunPreviewReportsEmptyOutput(t *testing.T) {
	srv := questionServer(t, "   ", nil)
	setTestEnv(t, srv.URL)
	path := writeChunk(t, "Some text")

	err := run(context.Background(), []string{"-chunk-file", path}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestRunRejectsInvalidFlags(t *testing.T) {
	srv := questionServer(t, "unused", nil)
	setTestEnv(t, srv.URL)

	err := run(context.Background(), []string{"-style", "poetic"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown question style")

	err = run(context.Background(), []string{"-count", "0"}, &bytes.Buffer{})
	require.Error(t, err)

	err = run(context.Background(), []string{"-chunk-file", filepath.Join(t.TempDir(), "missing.txt")}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read chunk file")
}
