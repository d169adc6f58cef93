package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestGenerationMetricsNilSafe(t *testing.T) {
	var m *GenerationMetrics
	m.ObserveLLMCall("doctor", nil, 0.1)
	m.ObserveConversation(4, false)
	m.ObserveChunk(5, nil)
}

func TestSummarize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGenerationMetrics(reg)

	m.ObserveLLMCall("patient", nil, 0.2)
	m.ObserveLLMCall("doctor", nil, 0.4)
	m.ObserveLLMCall("resolution", errors.New("timeout"), 1.0)
	m.ObserveConversation(8, true)
	m.ObserveConversation(2, false)
	m.ObserveChunk(5, nil)
	m.ObserveChunk(3, nil)
	m.ObserveChunk(0, errors.New("insert failed"))

	got := Summarize(reg)
	assert.Equal(t, RunSummary{
		LLMCalls:        3,
		LLMFailures:     1,
		Conversations:   2,
		ChunksProcessed: 2,
		ChunksFailed:    1,
		QuestionsStored: 8,
	}, got)
}

func TestSummarizeEmptyRegistry(t *testing.T) {
	assert.Equal(t, RunSummary{}, Summarize(prometheus.NewRegistry()))
}
