package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "medcot"

// GenerationMetrics exposes counters/histograms for LLM calls, simulated
// dialogues and question generation.
type GenerationMetrics struct {
	llmCalls          *prometheus.CounterVec
	llmLatency        *prometheus.HistogramVec
	conversationTurns *prometheus.HistogramVec
	chunksProcessed   *prometheus.CounterVec
	questionsStored   prometheus.Counter
}

func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	m := &GenerationMetrics{
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total text-generation calls by purpose and outcome",
		}, []string{"purpose", "status"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_latency_seconds",
			Help:      "Latency of text-generation calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"purpose"}),
		conversationTurns: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dialogue",
			Name:      "turns",
			Help:      "Turn count of finished conversations",
			Buckets:   []float64{2, 4, 6, 8, 10, 12},
		}, []string{"forced"}),
		chunksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "chunks_total",
			Help:      "Chunks processed by the question pipeline",
		}, []string{"status"}),
		questionsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "questions",
			Name:      "stored_total",
			Help:      "Questions written to storage",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.llmCalls, m.llmLatency, m.conversationTurns, m.chunksProcessed, m.questionsStored)
	return m
}

func (m *GenerationMetrics) ObserveLLMCall(purpose string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmCalls.WithLabelValues(purpose, status).Inc()
	m.llmLatency.WithLabelValues(purpose).Observe(seconds)
}

func (m *GenerationMetrics) ObserveConversation(turns int, forced bool) {
	if m == nil {
		return
	}
	label := "false"
	if forced {
		label = "true"
	}
	m.conversationTurns.WithLabelValues(label).Observe(float64(turns))
}

func (m *GenerationMetrics) ObserveChunk(questions int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.chunksProcessed.WithLabelValues("error").Inc()
		return
	}
	m.chunksProcessed.WithLabelValues("ok").Inc()
	m.questionsStored.Add(float64(questions))
}

// RunSummary is a point-in-time digest of the generation metrics, logged
// when a command finishes.
type RunSummary struct {
	LLMCalls        int
	LLMFailures     int
	Conversations   int
	ChunksProcessed int
	ChunksFailed    int
	QuestionsStored int
}

// Summarize reads the medcot metric families from gatherer.
func Summarize(gatherer prometheus.Gatherer) RunSummary {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	var out RunSummary
	mfs, err := gatherer.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		switch mf.GetName() {
		case namespace + "_llm_calls_total":
			for _, metric := range mf.GetMetric() {
				n := int(metric.GetCounter().GetValue())
				out.LLMCalls += n
				if hasLabel(metric, "status", "error") {
					out.LLMFailures += n
				}
			}
		case namespace + "_dialogue_turns":
			for _, metric := range mf.GetMetric() {
				out.Conversations += int(metric.GetHistogram().GetSampleCount())
			}
		case namespace + "_questions_chunks_total":
			for _, metric := range mf.GetMetric() {
				n := int(metric.GetCounter().GetValue())
				if hasLabel(metric, "status", "error") {
					out.ChunksFailed += n
				} else {
					out.ChunksProcessed += n
				}
			}
		case namespace + "_questions_stored_total":
			for _, metric := range mf.GetMetric() {
				out.QuestionsStored += int(metric.GetCounter().GetValue())
			}
		}
	}
	return out
}

func hasLabel(metric *dto.Metric, name, value string) bool {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}
