package core

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcot/internal/observability/metrics"
	"medcot/pkg"
	"medcot/pkg/logging"
)

type memorySink struct {
	transcripts []pkg.Transcript
	err         error
}

func (s *memorySink) Append(t pkg.Transcript) error {
	if s.err != nil {
		return s.err
	}
	s.transcripts = append(s.transcripts, t)
	return nil
}

type memoryStore struct {
	saved []pkg.Transcript
	err   error
}

func (s *memoryStore) SaveTranscript(ctx context.Context, t pkg.Transcript) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, t)
	return nil
}

var headacheRecord = pkg.Record{
	Question:      "Q. What should I take for a headache?",
	PatientDetail: "I have a headache",
	DoctorReply:   "Drink water and rest",
}

func TestCoTGeneratorGenerate(t *testing.T) {
	sink := &memorySink{}
	store := &memoryStore{}
	reg := prometheus.NewRegistry()
	gen := NewCoTGenerator(newTestMachine(constantLLM("Take ibuprofen. Yes, fully resolved.")), sink, logging.Discard()).
		WithStore(store).
		WithMetrics(metrics.NewGenerationMetrics(reg))
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	gen.now = func() time.Time { return fixed }

	result, err := gen.Generate(context.Background(), headacheRecord)
	require.NoError(t, err)
	assert.Equal(t, pkg.CoTResult{
		Question: "Q. What should I take for a headache?",
		CoT:      []string{"I have a headache", "Take ibuprofen. Yes, fully resolved."},
	}, result)

	require.Len(t, sink.transcripts, 1)
	tr := sink.transcripts[0]
	assert.NotEqual(t, uuid.Nil, tr.ID)
	assert.Equal(t, headacheRecord.Question, tr.Question)
	assert.Equal(t, fixed, tr.CreatedAt)
	assert.Len(t, tr.Turns, 2)

	require.Len(t, store.saved, 1)
	assert.Equal(t, tr, store.saved[0])

	assert.Equal(t, 1, metrics.Summarize(reg).Conversations)
}

func TestCoTGeneratorWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation_log.txt")
	sink := NewFileSink(path)
	gen := NewCoTGenerator(newTestMachine(constantLLM("Rest in a dark room.")), sink, logging.Discard())

	for i := 0; i < 2; i++ {
		tr, err := gen.Simulate(context.Background(), headacheRecord)
		require.NoError(t, err)
		assert.Len(t, tr.Turns, DefaultMaxTurns)
	}

	parsed := readLog(t, path)
	require.Len(t, parsed, 2)
	for _, turns := range parsed {
		assert.Len(t, turns, DefaultMaxTurns)
		assert.Equal(t, "I have a headache", turns[0].Content)
	}
}

func TestCoTGeneratorFailures(t *testing.T) {
	t.Run("generation error leaves sink untouched", func(t *testing.T) {
		sink := &memorySink{}
		stub := &stubLLM{respond: func(string, string) (string, error) { return "", errors.New("rate limited") }}
		_, err := NewCoTGenerator(newTestMachine(stub), sink, logging.Discard()).Generate(context.Background(), headacheRecord)
		require.Error(t, err)
		assert.Empty(t, sink.transcripts)
	})

	t.Run("sink error", func(t *testing.T) {
		sink := &memorySink{err: errors.New("disk full")}
		_, err := NewCoTGenerator(newTestMachine(constantLLM("yes")), sink, logging.Discard()).Generate(context.Background(), headacheRecord)
		assert.EqualError(t, err, "disk full")
	})

	t.Run("store error", func(t *testing.T) {
		sink := &memorySink{}
		store := &memoryStore{err: errors.New("connection refused")}
		_, err := NewCoTGenerator(newTestMachine(constantLLM("yes")), sink, logging.Discard()).
			WithStore(store).
			Generate(context.Background(), headacheRecord)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "save transcript")
		assert.Len(t, sink.transcripts, 1, "log sink is written before the store")
	})
}

func TestResultFromTranscript(t *testing.T) {
	got := ResultFromTranscript(pkg.Transcript{
		Question: "q",
		Turns:    []pkg.Turn{{Role: pkg.RolePatient, Content: "p"}, {Role: pkg.RoleDoctor, Content: "d"}},
	})
	assert.Equal(t, pkg.CoTResult{Question: "q", CoT: []string{"p", "d"}}, got)
}
