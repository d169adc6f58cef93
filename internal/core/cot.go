package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"medcot/internal/observability/metrics"
	"medcot/pkg"
	"medcot/pkg/logging"
)

// TranscriptSink receives every finished conversation.
type TranscriptSink interface {
	Append(t pkg.Transcript) error
}

// TranscriptStore optionally persists finished conversations to a database.
type TranscriptStore interface {
	SaveTranscript(ctx context.Context, t pkg.Transcript) error
}

// CoTGenerator turns a Record into a simulated consultation and records the
// transcript.
type CoTGenerator struct {
	machine *Machine
	sink    TranscriptSink
	store   TranscriptStore
	metrics *metrics.GenerationMetrics
	logger  *logging.Logger
	now     func() time.Time
}

// NewCoTGenerator constructs a generator.  sink is required.
func NewCoTGenerator(machine *Machine, sink TranscriptSink, logger *logging.Logger) *CoTGenerator {
	if machine == nil {
		panic("core: cot generator requires a dialogue machine")
	}
	if sink == nil {
		panic("core: cot generator requires a transcript sink")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CoTGenerator{
		machine: machine,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// WithStore also saves each transcript through store.
func (g *CoTGenerator) WithStore(store TranscriptStore) *CoTGenerator {
	g.store = store
	return g
}

func (g *CoTGenerator) WithMetrics(m *metrics.GenerationMetrics) *CoTGenerator {
	g.metrics = m
	return g
}

// Generate runs one consultation for rec and returns the question with the
// ordered turn contents.  See Simulate for the side effects.
func (g *CoTGenerator) Generate(ctx context.Context, rec pkg.Record) (pkg.CoTResult, error) {
	transcript, err := g.Simulate(ctx, rec)
	if err != nil {
		return pkg.CoTResult{}, err
	}
	return ResultFromTranscript(transcript), nil
}

// Simulate runs one consultation for rec and appends the transcript to the
// sink (and store, when configured).  Any failure aborts this record only;
// transcripts written for earlier records are left in place.
func (g *CoTGenerator) Simulate(ctx context.Context, rec pkg.Record) (pkg.Transcript, error) {
	final, err := g.machine.Run(ctx, NewState(rec.PatientDetail, rec.DoctorReply))
	if err != nil {
		return pkg.Transcript{}, err
	}
	g.metrics.ObserveConversation(len(final.Turns), len(final.Turns) >= g.machine.MaxTurns())

	transcript := pkg.Transcript{
		ID:        uuid.New(),
		Question:  rec.Question,
		Turns:     final.Turns,
		CreatedAt: g.now().UTC(),
	}
	if err := g.sink.Append(transcript); err != nil {
		return pkg.Transcript{}, err
	}
	if g.store != nil {
		if err := g.store.SaveTranscript(ctx, transcript); err != nil {
			return pkg.Transcript{}, fmt.Errorf("core: save transcript: %w", err)
		}
	}
	g.logger.Info("transcript recorded", "transcript_id", transcript.ID.String(), "turns", len(transcript.Turns))
	return transcript, nil
}

// ResultFromTranscript keeps the question and the turn contents in order.
func ResultFromTranscript(t pkg.Transcript) pkg.CoTResult {
	cot := make([]string, 0, len(t.Turns))
	for _, turn := range t.Turns {
		cot = append(cot, turn.Content)
	}
	return pkg.CoTResult{Question: t.Question, CoT: cot}
}
