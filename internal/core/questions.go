package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"medcot/internal/llm"
	"medcot/internal/observability/metrics"
	"medcot/pkg"
	"medcot/pkg/logging"
)

// DefaultQuestionCount is the number of questions requested per chunk.
const DefaultQuestionCount = 5

// QuestionStyle selects the question prompt.
type QuestionStyle string

const (
	QuestionStyleAdvanced QuestionStyle = "advanced"
	QuestionStyleSimple   QuestionStyle = "simple"
)

// ParseQuestionStyle accepts "advanced", "simple" or "" (advanced).
func ParseQuestionStyle(s string) (QuestionStyle, error) {
	switch QuestionStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", QuestionStyleAdvanced:
		return QuestionStyleAdvanced, nil
	case QuestionStyleSimple:
		return QuestionStyleSimple, nil
	}
	return "", fmt.Errorf("core: unknown question style %q", s)
}

// QuestionGenerator asks the model for a fixed number of questions about a
// chunk of text.
type QuestionGenerator struct {
	llm    llm.Client
	count  int
	style  QuestionStyle
	logger *logging.Logger
}

func NewQuestionGenerator(client llm.Client, logger *logging.Logger) *QuestionGenerator {
	if client == nil {
		panic("core: question generator llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &QuestionGenerator{
		llm:    client,
		count:  DefaultQuestionCount,
		style:  QuestionStyleAdvanced,
		logger: logger,
	}
}

func (g *QuestionGenerator) WithCount(n int) *QuestionGenerator {
	if n > 0 {
		g.count = n
	}
	return g
}

func (g *QuestionGenerator) WithStyle(style QuestionStyle) *QuestionGenerator {
	if style != "" {
		g.style = style
	}
	return g
}

// Count reports how many questions are requested per chunk.
func (g *QuestionGenerator) Count() int { return g.count }

// Prompt renders the instruction for text.
func (g *QuestionGenerator) Prompt(text string) string {
	tmpl := AdvancedQuestionsPrompt
	if g.style == QuestionStyleSimple {
		tmpl = SimpleQuestionsPrompt
	}
	return fmt.Sprintf(tmpl, g.count, g.count, text)
}

// Generate returns at most Count questions for text.  Fewer questions are
// returned without error when the model produces fewer non-empty lines.
// An empty text still results in a request.
func (g *QuestionGenerator) Generate(ctx context.Context, text string) ([]string, error) {
	out, err := g.llm.Chat(llm.WithPurpose(ctx, "questions"), []llm.Message{
		{Role: "user", Content: g.Prompt(text)},
	})
	if err != nil {
		return nil, fmt.Errorf("core: generate questions: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return nil, fmt.Errorf("core: generate questions: %w", llm.ErrEmptyCompletion)
	}
	return splitQuestions(out, g.count), nil
}

// splitQuestions trims every line, drops blank ones and keeps the first
// limit.
func splitQuestions(output string, limit int) []string {
	var questions []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		questions = append(questions, line)
		if len(questions) == limit {
			break
		}
	}
	return questions
}

// ChunkStore is the storage the question pipeline reads from and writes to.
type ChunkStore interface {
	FetchChunks(ctx context.Context, table string) ([]pkg.Chunk, error)
	InsertQuestion(ctx context.Context, table string, q pkg.GeneratedQuestion) error
}

// ChunkNotifier announces chunks whose questions have been stored.
type ChunkNotifier interface {
	Notify(ctx context.Context, payload string) error
}

// PipelineStats summarises one pipeline run.
type PipelineStats struct {
	Chunks      int
	Questions   int
	Underfilled int
}

// Pipeline reads every chunk, generates questions for it and stores each
// question as its own row, one chunk at a time.
type Pipeline struct {
	store         ChunkStore
	generator     *QuestionGenerator
	chunkTable    string
	questionTable string
	notifier      ChunkNotifier
	metrics       *metrics.GenerationMetrics
	logger        *logging.Logger
}

func NewPipeline(store ChunkStore, generator *QuestionGenerator, logger *logging.Logger) *Pipeline {
	if store == nil {
		panic("core: pipeline requires a chunk store")
	}
	if generator == nil {
		panic("core: pipeline requires a question generator")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		store:         store,
		generator:     generator,
		chunkTable:    "chunks",
		questionTable: "generated_questions",
		logger:        logger,
	}
}

// WithTables overrides the source and destination tables.  Empty names keep
// the defaults.
func (p *Pipeline) WithTables(chunkTable, questionTable string) *Pipeline {
	if strings.TrimSpace(chunkTable) != "" {
		p.chunkTable = chunkTable
	}
	if strings.TrimSpace(questionTable) != "" {
		p.questionTable = questionTable
	}
	return p
}

func (p *Pipeline) WithNotifier(n ChunkNotifier) *Pipeline {
	p.notifier = n
	return p
}

func (p *Pipeline) WithMetrics(m *metrics.GenerationMetrics) *Pipeline {
	p.metrics = m
	return p
}

// Run processes every chunk in order.  The first generation or storage
// error stops the run; questions stored for earlier chunks are kept.
func (p *Pipeline) Run(ctx context.Context) (PipelineStats, error) {
	var stats PipelineStats
	chunks, err := p.store.FetchChunks(ctx, p.chunkTable)
	if err != nil {
		return stats, fmt.Errorf("core: fetch chunks: %w", err)
	}
	p.logger.Info("chunks loaded", "table", p.chunkTable, "count", len(chunks))

	for _, chunk := range chunks {
		n, err := p.processChunk(ctx, chunk)
		p.metrics.ObserveChunk(n, err)
		if err != nil {
			return stats, err
		}
		stats.Chunks++
		stats.Questions += n
		if n < p.generator.Count() {
			stats.Underfilled++
		}
	}
	p.logger.Info("question pipeline finished",
		"chunks", stats.Chunks,
		"questions", stats.Questions,
		"underfilled", stats.Underfilled,
	)
	return stats, nil
}

func (p *Pipeline) processChunk(ctx context.Context, chunk pkg.Chunk) (int, error) {
	questions, err := p.generator.Generate(ctx, chunk.Text)
	if err != nil {
		return 0, fmt.Errorf("core: chunk %d: %w", chunk.ID, err)
	}
	if len(questions) < p.generator.Count() {
		p.logger.Warn("fewer questions than requested",
			"chunk_id", chunk.ID,
			"requested", p.generator.Count(),
			"received", len(questions),
		)
	}
	for _, q := range questions {
		if err := p.store.InsertQuestion(ctx, p.questionTable, pkg.GeneratedQuestion{ChunkID: chunk.ID, Question: q}); err != nil {
			return 0, fmt.Errorf("core: chunk %d: insert question: %w", chunk.ID, err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, strconv.FormatInt(chunk.ID, 10)); err != nil {
			return 0, fmt.Errorf("core: chunk %d: notify: %w", chunk.ID, err)
		}
	}
	p.logger.Info("chunk processed", "chunk_id", chunk.ID, "questions", len(questions))
	return len(questions), nil
}
