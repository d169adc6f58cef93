package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"medcot/internal/app/bootstrap"
	"medcot/internal/config"
	"medcot/internal/core"
	"medcot/internal/db"
	"medcot/internal/observability/metrics"
	"medcot/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		log.Fatalf("questiongen: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("questiongen", flag.ContinueOnError)
	chunkFile := fs.String("chunk-file", "", "generate questions for one text file and print them; the database is not used")
	count := fs.Int("count", cfg.QuestionCount, "questions requested per chunk")
	styleFlag := fs.String("style", cfg.QuestionStyle, "question prompt: advanced or simple")
	migrate := fs.Bool("migrate", false, "apply the embedded schema before generating")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count <= 0 {
		return errors.New("-count must be positive")
	}
	style, err := core.ParseQuestionStyle(*styleFlag)
	if err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg)
	reg := prometheus.NewRegistry()
	m := metrics.NewGenerationMetrics(reg)
	stopMetrics := bootstrap.ServeMetrics(ctx, cfg.MetricsAddr, reg, logger)
	defer stopMetrics()

	client := bootstrap.BuildLLMClient(cfg, cfg.QuestionModel, m, logger)
	gen := core.NewQuestionGenerator(client, logger).WithCount(*count).WithStyle(style)

	if *chunkFile != "" {
		return preview(ctx, gen, *chunkFile, stdout)
	}

	conn, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	if *migrate {
		if err := db.Migrate(ctx, conn); err != nil {
			return err
		}
	}

	pipeline := core.NewPipeline(db.NewRepository(conn), gen, logger).
		WithTables(cfg.ChunkTable, cfg.QuestionTable).
		WithMetrics(m)
	if cfg.QuestionsNotifyChannel != "" {
		pipeline.WithNotifier(db.NewNotifier(conn, cfg.QuestionsNotifyChannel))
	}

	stats, err := pipeline.Run(ctx)
	logSummary(logger, reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Stored %d questions for %d chunks (%d under-filled)\n", stats.Questions, stats.Chunks, stats.Underfilled)
	return nil
}

func preview(ctx context.Context, gen *core.QuestionGenerator, path string, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read chunk file: %w", err)
	}
	questions, err := gen.Generate(ctx, string(data))
	if err != nil {
		return err
	}
	for i, q := range questions {
		fmt.Fprintf(stdout, "%d. %s\n", i+1, q)
	}
	return nil
}

func logSummary(logger *logging.Logger, reg prometheus.Gatherer) {
	summary := metrics.Summarize(reg)
	logger.Info("question generation summary",
		"llm_calls", summary.LLMCalls,
		"llm_failures", summary.LLMFailures,
		"chunks_processed", summary.ChunksProcessed,
		"chunks_failed", summary.ChunksFailed,
		"questions_stored", summary.QuestionsStored,
	)
}
