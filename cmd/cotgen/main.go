package main

import (
	"context"
	"encoding/json"
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
	"medcot/pkg"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		log.Fatalf("cotgen: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg := config.Load()

	fs := flag.NewFlagSet("cotgen", flag.ContinueOnError)
	inputPath := fs.String("input", "", "JSON file with {question, patient_detail, doctor_reply}; the built-in sample is used when empty")
	logPath := fs.String("log", cfg.ConversationLogPath, "conversation log file (appended)")
	maxTurns := fs.Int("max-turns", cfg.MaxTurns, "hard ceiling on turns per conversation")
	persist := fs.Bool("persist", cfg.PersistTranscripts, "also store the transcript in Postgres")
	migrate := fs.Bool("migrate", false, "apply the embedded schema before storing (requires -persist)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := bootstrap.NewLogger(cfg)
	reg := prometheus.NewRegistry()
	m := metrics.NewGenerationMetrics(reg)
	stopMetrics := bootstrap.ServeMetrics(ctx, cfg.MetricsAddr, reg, logger)
	defer stopMetrics()

	record := sampleRecord()
	if *inputPath != "" {
		var err error
		if record, err = loadRecord(*inputPath); err != nil {
			return err
		}
	}

	client := bootstrap.BuildLLMClient(cfg, cfg.ChatModel, m, logger)
	machine := core.NewMachine(client, logger).WithMaxTurns(*maxTurns)
	sink := core.NewFileSink(*logPath)
	generator := core.NewCoTGenerator(machine, sink, logger).WithMetrics(m)

	if *persist {
		dbConn, err := bootstrap.OpenDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()
		if *migrate {
			if err := db.Migrate(ctx, dbConn); err != nil {
				return err
			}
		}
		generator.WithStore(db.NewRepository(dbConn))
	}

	transcript, err := generator.Simulate(ctx, record)
	if err != nil {
		return err
	}
	result := core.ResultFromTranscript(transcript)

	fmt.Fprintln(stdout, "Generated COT:")
	for _, turn := range transcript.Turns {
		fmt.Fprintf(stdout, "%s: %s\n", turn.Role.Label(), turn.Content)
	}
	fmt.Fprintf(stdout, "\nConversation stored in '%s'\n", sink.Path())

	summary := metrics.Summarize(reg)
	logger.Info("cot generation finished",
		"question", result.Question,
		"turns", len(result.CoT),
		"llm_calls", summary.LLMCalls,
		"llm_failures", summary.LLMFailures,
	)
	return nil
}

func loadRecord(path string) (pkg.Record, error) {
	var rec pkg.Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read input: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode input: %w", err)
	}
	return rec, nil
}

// sampleRecord is the work item used when no -input file is given.
func sampleRecord() pkg.Record {
	return pkg.Record{
		Question:      "Q. Kindly suggest a homeopathic medicine to stop hairfall and promote hair growth.",
		PatientDetail: samplePatientDetail,
		DoctorReply:   sampleDoctorReply,
	}
}

const samplePatientDetail = `Hello doctor,
I am 24 years old, and for the past nine years, I am facing hair fall problem. Nowadays, my 60 % of hair is falling on my top and front of my head. I checked my thyroid and hemoglobin many times, but their reports are good. I use many home remedies and hair oils, but when I stop using it, again, it starts falling. The allopathic doctor says use Minoxidil 5 %, Finasteride, and hair serum. But Finasteride has many side effects. Can you please tell me is any medicine available in homeopathy which stops hair fall and promotes hair growth? If yes, can you please tell me the name?`

const sampleDoctorReply = `Hello. I checked the attached photo (attachment removed to protect patient identity) and read your description. It seems you have been suffering from hair loss problem for a longtime. Do you eat healthy food like vegetables and fruits every day? Sometimes lack of nutrition is also the reason for hair loss. Do you know if your father also differed from hair loss issue at this young age? Did you suffer from severe health issues or chronic illnesses? If you do not think above mentioned is the cause for your hair fall, then the only reason I can think is that you have been going through severe stress which has taken a toll on your health. Homeopathy would be a good option in this case as it will cure our problem from the root cause, and there will be no side effects. So to prescribe you a correct homeopathic remedy I need to understand your mental, emotional, and physical state. He ce I need detail case history which can be done either through face to face consultation or online consultation. I would advise you to visit a good homeopath for consultation. For the time being, you can apply arnica hair oil twice a week on your hair. Just mix one spoon of Arnica oil with five spoons of coconut oil and apply all over your scalp. You can gently massage your ear with this mixture. Try this for 15 days and then let me know how you feel. I hope you start feeling better. Let me know if you have any questions.
`
