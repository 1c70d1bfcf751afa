package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polzovatel/applyagent/internal/browserdriver"
	"github.com/polzovatel/applyagent/internal/learning"
	"github.com/polzovatel/applyagent/internal/llm"
	"github.com/polzovatel/applyagent/internal/orchestrator"
	"github.com/polzovatel/applyagent/internal/profile"
	"github.com/polzovatel/applyagent/internal/session"
	"github.com/polzovatel/applyagent/internal/telemetry"
)

type cliOptions struct {
	url       string
	profile   string
	learning  string
	sessions  string
	storage   string
	headless  bool
	submit    bool
}

func main() {
	_ = godotenv.Load()
	opts := parseFlags()
	if opts.url == "" {
		log.Fatal().Msg("missing -url")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isatty.IsTerminal(os.Stderr.Fd())})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prof, err := profile.Load(opts.profile)
	if err != nil {
		log.Fatal().Err(err).Msg("load candidate profile")
	}

	store, err := learning.Open(opts.learning)
	if err != nil {
		log.Fatal().Err(err).Msg("open learning store")
	}

	llmClient, err := llm.NewClientWithLogger(log.With().Str("comp", "llm").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("llm init")
	}

	launcher, err := browserdriver.NewLauncher(opts.headless, log.With().Str("comp", "browser").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("browser init")
	}
	defer launcher.Close()

	sess, err := session.New(opts.sessions, opts.url)
	if err != nil {
		log.Fatal().Err(err).Msg("create session")
	}

	driver, err := launcher.NewDriver(opts.storage)
	if err != nil {
		log.Fatal().Err(err).Msg("new browser driver")
	}
	defer driver.Close(ctx)

	sink := telemetry.NewSink(sess.ErrorsLogPath(), sess.SuccessLogPath())
	defer sink.Close()

	orch := orchestrator.New(driver, llmClient, prof, store, sink, sess, log.With().Str("comp", "orch").Logger())

	fmt.Printf("Applying at %s (session %s)...\n", opts.url, sess.ID)
	res, err := orch.Run(ctx, opts.url, opts.submit)
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	if err := store.Export(opts.learning); err != nil {
		log.Warn().Err(err).Msg("persist learning store")
	}

	if opts.storage != "" {
		if err := driver.SaveState(ctx, opts.storage); err != nil {
			log.Warn().Err(err).Msg("save storage state")
		}
	}

	printReport(res)
	sum := store.Summarize()
	fmt.Printf("learning store: %d mappings, %d examples, %d high-confidence\n", sum.TotalMappings, sum.TotalExamples, sum.HighConfidenceCount)
}

func parseFlags() cliOptions {
	url := flag.String("url", "", "Job application URL to open")
	prof := flag.String("profile", "profile.yaml", "Path to candidate profile YAML")
	learn := flag.String("learning-store", "learning_store.json", "Path to the learning store JSON file")
	sessions := flag.String("sessions-dir", "sessions", "Directory under which per-run artifacts are written")
	storage := flag.String("storage", "", "Path to Playwright storage state (cookies/localStorage)")
	headless := flag.Bool("headless", true, "Run the browser headless")
	submit := flag.Bool("submit", false, "Click the final submit control once validation passes (default: stop short)")
	flag.Parse()
	return cliOptions{
		url:      strings.TrimSpace(*url),
		profile:  strings.TrimSpace(*prof),
		learning: strings.TrimSpace(*learn),
		sessions: strings.TrimSpace(*sessions),
		storage:  strings.TrimSpace(*storage),
		headless: *headless,
		submit:   *submit,
	}
}

func printReport(res orchestrator.Result) {
	fmt.Printf("\n=== Run report ===\n")
	fmt.Printf("final state:   %s\n", res.FinalState)
	fmt.Printf("fields filled: %d/%d (%.0f%% valid)\n", res.FieldsValid, res.FieldsTotal, res.SuccessRatio*100)
	fmt.Printf("submitted:     %v\n", res.Submitted)
	if res.AbortReason != "" {
		fmt.Printf("reason:        %s\n", res.AbortReason)
	}
}
