package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/campaign"
	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/crawling"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/forms"
	"github.com/jonathan/outreach-agent/internal/ingestion"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/submission"
	"github.com/jonathan/outreach-agent/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Contact every target in the input list",
	Long: `Processes the input list one target at a time: finds a contact page, maps its form
fields, submits the message and records the outcome in the output list.

Targets already recorded as sent are skipped, so rerunning after an interruption
or failure only retries what did not go through. Configuration can be loaded from
a JSON or YAML file using --config. Command-line arguments override config file values.`,
	Args: cobra.NoArgs,
	RunE: runCampaignCmd,
}

var runFlags configFlags

func init() {
	runFlags.register(runCommand)
	rootCmd.AddCommand(runCommand)
}

func runCampaignCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := runFlags.resolve(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := observability.NewLogger(cfg.Verbose, cfg.LogDir)
	if err != nil {
		return err
	}
	defer closeLog()

	targets, err := ingestion.ReadTargets(cfg.InputCSV)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets in %s", cfg.InputCSV)
	}

	// Interrupts stop the run after the in-flight target is recorded.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New()
	logger = logger.With(zap.String("run_id", runID.String()))
	logger.Info("Starting run",
		zap.String("input", cfg.InputCSV), zap.String("output", cfg.OutputCSV), zap.Int("targets", len(targets)))

	var store campaign.Store = campaign.NewCSVStore(cfg.OutputCSV, logger)
	database := connectMirror(ctx, cfg, runID, logger)
	if database != nil {
		defer database.Close()
		store = campaign.NewTeeStore(store, logger, db.NewResultStore(database))
	}

	session, err := newSession(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	fallback, closeFallback, err := newFallback(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFallback()

	pipeline := campaign.NewPipeline(
		crawling.NewFinder(session, cfg.CustomContactPatterns, cfg.CustomLinkTextPatterns, logger),
		forms.NewMapper(fallback, cfg.FallbackTimeout(), logger),
		submission.NewExecutor(session, cfg.VerificationWindow(), cfg.ConfirmationPhrases, logger),
		campaign.Sender{
			Name:    cfg.SenderName,
			Email:   cfg.SenderEmail,
			Phone:   cfg.SenderPhone,
			Message: cfg.RenderMessage,
		},
		logger,
	)

	minDelay, maxDelay := cfg.DelayRange()
	runner := campaign.NewRunner(pipeline, store, campaign.RunnerOptions{
		RunID:         runID.String(),
		TargetTimeout: cfg.TargetTimeout(),
		MinDelay:      minDelay,
		MaxDelay:      maxDelay,
		OnProgress:    printProgress,
	}, logger)

	summary, runErr := runner.Run(ctx, targets)

	observability.NewPrinter(os.Stdout).PrintRunSummary("Run "+runID.String(), summary.Records)
	completeRun(database, runID, summary, runErr, logger)

	switch {
	case runErr == nil:
		_, _ = fmt.Fprintf(os.Stdout, "Results saved to %s\n", cfg.OutputCSV)
		return nil
	case errors.Is(runErr, context.Canceled):
		_, _ = fmt.Fprintf(os.Stdout, "Interrupted after %d targets; progress saved to %s. Run again to resume.\n",
			summary.Processed, cfg.OutputCSV)
		return nil
	default:
		return runErr
	}
}

// connectMirror opens the optional database mirror. A mirror that cannot be
// reached is reported and skipped; the CSV output list stays authoritative.
func connectMirror(ctx context.Context, cfg config.Config, runID uuid.UUID, logger *zap.Logger) *db.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	database, err := db.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("Database mirror unavailable, continuing with CSV only", zap.Error(err))
		return nil
	}
	if err := database.EnsureSchema(connectCtx); err != nil {
		logger.Warn("Database mirror schema setup failed, continuing with CSV only", zap.Error(err))
		database.Close()
		return nil
	}
	if err := database.CreateRun(connectCtx, runID, cfg.InputCSV); err != nil {
		logger.Warn("Failed to record run in database", zap.Error(err))
	}
	return database
}

func completeRun(database *db.DB, runID uuid.UUID, summary *campaign.Summary, runErr error, logger *zap.Logger) {
	if database == nil {
		return
	}
	status := db.RunStatusCompleted
	switch {
	case errors.Is(runErr, context.Canceled):
		status = db.RunStatusInterrupted
	case runErr != nil:
		status = db.RunStatusFailed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sent := summary.Counts()[types.StatusSent]
	if err := database.CompleteRun(ctx, runID, status, summary.Processed, sent); err != nil {
		logger.Warn("Failed to complete run in database", zap.Error(err))
	}
}

func printProgress(event campaign.ProgressEvent) {
	rec := event.Record
	name := rec.DisplayName
	if name == "" {
		name = rec.URL
	}
	_, _ = fmt.Fprintf(os.Stdout, "[%d/%d] %s: %s\n", event.Index, event.Total, name, rec.Status)
}
