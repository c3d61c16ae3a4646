package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/crawling"
	"github.com/jonathan/outreach-agent/internal/forms"
	"github.com/jonathan/outreach-agent/internal/ingestion"
	"github.com/jonathan/outreach-agent/internal/observability"
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Find a site's contact form and show its field mapping without submitting",
	Long: `Runs contact page discovery and field mapping for a single website and prints what
would be filled. Nothing is submitted and no result is recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

var probeFlags configFlags

func init() {
	probeFlags.register(probeCmd)
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	site, err := ingestion.NormalizeTargetURL(args[0])
	if err != nil {
		return err
	}

	cfg, err := probeFlags.resolve(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := observability.NewLogger(cfg.Verbose, cfg.LogDir)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.TargetTimeout())
	defer cancel()

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

	found, err := crawling.NewFinder(session, cfg.CustomContactPatterns, cfg.CustomLinkTextPatterns, logger).Find(ctx, site)
	if err != nil {
		return fmt.Errorf("contact page discovery failed: %w", err)
	}

	printer := observability.NewPrinter(os.Stdout)
	if found == nil {
		printer.PrintProbe(site, nil, nil, nil)
		return nil
	}

	mapping := forms.NewMapper(fallback, cfg.FallbackTimeout(), logger).Map(ctx, found.Form)
	printer.PrintProbe(site, &found.Candidate, found.Form, &mapping)
	return nil
}
