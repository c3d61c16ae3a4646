package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/campaign"
	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/types"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [output.csv]",
	Short: "Print status counts of an output list",
	Long: `Prints how many targets are sent, have no contact page, failed or errored, with the
most common failure reasons. Reads the output list CSV (default: the configured
output_csv), or the database mirror when --db-url is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

var (
	summaryDatabaseURL string
	summaryRunID       string
	summaryStatus      string
)

func init() {
	summaryCmd.Flags().StringVar(&summaryDatabaseURL, "db-url", "", "Read results from this PostgreSQL mirror instead of a CSV file")
	summaryCmd.Flags().StringVar(&summaryRunID, "run-id", "", "Only count results recorded by this run")
	summaryCmd.Flags().StringVar(&summaryStatus, "status", "", "Only count results with this status (sent, no_contact_page, failed, error)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(_ *cobra.Command, args []string) error {
	var (
		records []types.ResultRecord
		source  string
		err     error
	)

	if summaryDatabaseURL != "" {
		source = "database"
		records, err = loadSummaryFromDB(summaryDatabaseURL, db.ResultFilters{RunID: summaryRunID, Status: summaryStatus})
	} else {
		source = config.Defaults().OutputCSV
		if len(args) == 1 {
			source = args[0]
		}
		records, err = loadSummaryFromCSV(source)
	}
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintRunSummary(fmt.Sprintf("%d records from %s", len(records), source), records)
	return nil
}

func loadSummaryFromCSV(path string) ([]types.ResultRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot read output list %s: %w", path, err)
	}
	records, err := campaign.ReadResults(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read output list %s: %w", path, err)
	}

	var filtered []types.ResultRecord
	for _, rec := range records {
		if summaryRunID != "" && rec.RunID != summaryRunID {
			continue
		}
		if summaryStatus != "" && string(rec.Status.Kind) != summaryStatus {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered, nil
}

func loadSummaryFromDB(databaseURL string, filters db.ResultFilters) ([]types.ResultRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	return db.NewResultStore(database).List(ctx, filters)
}
