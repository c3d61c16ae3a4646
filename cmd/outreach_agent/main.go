// Package main provides the entry point for the outreach_agent CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "outreach_agent",
	Short: "Contact form outreach automation",
	Long: `outreach_agent finds the contact page of each website in a target list and submits
a personalized message through its contact form. Results are written after every
target, so an interrupted run can be resumed by running it again.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
