// Package main implements diagnosisctl, an offline companion to the diagnosis-engine server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/diagnosis-engine/internal/catalog"
	"github.com/terra-clan/diagnosis-engine/internal/models"
	"github.com/terra-clan/diagnosis-engine/internal/scoring"
	"github.com/terra-clan/diagnosis-engine/internal/tasks"
	"github.com/terra-clan/diagnosis-engine/pkg/client"
)

var (
	// serverURL is the base URL for the diagnosis-engine HTTP server
	serverURL string
	// catalogDir is the question catalog used by offline commands
	catalogDir string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "diagnosisctl",
	Short: "Catalog and scoring tools for diagnosis-engine",
	Long: `diagnosisctl validates question catalogs, scores answer files offline
and checks a running diagnosis-engine server.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "diagnosis-engine server URL")
	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog", "./catalog", "question catalog directory")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(healthCmd)
}

// validateCmd checks every block file of a catalog
var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a question catalog",
	Long: `Parse and validate every YAML block file of a catalog directory.

Examples:
  # Validate the default catalog
  diagnosisctl validate

  # Validate another directory
  diagnosisctl validate ./catalog-staging`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

// scoreCmd scores an answers file without a server
var scoreCmd = &cobra.Command{
	Use:   "score <answers.json>",
	Short: "Score an answers file offline",
	Long: `Score answers against the catalog and print block efficiencies and tasks.

The answers file maps block ids to {questionId: optionId} objects:
  {"finance": {"finance_food_cost": "finance_food_cost_never"}}

Examples:
  diagnosisctl score answers.json
  diagnosisctl score --catalog ./catalog answers.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check diagnosis-engine server health",
	RunE:  runHealth,
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := catalogDir
	if len(args) == 1 {
		dir = args[0]
	}

	files, err := catalog.Files(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no block files found in %s", dir)
	}

	loader := catalog.NewLoader()
	failed := 0
	for _, file := range files {
		if err := loader.LoadFromFile(file); err != nil {
			cmd.Printf("FAIL %s: %v\n", file, err)
			failed++
			continue
		}
		cmd.Printf("ok   %s\n", file)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d block files are invalid", failed, len(files))
	}
	cmd.Printf("%d blocks valid\n", len(loader.Blocks()))
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read answers: %w", err)
	}

	var answers map[string]models.Answers
	if err := json.Unmarshal(data, &answers); err != nil {
		return fmt.Errorf("failed to parse answers: %w", err)
	}

	loader := catalog.NewLoader()
	if err := loader.LoadFromDir(catalogDir); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BLOCK\tANSWERED\tEFFICIENCY\tTALLY")

	var states []models.BlockState
	var report []models.Task
	for _, block := range loader.Blocks() {
		blockAnswers := answers[block.ID]
		graded, ok := scoring.ScoreBlock(block, blockAnswers, scoring.ModeGraded)
		tally, _ := scoring.ScoreBlock(block, blockAnswers, scoring.ModeTally)

		overlay := models.BlockOverlay{Completed: graded.Completed, Answered: graded.Answered}
		efficiency := "-"
		if ok {
			overlay.Efficiency = &graded.Efficiency
			efficiency = fmt.Sprintf("%d%%", graded.Efficiency)
		}
		states = append(states, models.MergeBlock(block, overlay))

		fmt.Fprintf(w, "%s\t%d/%d\t%s\t%d/%d\n", block.ID, graded.Answered, graded.Total, efficiency, tally.Correct, tally.Total)

		report = append(report, tasks.Allocate(block.ID, graded.Efficiency, tasks.Generate(block, blockAnswers))...)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("\nOverall efficiency: %d%%\n", scoring.OverallEfficiency(states))

	if len(report) == 0 {
		return nil
	}

	cmd.Println()
	w = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tPRIORITY\tGAIN\tTITLE")
	for _, t := range report {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Priority, t.GainLabel, t.Title)
	}
	return w.Flush()
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	if err := client.NewClient(serverURL).Health(ctx); err != nil {
		return fmt.Errorf("server unhealthy: %w", err)
	}
	cmd.Printf("%s is healthy\n", serverURL)
	return nil
}
