package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hireloop/matchengine/internal/engine"
	"github.com/hireloop/matchengine/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match <profile-id> <job-id>",
	Short: "Score one candidate profile against one job posting",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runMatch(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("output", "o", "text", "output format: text or json")
}

func runMatch(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	cat, err := loadCatalog()
	if err != nil {
		logger.Fatal("loading the catalog", zap.Error(err))
	}

	profile, err := cat.Profile(args[0])
	if err != nil {
		logger.Fatal("looking up the profile", zap.Error(err))
	}
	job, err := cat.Job(args[1])
	if err != nil {
		logger.Fatal("looking up the job", zap.Error(err))
	}

	eng, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}
	defer cleanup()

	result, err := eng.Match(ctx, profile, job)
	if err != nil {
		logger.Fatal("matching", zap.Error(err))
	}

	if cmd.Flag("output").Value.String() == "json" {
		if err := printJSON(result); err != nil {
			logger.Fatal("encoding result", zap.Error(err))
		}
		return
	}

	printMatchResult(profile, job, result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMatchResult(profile *types.Profile, job *types.JobPosting, result types.CompatibilityResult) {
	fmt.Printf("%s vs %s\n", describeProfile(profile), describeJob(job))
	fmt.Println()

	if result.InsufficientData {
		fmt.Println("Insufficient data: no configured dimension pair had vectors on both sides.")
		printMissingPairs(result.MissingPairs)
		return
	}

	fmt.Printf("Score:  %.2f\n", result.Score)
	fmt.Printf("Reason: %s\n", engine.Reason(result))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tSIMILARITY\tWEIGHT\tCONTRIBUTION")
	fmt.Fprintln(w, "----\t----------\t------\t------------")
	for _, row := range result.Breakdown {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\n", row.Pair, row.Similarity, row.Weight, row.Contribution)
	}
	w.Flush()

	printMissingPairs(result.MissingPairs)
}

func printMissingPairs(missing []types.DimensionPair) {
	if len(missing) == 0 {
		return
	}
	fmt.Println()
	for _, pair := range missing {
		fmt.Printf("Missing: %s (no vectors on one or both sides)\n", pair)
	}
}

func describeProfile(profile *types.Profile) string {
	if profile.Name != "" {
		return fmt.Sprintf("%s (%s)", profile.ID, profile.Name)
	}
	return profile.ID
}

func describeJob(job *types.JobPosting) string {
	label := job.Title
	switch {
	case label == "":
		label = job.Company
	case job.Company != "":
		label = fmt.Sprintf("%s at %s", label, job.Company)
	}
	if label != "" {
		return fmt.Sprintf("%s (%s)", job.ID, label)
	}
	return job.ID
}
