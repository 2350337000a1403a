package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hireloop/matchengine/internal/catalog"
	"github.com/hireloop/matchengine/internal/config"
	"github.com/hireloop/matchengine/internal/engine"
	"github.com/hireloop/matchengine/pkg/types"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank catalog entities by compatibility",
}

var rankJobsCmd = &cobra.Command{
	Use:   "jobs <profile-id>",
	Short: "Rank catalog jobs for a candidate profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRank(cmd, args[0], true)
	},
}

var rankCandidatesCmd = &cobra.Command{
	Use:   "candidates <job-id>",
	Short: "Rank catalog candidates for a job posting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runRank(cmd, args[0], false)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.AddCommand(rankJobsCmd, rankCandidatesCmd)

	rankCmd.PersistentFlags().IntP("top-k", "k", 0, "maximum results (default from config)")
	rankCmd.PersistentFlags().Float64P("min-score", "m", 0, "score floor (default from config)")
	rankCmd.PersistentFlags().Bool("recommend", false, "use the stricter recommendation preset (top 10, floor 0.7)")
	rankCmd.PersistentFlags().StringP("output", "o", "text", "output format: text or json")
}

func runRank(cmd *cobra.Command, anchorID string, rankingJobs bool) {
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

	eng, cleanup, err := buildEngine(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building the engine", zap.Error(err))
	}
	defer cleanup()

	opts := rankOptions(cmd, cfg)

	var matches []types.Match
	if rankingJobs {
		profile, lookupErr := cat.Profile(anchorID)
		if lookupErr != nil {
			logger.Fatal("looking up the profile", zap.Error(lookupErr))
		}
		matches, err = eng.RankJobs(ctx, profile, cat.Jobs(), opts)
	} else {
		job, lookupErr := cat.Job(anchorID)
		if lookupErr != nil {
			logger.Fatal("looking up the job", zap.Error(lookupErr))
		}
		matches, err = eng.RankProfiles(ctx, job, cat.Profiles(), opts)
	}
	if err != nil {
		logger.Fatal("ranking", zap.Error(err))
	}

	if cmd.Flag("output").Value.String() == "json" {
		if err := printJSON(matches); err != nil {
			logger.Fatal("encoding matches", zap.Error(err))
		}
		return
	}

	printMatches(cat, matches, rankingJobs)
}

// rankOptions layers config defaults, the recommend preset, and explicit
// flags, in that order.
func rankOptions(cmd *cobra.Command, cfg *config.Config) engine.RankOptions {
	opts := engine.RankOptions{
		TopK:     cfg.Matching.TopK,
		MinScore: cfg.Matching.MinScore,
	}
	if recommend, _ := cmd.Flags().GetBool("recommend"); recommend {
		opts = engine.RecommendOptions()
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	if cmd.Flags().Changed("min-score") {
		opts.MinScore, _ = cmd.Flags().GetFloat64("min-score")
	}
	return opts
}

func printMatches(cat *catalog.Catalog, matches []types.Match, rankingJobs bool) {
	if len(matches) == 0 {
		fmt.Println("No matches at or above the score floor.")
		return
	}

	label := "JOB"
	if !rankingJobs {
		label = "CANDIDATE"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\t%s\tSCORE\tREASON\n", label)
	fmt.Fprintln(w, "----\t---\t-----\t------")
	for i, match := range matches {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			i+1, matchLabel(cat, match.CandidateID, rankingJobs), scoreCell(match.Result), engine.Reason(match.Result))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d\n", len(matches))
}

// matchLabel decorates a candidate ID with its catalog display name.
func matchLabel(cat *catalog.Catalog, id string, rankingJobs bool) string {
	if rankingJobs {
		if job, err := cat.Job(id); err == nil && job.Title != "" {
			return fmt.Sprintf("%s (%s)", id, job.Title)
		}
		return id
	}
	if profile, err := cat.Profile(id); err == nil && profile.Name != "" {
		return fmt.Sprintf("%s (%s)", id, profile.Name)
	}
	return id
}

func scoreCell(result types.CompatibilityResult) string {
	if result.InsufficientData {
		return "-"
	}
	return fmt.Sprintf("%.2f", result.Score)
}
