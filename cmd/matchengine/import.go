package main

import (
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hireloop/matchengine/internal/catalog"
	"github.com/hireloop/matchengine/pkg/types"
)

var importCmd = &cobra.Command{
	Use:   "import <resume.pdf>",
	Short: "Bootstrap a profile YAML skeleton from a PDF resume",
	Long: `Extract the plain text of a PDF resume into a profile YAML skeleton.

The skeleton carries the resume text for provenance; skills, experience, and
goals stay empty until a human fills them in, and only those fields are ever
embedded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runImport(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().String("id", "", "profile ID (default cand-<random>)")
	importCmd.Flags().String("name", "", "candidate display name")
	importCmd.Flags().StringP("out", "O", "", "write the skeleton to a file instead of stdout")
}

func runImport(cmd *cobra.Command, args []string) {
	logger, err := buildLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	text, err := catalog.ExtractResumeText(args[0])
	if err != nil {
		logger.Fatal("extracting resume text", zap.Error(err))
	}

	id := cmd.Flag("id").Value.String()
	if id == "" {
		id = fmt.Sprintf("cand-%s", uuid.New().String()[:8])
	}

	profile := &types.Profile{
		ID:         id,
		Name:       cmd.Flag("name").Value.String(),
		ResumeText: text,
	}

	data, err := yaml.Marshal(catalog.File{Profiles: []*types.Profile{profile}})
	if err != nil {
		logger.Fatal("encoding profile skeleton", zap.Error(err))
	}

	out := cmd.Flag("out").Value.String()
	if out == "" {
		fmt.Print(string(data))
		return
	}

	if err := os.WriteFile(out, data, 0o600); err != nil {
		logger.Fatal("writing profile skeleton", zap.Error(err))
	}
	logger.Info("profile skeleton written",
		zap.String("profile", id),
		zap.String("file", out))
}
