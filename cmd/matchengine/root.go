package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hireloop/matchengine/internal/config"
)

const app = "matchengine"

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchengine scores semantic compatibility between candidate profiles and job postings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("logging.debug", "MATCHENGINE_LOG_DEBUG"); err != nil {
		log.Fatalf("binding MATCHENGINE_LOG_DEBUG environment variable: %v", err)
	}
	if err := viper.BindEnv("logging.json", "MATCHENGINE_LOG_JSON"); err != nil {
		log.Fatalf("binding MATCHENGINE_LOG_JSON environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchengine.yaml in current directory)")
	rootCmd.PersistentFlags().StringP("catalog", "c", "catalog", "catalog file or directory of profile/job YAML")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	if err := viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog")); err != nil {
		log.Fatalf("binding catalog flag: %v", err)
	}
	if err := viper.BindPFlag("logging.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		log.Fatalf("binding debug flag: %v", err)
	}
	if err := viper.BindPFlag("logging.json", rootCmd.PersistentFlags().Lookup("json")); err != nil {
		log.Fatalf("binding json flag: %v", err)
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A config file is optional: environment variables and defaults cover
	// everything. An explicitly named file must exist.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// getConfig layers the viper-managed config file and bound flags over the
// environment-derived defaults.
func getConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
