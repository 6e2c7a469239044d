package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "nerbox",
	Short: "Fine-tune transformer models for named entity recognition",
	Long: `A command line tool for running named entity recognition experiments.
Resolves named experiment configurations, launches hyperparameter trials
through an external training command, and aggregates the tracked runs into
a best-model view.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("base-dir", "", "Base directory for configs, datasets, tracking and checkpoints (overrides NERBOX_BASE_DIR)")
	rootCmd.PersistentFlags().String("tracking-uri", "", "MLflow tracking URI to mirror runs to (overrides NERBOX_TRACKING_URI)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug/info/warn/error)")
	viper.BindPFlag("base_dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	viper.BindPFlag("tracking_uri", rootCmd.PersistentFlags().Lookup("tracking-uri"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("NERBOX")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	// Set defaults
	viper.SetDefault("base_dir", "./nerbox")
	viper.SetDefault("metric", "f1")
	viper.SetDefault("device", "cpu")
	viper.SetDefault("max_concurrent", 1)
	viper.SetDefault("log_level", "info")

	if level, err := log.ParseLevel(viper.GetString("log_level")); err == nil {
		log.SetLevel(level)
	}
}
