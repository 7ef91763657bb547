// Package main provides the resume_fitter CLI: it fits a LaTeX résumé to a page budget.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/config"
	"github.com/jonathan/resume-fitter/internal/logger"
)

var (
	configFile string

	settings = viper.New()
	cfg      *config.Config
	log      = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "resume_fitter",
	Short: "Fit a LaTeX resume to a page budget",
	Long: "resume_fitter removes the least relevant items from a compiled LaTeX resume until it fits " +
		"the target page count, or generates new items until it fills it.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = log.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML or JSON config file")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("json", false, "Log in JSON format")

	if err := settings.BindPFlag("log.debug", flags.Lookup("debug")); err != nil {
		panic(fmt.Sprintf("failed to bind debug flag: %v", err))
	}
	if err := settings.BindPFlag("log.json", flags.Lookup("json")); err != nil {
		panic(fmt.Sprintf("failed to bind json flag: %v", err))
	}
}

// setup resolves the configuration and builds the logger before any command runs.
func setup(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(settings, configFile)
	if err != nil {
		return err
	}
	cfg = loaded

	l, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log = l
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
