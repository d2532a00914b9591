package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"go-mas/internal/config"
	"go-mas/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mas",
	Short: "Blackboard multi-agent question answering",
	Long: `mas answers a question with a fixed pipeline of agents sharing a blackboard:
a planner classifies the question, a retriever searches the web when the plan needs
evidence, and a reasoner writes the answer. The answer is checked against the plan's
constraints before it is written to the output file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env is fine, the environment may already be set
		_ = godotenv.Load()

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if err := logger.NewGlobal(cfg.Log.Level, cfg.Log.Pretty, cfg.Log.File); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
