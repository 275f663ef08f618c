package cli

import (
	"os"

	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		port       string
	)

	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "quiz",
		Short:         "Multiple-choice quiz web application",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&port, "port", "", "port to listen on (overrides config)")

	cmd.AddCommand(newServeCmd(&configPath, &port))
	cmd.AddCommand(newLambdaCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newCreateStaffCmd(&configPath))
	cmd.AddCommand(newCategoryCmd(&configPath))
	cmd.AddCommand(newImportCmd(&configPath))
	return cmd
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := config.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return cfg, err
	}
	return cfg, nil
}
