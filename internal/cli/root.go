// Package cli defines the psicoflow command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/psicoflow/internal/config"
)

// Version is injected at build time via -ldflags.
var Version = "dev"

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "psicoflow",
		Short: "Mental-health screening intake assistant",
		Long: `PsicoFlow guides a student through a screening conversation:
personal data, a short free-text check-in, the PHQ-9 and GAD-7
questionnaires and scheduling, then submits the result to the
psychology team's backend.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("config", "", "Path to a YAML config file (overrides INTAKE_CONFIG_FILE)")
	cmd.PersistentFlags().String("env-file", ".env", "Path to a .env file")

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewConsoleCommand())
	return cmd
}

// loadConfig loads the .env file and the layered configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil {
		slog.Info("No .env file found, using environment variables", "path", envFile)
	}
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if err := os.Setenv("INTAKE_CONFIG_FILE", path); err != nil {
			return nil, fmt.Errorf("set config path: %w", err)
		}
	}
	return config.Load()
}
