package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashureev/psicoflow/internal/console"
)

// NewConsoleCommand creates the console subcommand.
func NewConsoleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run the screening conversation in the terminal",
		RunE:  runConsole,
	}
	cmd.Flags().String("user", "console", "User ID for the conversation")
	return cmd
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// Keep the terminal for the conversation.
	cfg.Log.Stdout = false

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	userID, _ := cmd.Flags().GetString("user")
	return console.New(a.engine, userID, os.Stdin, os.Stdout).Run(ctx)
}
