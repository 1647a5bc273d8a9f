package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwizi/job-agent/internal/app"
	"github.com/dwizi/job-agent/internal/config"
)

func NewRoot(logger *slog.Logger) *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "job-agent",
		Short:         "Job Agent is a chat bot for job search and tailored applications",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, logger)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading configuration")

	root.AddCommand(newServeCommand(logger))
	root.AddCommand(newChatCommand(logger))
	root.AddCommand(newCheckConfigCommand())
	root.AddCommand(newExportsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newServeCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram connector, HTTP API and artifact sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, logger)
		},
	}
}

func runServe(cmd *cobra.Command, logger *slog.Logger) error {
	cfg := config.FromEnv()
	if missing := cfg.Validate(); len(missing) > 0 {
		return missingConfigError(missing)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	runtime, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runtime.Close()
	return runtime.Run(ctx)
}

func newCheckConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Report missing mandatory configuration keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			missing := cfg.Validate()
			if len(missing) > 0 {
				for _, key := range missing {
					cmd.Printf("missing: %s\n", key)
				}
				return missingConfigError(missing)
			}
			cmd.Printf("configuration ok (llm provider %s, model %s, data dir %s)\n", cfg.LLMProvider, cfg.LLMModel, cfg.DataDir)
			return nil
		},
	}
}

func missingConfigError(missing []string) error {
	return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(app.Version)
		},
	}
}
