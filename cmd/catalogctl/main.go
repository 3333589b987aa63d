// Command catalogctl imports product files and queries variant resolution
// against the catalog store from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/application"
	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// globalOptions override the environment configuration.
type globalOptions struct {
	driver   string
	dsn      string
	logLevel string
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Import products and resolve variants",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "Store driver: postgres, sqlite or memory (default: DB_DRIVER)")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "Database URL or sqlite path (default: DATABASE_URL)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (default: LOG_LEVEL)")

	root.AddCommand(
		newImportCmd(&opts),
		newResolveCmd(&opts),
		newAttributeCmd(&opts),
	)
	return root
}

// openApp loads configuration, applies flag overrides and opens the catalog.
// Logs go to the command's stderr so stdout stays machine-readable.
func openApp(cmd *cobra.Command, opts *globalOptions, overrides ...func(*config.Config)) (*application.App, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.Database.URL = opts.dsn
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	slog.SetDefault(logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format))

	app, err := application.Open(cmd.Context(), cfg, "catalogctl")
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}
