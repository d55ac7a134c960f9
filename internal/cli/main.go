package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/matchcut/internal/config"
	"github.com/forPelevin/matchcut/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "matchcut",
		Short:        "Build football highlight reels from tracking data and commentary",
		SilenceUsage: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a matchcut.toml file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Override logging.format (console, json)")

	root.AddCommand(
		newRunCommand(opts),
		newFuseCommand(opts),
		newRunsCommand(opts),
		newShowCommand(opts),
		newConfigCommand(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads the configuration and builds the logger it describes.
func (o *rootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, _, _, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
