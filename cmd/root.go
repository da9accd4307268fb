package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/linctl/linctl/internal/api"
	"github.com/linctl/linctl/internal/config"
	"github.com/linctl/linctl/internal/output"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	cfgFile    string
	apiKeyFlag string
	outputFlag string
	compact    bool
	dryRun     bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "linctl",
	Short: "A command-line client for Linear",
	Long: `linctl talks to the Linear GraphQL API from your terminal.

Query roadmaps, export issues to CSV, Markdown or SQLite, download
uploads, and watch issues for changes as they happen.

Authenticate with a personal API key in ~/.linctl/config.yaml or the
LINEAR_API_KEY environment variable.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

		if _, err := output.ParseFormat(outputFlag); err != nil {
			return err
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.linctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "Linear API key (overrides config and LINEAR_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "table", "Output format (table|json)")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "Compact JSON output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Preview mutations without sending them")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose diagnostic logging on stderr")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(uploadsCmd)
	rootCmd.AddCommand(roadmapsCmd)
}

// configPath returns the --config value or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies the --api-key flag.
func loadConfig() (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if apiKeyFlag != "" {
		cfg.APIKey = apiKeyFlag
	}
	return cfg, nil
}

// newClient builds an API client from the current configuration.
func newClient() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := api.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

// outputOptions returns the output settings chosen on the command line,
// writing to the command's stdout.
func outputOptions(cmd *cobra.Command, cfg *config.Config) *output.Options {
	format, _ := output.ParseFormat(outputFlag)
	opts := output.NewOptions(format)
	if w := cmd.OutOrStdout(); w != io.Writer(os.Stdout) {
		opts.Out = w
		opts.Color = false
	}
	opts.Compact = compact
	opts.DryRun = dryRun
	if cfg != nil {
		opts.MaxWidth = cfg.Display.MaxWidth
	}
	return opts
}
