package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linctl/linctl/internal/api"
	"github.com/linctl/linctl/internal/config"
	"github.com/linctl/linctl/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch issues for changes",
	Long: `Poll Linear and print an event whenever something changes.

Examples:
  linctl watch issue ENG-123
  linctl watch issue ENG-123 --interval 30 -o json
  linctl watch issues --team ENG`,
}

var watchIssueCmd = &cobra.Command{
	Use:   "issue <id>",
	Short: "Watch a single issue for updates",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runWatch(cmd, watcher.Entity(id), fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)...", id))
	},
}

var watchIssuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Watch for newly created issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		team, _ := cmd.Flags().GetString("team")
		return runWatch(cmd, watcher.Collection(watcher.TeamFilter(team)), "Watching for new issues (Ctrl+C to stop)...")
	},
}

// runWatch validates the session settings, prints notice and polls target
// until interrupted.
func runWatch(cmd *cobra.Command, target watcher.Target, notice string) error {
	client, cfg, err := newClient()
	if err != nil {
		return err
	}

	interval := cfg.Watch.Interval
	if cmd.Flags().Changed("interval") {
		secs, _ := cmd.Flags().GetInt("interval")
		if secs < 1 {
			return fmt.Errorf("--interval must be at least 1 second, got %d", secs)
		}
		interval = time.Duration(secs) * time.Second
	}

	mode := watcher.ModeHuman
	if outputOptions(cmd, cfg).IsJSON() {
		mode = watcher.ModeJSON
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n\n", notice)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r := startKeyReload(cfg, client); r != nil {
		defer r.Stop()
	}

	err = watcher.Run(ctx, watcher.Options{
		Fetcher:  client,
		Target:   target,
		Interval: interval,
		Emitter:  watcher.NewEmitter(cmd.OutOrStdout(), mode),
		Logger:   slog.Default(),
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startKeyReload follows config file edits so a long watch picks up a
// rotated API key. It is skipped when the key came from a flag or the
// environment, since those win over the file.
func startKeyReload(cfg *config.Config, client *api.Client) *config.Reloader {
	if cfg.Path == "" || apiKeyFlag != "" || os.Getenv(config.EnvAPIKey) != "" {
		return nil
	}
	r := config.NewReloader(cfg.Path, 0, func(next *config.Config) {
		client.SetAPIKey(next.APIKey)
	})
	if err := r.Start(); err != nil {
		slog.Warn("config: cannot watch for changes", "path", cfg.Path, "error", err)
		return nil
	}
	return r
}

func init() {
	watchCmd.PersistentFlags().IntP("interval", "i", 10, "Polling interval in seconds (default from config)")
	watchIssuesCmd.Flags().StringP("team", "t", "", "Only watch issues of this team key")

	watchCmd.AddCommand(watchIssueCmd)
	watchCmd.AddCommand(watchIssuesCmd)
}
