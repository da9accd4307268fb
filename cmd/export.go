package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/linctl/linctl/internal/api"
	"github.com/linctl/linctl/internal/export"
	"github.com/linctl/linctl/internal/jsonpath"
	"github.com/linctl/linctl/internal/store"
	"github.com/linctl/linctl/pkg/models"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export issues to CSV, Markdown or SQLite",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export issues to CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		team, _ := cmd.Flags().GetString("team")
		file, _ := cmd.Flags().GetString("file")
		includeCompleted, _ := cmd.Flags().GetBool("include-completed")

		issues, err := fetchIssues(cmd.Context(), export.Filter(team, includeCompleted))
		if err != nil {
			return err
		}
		return writeExport(cmd, file, len(issues), func(w io.Writer) error {
			return export.WriteCSV(w, issues)
		})
	},
}

var exportMarkdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "Export open issues to Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		team, _ := cmd.Flags().GetString("team")
		file, _ := cmd.Flags().GetString("file")

		issues, err := fetchIssues(cmd.Context(), export.Filter(team, false))
		if err != nil {
			return err
		}
		return writeExport(cmd, file, len(issues), func(w io.Writer) error {
			return export.WriteMarkdown(w, issues, time.Now())
		})
	},
}

var exportSQLiteCmd = &cobra.Command{
	Use:   "sqlite",
	Short: "Export issues into a SQLite database",
	Long: `Export issues into a SQLite database.

Issues are upserted by identifier, so repeated exports into the same file
keep one row per issue. Each run is recorded in the exports table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		team, _ := cmd.Flags().GetString("team")
		file, _ := cmd.Flags().GetString("file")
		includeCompleted, _ := cmd.Flags().GetBool("include-completed")
		if file == "" {
			return fmt.Errorf("--file is required for sqlite export")
		}

		issues, err := fetchIssues(cmd.Context(), export.Filter(team, includeCompleted))
		if err != nil {
			return err
		}

		s, err := store.New(file)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer s.Close()

		prev, err := s.LastExport()
		if err != nil {
			return fmt.Errorf("failed to read previous export: %w", err)
		}
		exp, err := s.SaveExport(team, issues)
		if err != nil {
			return fmt.Errorf("failed to save export: %w", err)
		}
		total, err := s.CountIssues()
		if err != nil {
			return fmt.Errorf("failed to count stored issues: %w", err)
		}

		errOut := cmd.ErrOrStderr()
		fmt.Fprintf(errOut, "Exported %d issues to %s (export %s)\n", exp.IssueCount, file, exp.ID)
		if prev != nil {
			fmt.Fprintf(errOut, "Previous export %s at %s (%d issues)\n",
				prev.ID, prev.CreatedAt.UTC().Format(time.RFC3339), prev.IssueCount)
		}
		fmt.Fprintf(errOut, "Database now holds %d issues\n", total)
		return nil
	},
}

func fetchIssues(ctx context.Context, filter map[string]any) ([]models.Issue, error) {
	client, _, err := newClient()
	if err != nil {
		return nil, err
	}
	return queryIssues(ctx, client, filter)
}

func queryIssues(ctx context.Context, client *api.Client, filter map[string]any) ([]models.Issue, error) {
	result, err := client.Query(ctx, export.Query, map[string]any{"filter": filter})
	if err != nil {
		return nil, err
	}
	return models.DecodeIssues(jsonpath.Array(result, "data", "issues", "nodes")), nil
}

// writeExport sends render output to file, or the command's stdout when
// file is empty. A file left incomplete by a render error is removed.
func writeExport(cmd *cobra.Command, file string, count int, render func(io.Writer) error) error {
	if file == "" {
		return render(cmd.OutOrStdout())
	}
	f, err := os.Create(file)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", file, err)
	}
	if err := render(f); err != nil {
		f.Close()
		os.Remove(file)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d issues to %s\n", count, file)
	return nil
}

func init() {
	for _, c := range []*cobra.Command{exportCSVCmd, exportMarkdownCmd, exportSQLiteCmd} {
		c.Flags().StringP("team", "t", "", "Team key to export")
		c.Flags().StringP("file", "f", "", "Output file (default: stdout)")
	}
	exportCSVCmd.Flags().Bool("include-completed", false, "Include completed issues")
	exportSQLiteCmd.Flags().Bool("include-completed", false, "Include completed issues")

	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportMarkdownCmd)
	exportCmd.AddCommand(exportSQLiteCmd)
}
