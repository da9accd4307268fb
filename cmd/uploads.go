package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const uploadsPrefix = "https://uploads.linear.app/"

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "Work with files in Linear's upload storage",
}

var uploadsFetchCmd = &cobra.Command{
	Use:     "fetch <url>",
	Aliases: []string{"get"},
	Short:   "Download an upload to a file or stdout",
	Long: `Download an upload from Linear's upload storage.

Examples:
  linctl uploads fetch https://uploads.linear.app/abc/def/screenshot.png -f shot.png
  linctl uploads get https://uploads.linear.app/abc/def/log.txt > log.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if err := validateUploadURL(url); err != nil {
			return err
		}
		file, _ := cmd.Flags().GetString("file")

		client, _, err := newClient()
		if err != nil {
			return err
		}

		if file == "" {
			n, err := client.FetchToWriter(cmd.Context(), url, cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("failed to fetch upload from Linear: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded %s\n", humanize.Bytes(uint64(n)))
			return nil
		}

		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", file, err)
		}
		n, err := client.FetchToWriter(cmd.Context(), url, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to fetch upload from Linear: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Downloaded %s to %s\n", humanize.Bytes(uint64(n)), file)
		return nil
	},
}

func validateUploadURL(url string) error {
	if !strings.HasPrefix(url, uploadsPrefix) {
		return fmt.Errorf("invalid URL: expected Linear upload URL starting with %q", uploadsPrefix)
	}
	return nil
}

func init() {
	uploadsFetchCmd.Flags().StringP("file", "f", "", "Output file path (default: stdout)")
	uploadsCmd.AddCommand(uploadsFetchCmd)
}
