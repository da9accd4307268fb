package cmd

import (
	"fmt"

	"github.com/linctl/linctl/internal/jsonpath"
	"github.com/linctl/linctl/pkg/models"
	"github.com/spf13/cobra"
)

const viewerQuery = `
	query {
		viewer {
			id
			name
			email
		}
	}
`

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated Linear user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := newClient()
		if err != nil {
			return err
		}
		out := outputOptions(cmd, cfg)

		result, err := client.Query(cmd.Context(), viewerQuery, nil)
		if err != nil {
			return err
		}
		raw, ok := jsonpath.Get(result, "data", "viewer")
		if !ok || raw == nil {
			return fmt.Errorf("viewer not returned; check your API key")
		}

		if out.IsJSON() {
			return out.PrintJSON(raw)
		}

		viewer, err := models.Decode[models.Viewer](raw)
		if err != nil {
			return fmt.Errorf("decode viewer: %w", err)
		}
		source := cfg.Path
		if source == "" {
			source = "environment"
		}
		out.Printf("Name:    %s\n", viewer.Name)
		out.Printf("Email:   %s\n", viewer.Email)
		out.Printf("ID:      %s\n", viewer.ID)
		out.Printf("Config:  %s\n", source)
		return nil
	},
}
