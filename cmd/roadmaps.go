package cmd

import (
	"fmt"
	"strconv"

	"github.com/linctl/linctl/internal/jsonpath"
	"github.com/linctl/linctl/internal/output"
	"github.com/linctl/linctl/pkg/models"
	"github.com/spf13/cobra"
)

const (
	roadmapsListQuery = `
		query {
			roadmaps(first: 250) {
				nodes {
					id
					name
					description
					slugId
					projects { nodes { id } }
				}
			}
		}
	`

	roadmapGetQuery = `
		query($id: String!) {
			roadmap(id: $id) {
				id
				name
				description
				slugId
				createdAt
				updatedAt
				projects {
					nodes {
						id
						name
						state
						progress
					}
				}
			}
		}
	`

	roadmapCreateMutation = `
		mutation($input: RoadmapCreateInput!) {
			roadmapCreate(input: $input) {
				success
				roadmap { id name }
			}
		}
	`

	roadmapUpdateMutation = `
		mutation($id: String!, $input: RoadmapUpdateInput!) {
			roadmapUpdate(id: $id, input: $input) {
				success
				roadmap { id name }
			}
		}
	`
)

var roadmapsCmd = &cobra.Command{
	Use:   "roadmaps",
	Short: "List, inspect, create and update roadmaps",
}

var roadmapsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all roadmaps",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cfg, err := newClient()
		if err != nil {
			return err
		}
		out := outputOptions(cmd, cfg)

		result, err := client.Query(cmd.Context(), roadmapsListQuery, nil)
		if err != nil {
			return err
		}
		nodes := jsonpath.Array(result, "data", "roadmaps", "nodes")
		if out.IsJSON() {
			return out.PrintJSON(nodes)
		}
		return printRoadmaps(out, nodes)
	},
}

func printRoadmaps(out *output.Options, nodes []any) error {
	var rows [][]string
	for _, n := range nodes {
		r, err := models.Decode[models.Roadmap](n)
		if err != nil {
			continue
		}
		desc := "-"
		if r.Description != nil && *r.Description != "" {
			desc = *r.Description
		}
		rows = append(rows, []string{
			r.ID,
			output.Truncate(r.Name, out.MaxWidth),
			output.Truncate(desc, out.MaxWidth),
			strconv.Itoa(len(r.Projects.Nodes)),
		})
	}
	if len(rows) == 0 {
		out.Printf("No roadmaps found\n")
		return nil
	}
	return out.Table([]string{"ID", "Name", "Description", "Projects"}, rows)
}

var roadmapsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get roadmap details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		client, cfg, err := newClient()
		if err != nil {
			return err
		}

		result, err := client.Query(cmd.Context(), roadmapGetQuery, map[string]any{"id": id})
		if err != nil {
			return err
		}
		if jsonpath.IsNull(result, "data", "roadmap") {
			return fmt.Errorf("Roadmap not found: %s", id)
		}
		roadmap, _ := jsonpath.Get(result, "data", "roadmap")
		return outputOptions(cmd, cfg).PrintJSON(roadmap)
	},
}

var roadmapsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new roadmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := map[string]any{"name": args[0]}
		if cmd.Flags().Changed("description") {
			d, _ := cmd.Flags().GetString("description")
			input["description"] = d
		}

		client, cfg, err := newClient()
		if err != nil {
			return err
		}
		out := outputOptions(cmd, cfg)

		result, err := client.Mutate(cmd.Context(), roadmapCreateMutation, map[string]any{"input": input})
		if err != nil {
			return err
		}
		if success, _ := jsonpath.Get(result, "data", "roadmapCreate", "success"); success != true {
			return fmt.Errorf("failed to create roadmap")
		}
		roadmap, _ := jsonpath.Get(result, "data", "roadmapCreate", "roadmap")
		if out.IsJSON() {
			return out.PrintJSON(roadmap)
		}
		out.Printf("%s Created roadmap: %s\n", out.Green("+"), jsonpath.String(roadmap, "", "name"))
		out.Printf("  ID: %s\n", jsonpath.String(roadmap, "", "id"))
		return nil
	},
}

var roadmapsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an existing roadmap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		input := roadmapUpdateInput(cmd)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := outputOptions(cmd, cfg)

		if len(input) == 0 {
			out.Printf("No updates specified.\n")
			return nil
		}

		if out.DryRun {
			if out.IsJSON() {
				return out.PrintJSON(map[string]any{
					"dry_run":      true,
					"would_update": map[string]any{"id": id, "input": input},
				})
			}
			out.Printf("%s\n", out.Warn("[DRY RUN] Would update roadmap:"))
			out.Printf("  ID: %s\n", id)
			for _, k := range []string{"name", "description"} {
				if v, ok := input[k]; ok {
					out.Printf("  %s: %v\n", k, v)
				}
			}
			return nil
		}

		client, _, err := newClient()
		if err != nil {
			return err
		}
		result, err := client.Mutate(cmd.Context(), roadmapUpdateMutation, map[string]any{"id": id, "input": input})
		if err != nil {
			return err
		}
		if success, _ := jsonpath.Get(result, "data", "roadmapUpdate", "success"); success != true {
			return fmt.Errorf("failed to update roadmap")
		}
		if out.IsJSON() {
			roadmap, _ := jsonpath.Get(result, "data", "roadmapUpdate", "roadmap")
			return out.PrintJSON(roadmap)
		}
		out.Printf("%s Roadmap updated\n", out.Green("+"))
		return nil
	},
}

func roadmapUpdateInput(cmd *cobra.Command) map[string]any {
	input := map[string]any{}
	if cmd.Flags().Changed("name") {
		n, _ := cmd.Flags().GetString("name")
		input["name"] = n
	}
	if cmd.Flags().Changed("description") {
		d, _ := cmd.Flags().GetString("description")
		input["description"] = d
	}
	return input
}

func init() {
	roadmapsCreateCmd.Flags().StringP("description", "d", "", "Description")
	roadmapsUpdateCmd.Flags().StringP("name", "n", "", "New name")
	roadmapsUpdateCmd.Flags().StringP("description", "d", "", "New description")

	roadmapsCmd.AddCommand(roadmapsListCmd)
	roadmapsCmd.AddCommand(roadmapsGetCmd)
	roadmapsCmd.AddCommand(roadmapsCreateCmd)
	roadmapsCmd.AddCommand(roadmapsUpdateCmd)
}
