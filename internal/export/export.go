// Package export renders issue lists as CSV and Markdown.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/linctl/linctl/pkg/models"
)

// Query selects the issue fields the exporters read.
const Query = `
	query($filter: IssueFilter) {
		issues(first: 250, filter: $filter) {
			nodes {
				id
				identifier
				title
				description
				priority
				estimate
				dueDate
				createdAt
				updatedAt
				state { name type }
				assignee { name email }
				team { key name }
				labels { nodes { name } }
				project { name }
				cycle { number name }
			}
		}
	}
`

// Filter builds an IssueFilter for a team key. Completed issues are
// excluded unless includeCompleted is set.
func Filter(team string, includeCompleted bool) map[string]any {
	filter := map[string]any{}
	if team != "" {
		filter["team"] = map[string]any{"key": map[string]any{"eq": team}}
	}
	if !includeCompleted {
		filter["state"] = map[string]any{"type": map[string]any{"neq": "completed"}}
	}
	return filter
}

var csvHeader = []string{
	"Identifier", "Title", "Status", "Priority", "Estimate", "Due Date",
	"Assignee", "Team", "Project", "Cycle", "Labels", "Created", "Updated",
}

// WriteCSV writes one row per issue under a fixed header.
func WriteCSV(w io.Writer, issues []models.Issue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, i := range issues {
		row := []string{
			i.Identifier,
			i.Title,
			i.StateName(""),
			strconv.Itoa(i.Priority),
			strconv.FormatFloat(i.Estimate, 'f', -1, 64),
			i.DueDate,
			i.AssigneeName(),
			i.TeamKey(),
			i.ProjectName(),
			i.CycleName(),
			i.JoinLabels("; "),
			models.Day(i.CreatedAt),
			models.Day(i.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteMarkdown writes issues grouped by status. Sections are sorted by
// status name so output is stable across runs.
func WriteMarkdown(w io.Writer, issues []models.Issue, generated time.Time) error {
	var b strings.Builder
	b.WriteString("# Issues Export\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.UTC().Format("2006-01-02 15:04 UTC"))

	byStatus := make(map[string][]models.Issue)
	for _, i := range issues {
		status := i.StateName("Unknown")
		byStatus[status] = append(byStatus[status], i)
	}
	statuses := make([]string, 0, len(byStatus))
	for s := range byStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)

	for _, status := range statuses {
		fmt.Fprintf(&b, "## %s\n\n", status)
		for _, i := range byStatus[status] {
			labels := ""
			if names := i.Labels.Names(); len(names) > 0 {
				labels = " `" + strings.Join(names, "` `") + "`"
			}
			fmt.Fprintf(&b, "- **%s** %s%s\n", i.Identifier, i.Title, labels)
			if i.Assignee != nil && i.Assignee.Name != "" {
				fmt.Fprintf(&b, "  - Assignee: %s\n", i.Assignee.Name)
			}
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
