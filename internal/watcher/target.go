package watcher

import "fmt"

// TargetKind selects which detector a session uses.
type TargetKind int

const (
	TargetEntity TargetKind = iota
	TargetCollection
)

func (k TargetKind) String() string {
	switch k {
	case TargetEntity:
		return "entity"
	case TargetCollection:
		return "collection"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// Target names what a session observes. It is fixed for the session.
type Target struct {
	Kind   TargetKind
	ID     string         // issue ID or identifier, entity mode
	Filter map[string]any // IssueFilter, collection mode
}

// Entity watches a single issue.
func Entity(id string) Target {
	return Target{Kind: TargetEntity, ID: id}
}

// Collection watches the issues matching filter.
func Collection(filter map[string]any) Target {
	if filter == nil {
		filter = map[string]any{}
	}
	return Target{Kind: TargetCollection, Filter: filter}
}

// TeamFilter builds an IssueFilter restricted to a team key. An empty key
// matches every issue.
func TeamFilter(team string) map[string]any {
	filter := map[string]any{}
	if team != "" {
		filter["team"] = map[string]any{"key": map[string]any{"eq": team}}
	}
	return filter
}

// String describes the target for notices and logs.
func (t Target) String() string {
	if t.Kind == TargetEntity {
		return t.ID
	}
	if team, ok := t.Filter["team"].(map[string]any); ok {
		if key, ok := team["key"].(map[string]any); ok {
			if eq, ok := key["eq"].(string); ok {
				return "team " + eq
			}
		}
	}
	return "all issues"
}

const issueQuery = `
	query($id: String!) {
		issue(id: $id) {
			id
			identifier
			title
			updatedAt
			state { name }
			assignee { name }
			priority
			labels { nodes { name } }
		}
	}
`

const issuesQuery = `
	query($filter: IssueFilter) {
		issues(first: 10, filter: $filter, orderBy: createdAt) {
			nodes {
				id
				identifier
				title
				createdAt
				state { name }
				assignee { name }
			}
		}
	}
`

func (t Target) request() (string, map[string]any) {
	if t.Kind == TargetEntity {
		return issueQuery, map[string]any{"id": t.ID}
	}
	return issuesQuery, map[string]any{"filter": t.Filter}
}
