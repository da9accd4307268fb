package models

import (
	"encoding/json"
	"strings"

	"github.com/linctl/linctl/internal/jsonpath"
)

// Named is any Linear object referenced by name, such as a workflow state
// or an assignee.
type Named struct {
	Name  string `json:"name"`
	Key   string `json:"key,omitempty"`
	Type  string `json:"type,omitempty"`
	Email string `json:"email,omitempty"`
}

// Cycle is an issue's cycle.
type Cycle struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// Labels is a GraphQL label connection.
type Labels struct {
	Nodes []Named `json:"nodes"`
}

// Names returns the label names in order.
func (l Labels) Names() []string {
	names := make([]string, 0, len(l.Nodes))
	for _, n := range l.Nodes {
		if n.Name != "" {
			names = append(names, n.Name)
		}
	}
	return names
}

// Issue is the typed projection of an issue used by the exporters.
// Nullable relations are pointers.
type Issue struct {
	ID          string  `json:"id"`
	Identifier  string  `json:"identifier"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    int     `json:"priority"`
	Estimate    float64 `json:"estimate"`
	DueDate     string  `json:"dueDate"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	State       *Named  `json:"state"`
	Assignee    *Named  `json:"assignee"`
	Team        *Named  `json:"team"`
	Project     *Named  `json:"project"`
	Cycle       *Cycle  `json:"cycle"`
	Labels      Labels  `json:"labels"`
}

// StateName returns the workflow state name, or def when unset.
func (i Issue) StateName(def string) string {
	if i.State == nil || i.State.Name == "" {
		return def
	}
	return i.State.Name
}

// AssigneeName returns the assignee name, or "" when unassigned.
func (i Issue) AssigneeName() string {
	if i.Assignee == nil {
		return ""
	}
	return i.Assignee.Name
}

// TeamKey returns the team key, or "".
func (i Issue) TeamKey() string {
	if i.Team == nil {
		return ""
	}
	return i.Team.Key
}

// ProjectName returns the project name, or "".
func (i Issue) ProjectName() string {
	if i.Project == nil {
		return ""
	}
	return i.Project.Name
}

// CycleName returns the cycle name, or "".
func (i Issue) CycleName() string {
	if i.Cycle == nil {
		return ""
	}
	return i.Cycle.Name
}

// Day returns the first ten characters of an ISO timestamp.
func Day(ts string) string {
	r := []rune(ts)
	if len(r) > 10 {
		r = r[:10]
	}
	return string(r)
}

// JoinLabels joins label names with sep.
func (i Issue) JoinLabels(sep string) string {
	return strings.Join(i.Labels.Names(), sep)
}

// Roadmap is a Linear roadmap.
type Roadmap struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SlugID      string  `json:"slugId"`
	Projects    struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
	} `json:"projects"`
}

// Viewer is the authenticated user.
type Viewer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Decode converts a generic JSON value into a typed projection. Fields with
// mismatched types fail the whole value.
func Decode[T any](v any) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(data, &out)
	return out, err
}

// DecodeIssues converts issue nodes field by field. A field that is
// missing or has an unexpected type takes its zero value, so every node
// yields an issue.
func DecodeIssues(nodes []any) []Issue {
	issues := make([]Issue, 0, len(nodes))
	for _, n := range nodes {
		issues = append(issues, decodeIssue(n))
	}
	return issues
}

func decodeIssue(n any) Issue {
	issue := Issue{
		ID:          jsonpath.String(n, "", "id"),
		Identifier:  jsonpath.String(n, "", "identifier"),
		Title:       jsonpath.String(n, "", "title"),
		Description: jsonpath.String(n, "", "description"),
		Priority:    int(jsonpath.Number(n, 0, "priority")),
		Estimate:    jsonpath.Number(n, 0, "estimate"),
		DueDate:     jsonpath.String(n, "", "dueDate"),
		CreatedAt:   jsonpath.String(n, "", "createdAt"),
		UpdatedAt:   jsonpath.String(n, "", "updatedAt"),
		State:       decodeNamed(n, "state"),
		Assignee:    decodeNamed(n, "assignee"),
		Team:        decodeNamed(n, "team"),
		Project:     decodeNamed(n, "project"),
	}
	if c, ok := jsonpath.Get(n, "cycle"); ok {
		if _, isObj := c.(map[string]any); isObj {
			issue.Cycle = &Cycle{
				Number: int(jsonpath.Number(c, 0, "number")),
				Name:   jsonpath.String(c, "", "name"),
			}
		}
	}
	for _, l := range jsonpath.Array(n, "labels", "nodes") {
		issue.Labels.Nodes = append(issue.Labels.Nodes, Named{Name: jsonpath.String(l, "", "name")})
	}
	return issue
}

// decodeNamed returns nil unless key holds an object.
func decodeNamed(n any, key string) *Named {
	v, ok := jsonpath.Get(n, key)
	if !ok {
		return nil
	}
	if _, isObj := v.(map[string]any); !isObj {
		return nil
	}
	return &Named{
		Name:  jsonpath.String(v, "", "name"),
		Key:   jsonpath.String(v, "", "key"),
		Type:  jsonpath.String(v, "", "type"),
		Email: jsonpath.String(v, "", "email"),
	}
}
