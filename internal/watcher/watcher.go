// Package watcher polls Linear for an issue or a filtered set of issues and
// emits an event each time the observed state changes.
//
// A session owns its detector state exclusively and runs a single loop:
// fetch, classify, emit, sleep. Nothing is persisted; stopping the process
// or cancelling the context ends the session.
package watcher

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the watched issue is absent from a response.
var ErrNotFound = errors.New("issue not found")

// Fetcher executes a GraphQL query and returns the decoded response document.
type Fetcher interface {
	Fetch(ctx context.Context, query string, vars map[string]any) (any, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, query string, vars map[string]any) (any, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, query string, vars map[string]any) (any, error) {
	return f(ctx, query, vars)
}

// Kind tags an emitted event.
type Kind string

const (
	KindInitial  Kind = "initial"
	KindUpdated  Kind = "updated"
	KindNewIssue Kind = "new_issue"
)

// Event is a detected change, rendered immediately and then discarded.
type Event struct {
	Kind       Kind
	Issue      any       // the full fetched issue document
	DetectedAt time.Time // when the poll observed it, not when it changed upstream
	// Target is the ID the session was asked to watch. Set for entity
	// events only; it names the issue when the document lacks an identifier.
	Target string
}

// Emitter renders events.
type Emitter interface {
	Emit(e Event) error
}
