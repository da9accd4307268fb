package watcher

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/linctl/linctl/internal/jsonpath"
)

// Mode selects how events are rendered.
type Mode int

const (
	ModeHuman Mode = iota
	ModeJSON
)

// ConsoleEmitter writes one rendered unit per event to w and flushes it
// before returning.
type ConsoleEmitter struct {
	w    io.Writer
	mode Mode
}

// NewEmitter returns a ConsoleEmitter writing to w.
func NewEmitter(w io.Writer, mode Mode) *ConsoleEmitter {
	return &ConsoleEmitter{w: w, mode: mode}
}

type eventRecord struct {
	Event     Kind   `json:"event"`
	Issue     any    `json:"issue"`
	Timestamp string `json:"timestamp"`
}

// Emit renders e.
func (c *ConsoleEmitter) Emit(e Event) error {
	var err error
	if c.mode == ModeJSON {
		err = json.NewEncoder(c.w).Encode(eventRecord{
			Event:     e.Kind,
			Issue:     e.Issue,
			Timestamp: e.DetectedAt.UTC().Format(time.RFC3339),
		})
	} else {
		_, err = io.WriteString(c.w, humanLine(e))
	}
	if err != nil {
		return fmt.Errorf("emit %s: %w", e.Kind, err)
	}
	return flush(c.w)
}

func humanLine(e Event) string {
	issue := e.Issue
	clock := e.DetectedAt.UTC().Format("15:04:05")
	status := jsonpath.String(issue, "-", "state", "name")
	assignee := jsonpath.String(issue, "Unassigned", "assignee", "name")

	switch e.Kind {
	case KindInitial:
		id := jsonpath.String(issue, orDash(e.Target), "identifier")
		return fmt.Sprintf("Initial state: %s - %s\n  Status: %s, Assignee: %s\n",
			id, jsonpath.String(issue, "", "title"), status, assignee)
	case KindUpdated:
		id := jsonpath.String(issue, orDash(e.Target), "identifier")
		return fmt.Sprintf("[%s] %s updated - Status: %s, Assignee: %s\n", clock, id, status, assignee)
	default:
		return fmt.Sprintf("[%s] NEW: %s - %s\n", clock,
			jsonpath.String(issue, "-", "identifier"), jsonpath.String(issue, "", "title"))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// flush pushes buffered output through. Sync errors are ignored because
// pipes and terminals reject fsync.
func flush(w io.Writer) error {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Sync() error }:
		_ = f.Sync()
	}
	return nil
}
