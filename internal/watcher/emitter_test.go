package watcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

var detectedAt = time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("CET", 3600))

func fullIssue() map[string]any {
	return map[string]any{
		"id":         "uuid-1",
		"identifier": "ISS-1",
		"title":      "Fix login",
		"state":      map[string]any{"name": "In Progress"},
		"assignee":   map[string]any{"name": "Ada"},
	}
}

func TestEmit_JSONRecord(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(&buf, ModeJSON)
	if err := e.Emit(Event{Kind: KindUpdated, Issue: fullIssue(), DetectedAt: detectedAt}); err != nil {
		t.Fatal(err)
	}

	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected exactly one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rec) != 3 {
		t.Errorf("record keys = %v, want event/issue/timestamp", rec)
	}
	if rec["event"] != "updated" {
		t.Errorf("event = %v, want updated", rec["event"])
	}
	if rec["timestamp"] != "2024-03-09T13:05:07Z" {
		t.Errorf("timestamp = %v, want UTC RFC3339", rec["timestamp"])
	}
	issue, ok := rec["issue"].(map[string]any)
	if !ok || issue["identifier"] != "ISS-1" {
		t.Errorf("issue = %v", rec["issue"])
	}
}

func TestEmit_JSONKindTags(t *testing.T) {
	for _, k := range []Kind{KindInitial, KindUpdated, KindNewIssue} {
		var buf bytes.Buffer
		if err := NewEmitter(&buf, ModeJSON).Emit(Event{Kind: k, Issue: map[string]any{}, DetectedAt: detectedAt}); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"event":"`+string(k)+`"`) {
			t.Errorf("output %q missing tag %s", buf.String(), k)
		}
	}
}

func TestEmit_HumanLines(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			"initial",
			Event{Kind: KindInitial, Issue: fullIssue(), DetectedAt: detectedAt},
			"Initial state: ISS-1 - Fix login\n  Status: In Progress, Assignee: Ada\n",
		},
		{
			"initial with every field absent",
			Event{Kind: KindInitial, Issue: map[string]any{}, DetectedAt: detectedAt},
			"Initial state: - - \n  Status: -, Assignee: Unassigned\n",
		},
		{
			"updated",
			Event{Kind: KindUpdated, Issue: fullIssue(), DetectedAt: detectedAt},
			"[13:05:07] ISS-1 updated - Status: In Progress, Assignee: Ada\n",
		},
		{
			"updated falls back to watched id",
			Event{Kind: KindUpdated, Issue: map[string]any{"id": "uuid-1", "assignee": nil}, DetectedAt: detectedAt, Target: "ENG-42"},
			"[13:05:07] ENG-42 updated - Status: -, Assignee: Unassigned\n",
		},
		{
			"initial falls back to watched id",
			Event{Kind: KindInitial, Issue: map[string]any{"title": "Fix login"}, DetectedAt: detectedAt, Target: "ENG-42"},
			"Initial state: ENG-42 - Fix login\n  Status: -, Assignee: Unassigned\n",
		},
		{
			"identifier wins over watched id",
			Event{Kind: KindUpdated, Issue: fullIssue(), DetectedAt: detectedAt, Target: "uuid-1"},
			"[13:05:07] ISS-1 updated - Status: In Progress, Assignee: Ada\n",
		},
		{
			"new issue without identifier",
			Event{Kind: KindNewIssue, Issue: map[string]any{"id": "uuid-9"}, DetectedAt: detectedAt},
			"[13:05:07] NEW: - - \n",
		},
		{
			"new issue",
			Event{Kind: KindNewIssue, Issue: fullIssue(), DetectedAt: detectedAt},
			"[13:05:07] NEW: ISS-1 - Fix login\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewEmitter(&buf, ModeHuman).Emit(tt.event); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q\nwant %q", buf.String(), tt.want)
			}
		})
	}
}

type flushWriter struct {
	bytes.Buffer
	flushes int
}

func (f *flushWriter) Flush() error {
	f.flushes++
	return nil
}

func TestEmit_FlushesEveryEvent(t *testing.T) {
	w := &flushWriter{}
	e := NewEmitter(w, ModeHuman)
	for i := 0; i < 3; i++ {
		if err := e.Emit(Event{Kind: KindNewIssue, Issue: fullIssue(), DetectedAt: detectedAt}); err != nil {
			t.Fatal(err)
		}
	}
	if w.flushes != 3 {
		t.Errorf("flushes = %d, want 3", w.flushes)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestEmit_WriteError(t *testing.T) {
	err := NewEmitter(failingWriter{}, ModeHuman).Emit(Event{Kind: KindInitial, Issue: fullIssue()})
	if err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("err = %v, want broken pipe", err)
	}
}
