package watcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// scriptFetcher returns one scripted response per call. Once the script is
// exhausted it cancels the session.
type scriptFetcher struct {
	steps  []step
	calls  int
	cancel context.CancelFunc
	vars   []map[string]any
}

type step struct {
	doc any
	err error
}

func (f *scriptFetcher) Fetch(ctx context.Context, query string, vars map[string]any) (any, error) {
	f.vars = append(f.vars, vars)
	if f.calls >= len(f.steps) {
		f.cancel()
		return nil, ctx.Err()
	}
	s := f.steps[f.calls]
	f.calls++
	return s.doc, s.err
}

type recorder struct {
	events []Event
}

func (r *recorder) Emit(e Event) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []Kind {
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entityResponse(updatedAt string) any {
	return map[string]any{"data": map[string]any{"issue": map[string]any{
		"id": "uuid-1", "identifier": "ISS-1", "updatedAt": updatedAt,
	}}}
}

func collectionResponse(ids ...string) any {
	return map[string]any{"data": map[string]any{"issues": map[string]any{"nodes": nodes(ids...)}}}
}

func runScript(t *testing.T, target Target, steps ...step) (*recorder, *scriptFetcher, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &scriptFetcher{steps: steps, cancel: cancel}
	rec := &recorder{}
	err := Run(ctx, Options{
		Fetcher: f,
		Target:  target,
		Emitter: rec,
		Logger:  quietLogger(),
	})
	return rec, f, err
}

func equalKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRun_EntityEndToEnd(t *testing.T) {
	rec, f, err := runScript(t, Entity("ISS-1"),
		step{doc: entityResponse("v1")},
		step{doc: entityResponse("v1")},
		step{doc: entityResponse("v2")},
		step{doc: entityResponse("v2")},
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	want := []Kind{KindInitial, KindUpdated}
	if !equalKinds(rec.kinds(), want) {
		t.Errorf("kinds = %v, want %v", rec.kinds(), want)
	}
	if f.vars[0]["id"] != "ISS-1" {
		t.Errorf("vars = %v, want id ISS-1", f.vars[0])
	}
}

func TestRun_EntityThreeIdenticalPollsOneEvent(t *testing.T) {
	v := "2024-01-01T00:00:00Z"
	rec, _, _ := runScript(t, Entity("ISS-1"),
		step{doc: entityResponse(v)},
		step{doc: entityResponse(v)},
		step{doc: entityResponse(v)},
	)
	if len(rec.events) != 1 || rec.events[0].Kind != KindInitial {
		t.Errorf("events = %v, want one initial", rec.kinds())
	}
}

func TestRun_EntityInitialWithAbsentFields(t *testing.T) {
	doc := map[string]any{"data": map[string]any{"issue": map[string]any{}}}
	rec, _, _ := runScript(t, Entity("ISS-1"), step{doc: doc}, step{doc: doc})
	if !equalKinds(rec.kinds(), []Kind{KindInitial}) {
		t.Errorf("kinds = %v, want [initial]", rec.kinds())
	}
}

func TestRun_EntityEventsNameWatchedID(t *testing.T) {
	bare := func(v string) any {
		return map[string]any{"data": map[string]any{"issue": map[string]any{"updatedAt": v}}}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &scriptFetcher{steps: []step{{doc: bare("v1")}, {doc: bare("v2")}}, cancel: cancel}
	var buf bytes.Buffer
	_ = Run(ctx, Options{Fetcher: f, Target: Entity("ENG-42"), Emitter: NewEmitter(&buf, ModeHuman), Logger: quietLogger(),
		Clock: func() time.Time { return time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) }})

	want := "Initial state: ENG-42 - \n  Status: -, Assignee: Unassigned\n" +
		"[09:30:00] ENG-42 updated - Status: -, Assignee: Unassigned\n"
	if buf.String() != want {
		t.Errorf("got %q\nwant %q", buf.String(), want)
	}
}

func TestRun_CollectionEventsHaveNoTarget(t *testing.T) {
	rec, _, _ := runScript(t, Collection(nil),
		step{doc: collectionResponse("a")},
		step{doc: collectionResponse("a", "b")},
	)
	if len(rec.events) != 1 || rec.events[0].Target != "" {
		t.Errorf("events = %+v, want one new_issue without target", rec.events)
	}
}

func TestRun_EntityNotFoundOnLaterPoll(t *testing.T) {
	missing := map[string]any{"data": map[string]any{"issue": nil}}
	rec, f, err := runScript(t, Entity("ISS-1"),
		step{doc: entityResponse("v1")},
		step{doc: entityResponse("v2")},
		step{doc: missing},
		step{doc: entityResponse("v3")},
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "ISS-1") {
		t.Errorf("err = %v, should name the issue", err)
	}
	if f.calls != 3 {
		t.Errorf("fetch calls = %d, want session to stop at poll 3", f.calls)
	}
	if !equalKinds(rec.kinds(), []Kind{KindInitial, KindUpdated}) {
		t.Errorf("kinds = %v", rec.kinds())
	}
}

func TestRun_EntityNotFoundOnFirstPoll(t *testing.T) {
	rec, _, err := runScript(t, Entity("ISS-9"), step{doc: map[string]any{"data": map[string]any{}}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("events = %v, want none", rec.kinds())
	}
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	boom := errors.New("401 unauthorized")
	rec, f, err := runScript(t, Entity("ISS-1"),
		step{doc: entityResponse("v1")},
		step{err: boom},
		step{doc: entityResponse("v2")},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped fetch error", err)
	}
	if f.calls != 2 {
		t.Errorf("fetch calls = %d, want no retry", f.calls)
	}
	if len(rec.events) != 1 {
		t.Errorf("events = %v, want only the initial", rec.kinds())
	}
}

func TestRun_CollectionBaselineThenNew(t *testing.T) {
	rec, f, _ := runScript(t, Collection(TeamFilter("ENG")),
		step{doc: collectionResponse("a", "b", "c")},
		step{doc: collectionResponse("a", "b", "c", "d")},
		step{doc: collectionResponse("a", "c")},
		step{doc: collectionResponse("a", "b", "c", "d", "e", "f")},
	)
	var ids []string
	for _, e := range rec.events {
		if e.Kind != KindNewIssue {
			t.Errorf("kind = %s, want new_issue", e.Kind)
		}
		ids = append(ids, e.Issue.(map[string]any)["id"].(string))
	}
	if strings.Join(ids, ",") != "d,e,f" {
		t.Errorf("new ids = %v, want d,e,f", ids)
	}
	filter := f.vars[0]["filter"].(map[string]any)
	if _, ok := filter["team"]; !ok {
		t.Errorf("filter = %v, want team restriction", filter)
	}
}

func TestRun_CollectionMalformedNodes(t *testing.T) {
	bad := map[string]any{"data": map[string]any{"issues": map[string]any{"nodes": "oops"}}}
	rec, _, err := runScript(t, Collection(nil),
		step{doc: bad},
		step{doc: collectionResponse("a")},
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.events) != 1 {
		t.Errorf("events = %v, want a after empty baseline", rec.kinds())
	}
}

func TestRun_EventsStampedByClock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &scriptFetcher{steps: []step{{doc: entityResponse("v1")}}, cancel: cancel}
	rec := &recorder{}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = Run(ctx, Options{Fetcher: f, Target: Entity("ISS-1"), Emitter: rec, Logger: quietLogger(),
		Clock: func() time.Time { return at }})
	if len(rec.events) != 1 || !rec.events[0].DetectedAt.Equal(at) {
		t.Errorf("events = %+v", rec.events)
	}
}

func TestRun_CancelDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := FetcherFunc(func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		return entityResponse("v1"), nil
	})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{Fetcher: f, Target: Entity("ISS-1"), Emitter: &recorder{},
			Interval: time.Hour, Logger: quietLogger()})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_AlreadyCancelledNeverFetches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	f := FetcherFunc(func(context.Context, string, map[string]any) (any, error) {
		called = true
		return nil, nil
	})
	err := Run(ctx, Options{Fetcher: f, Target: Entity("ISS-1"), Emitter: &recorder{}, Logger: quietLogger()})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("err = %v, called = %v", err, called)
	}
}

func TestRun_InvalidOptions(t *testing.T) {
	ctx := context.Background()
	f := FetcherFunc(func(context.Context, string, map[string]any) (any, error) { return nil, nil })
	tests := []struct {
		name string
		opts Options
	}{
		{"no fetcher", Options{Target: Entity("a"), Emitter: &recorder{}}},
		{"no emitter", Options{Fetcher: f, Target: Entity("a")}},
		{"no id", Options{Fetcher: f, Target: Entity(""), Emitter: &recorder{}}},
		{"negative interval", Options{Fetcher: f, Target: Entity("a"), Emitter: &recorder{}, Interval: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Run(ctx, tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTarget_String(t *testing.T) {
	if got := Entity("ISS-1").String(); got != "ISS-1" {
		t.Errorf("entity = %q", got)
	}
	if got := Collection(TeamFilter("ENG")).String(); got != "team ENG" {
		t.Errorf("team = %q", got)
	}
	if got := Collection(TeamFilter("")).String(); got != "all issues" {
		t.Errorf("all = %q", got)
	}
}
