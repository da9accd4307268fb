package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linctl/linctl/internal/jsonpath"
	"github.com/oklog/ulid/v2"
)

// Options configures a watch session.
type Options struct {
	Fetcher  Fetcher
	Target   Target
	Interval time.Duration
	Emitter  Emitter
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Clock stamps events. Defaults to time.Now.
	Clock func() time.Time
}

func (o *Options) defaults() error {
	if o.Fetcher == nil {
		return errors.New("watch: fetcher is required")
	}
	if o.Emitter == nil {
		return errors.New("watch: emitter is required")
	}
	if o.Target.Kind == TargetEntity && o.Target.ID == "" {
		return errors.New("watch: issue id is required")
	}
	if o.Interval < 0 {
		return fmt.Errorf("watch: negative interval %s", o.Interval)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return nil
}

// Run polls the target until ctx is cancelled or a poll fails. It never
// returns nil: cancellation yields ctx.Err(), a fetch failure or a missing
// issue ends the session with that error. Failed polls are not retried.
//
// Interval is slept after each poll completes, so slow fetches stretch the
// cadence rather than overlap.
func Run(ctx context.Context, opts Options) error {
	if err := opts.defaults(); err != nil {
		return err
	}
	s := &session{
		id:   ulid.Make().String(),
		opts: opts,
		log:  opts.Logger,
	}
	if opts.Target.Kind == TargetEntity {
		s.entity = &EntityDetector{}
	} else {
		s.collection = NewCollectionDetector()
	}
	s.log = s.log.With("session", s.id, "target", opts.Target.String(), "mode", opts.Target.Kind.String())
	return s.loop(ctx)
}

type session struct {
	id         string
	opts       Options
	log        *slog.Logger
	entity     *EntityDetector
	collection *CollectionDetector
	polls      int
}

func (s *session) loop(ctx context.Context) error {
	s.log.Info("watch: started", "interval", s.opts.Interval)
	for {
		if err := ctx.Err(); err != nil {
			s.log.Info("watch: stopped", "polls", s.polls)
			return err
		}
		if err := s.poll(ctx); err != nil {
			s.log.Warn("watch: session failed", "polls", s.polls, "error", err)
			return err
		}
		if err := sleep(ctx, s.opts.Interval); err != nil {
			s.log.Info("watch: stopped", "polls", s.polls)
			return err
		}
	}
}

func (s *session) poll(ctx context.Context) error {
	query, vars := s.opts.Target.request()
	doc, err := s.opts.Fetcher.Fetch(ctx, query, vars)
	if err != nil {
		// A cancelled context surfaces as itself, not as a fetch failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("fetch: %w", err)
	}
	s.polls++
	now := s.opts.Clock()

	if s.entity != nil {
		issue, _ := jsonpath.Get(doc, "data", "issue")
		if issue == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, s.opts.Target.ID)
		}
		class := s.entity.Observe(issue)
		s.log.Debug("watch: poll", "poll", s.polls, "result", class.String())
		switch class {
		case Initial:
			return s.opts.Emitter.Emit(Event{Kind: KindInitial, Issue: issue, DetectedAt: now, Target: s.opts.Target.ID})
		case Updated:
			return s.opts.Emitter.Emit(Event{Kind: KindUpdated, Issue: issue, DetectedAt: now, Target: s.opts.Target.ID})
		}
		return nil
	}

	nodes := jsonpath.Array(doc, "data", "issues", "nodes")
	fresh := s.collection.Observe(nodes)
	s.log.Debug("watch: poll", "poll", s.polls, "nodes", len(nodes), "new", len(fresh), "seen", s.collection.Len())
	for _, m := range fresh {
		if err := s.opts.Emitter.Emit(Event{Kind: KindNewIssue, Issue: m.Issue, DetectedAt: now}); err != nil {
			return err
		}
	}
	return nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
