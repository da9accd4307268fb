package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader re-reads a config file when it changes on disk and hands the
// result to a callback. Bursts of writes are coalesced by the debounce
// window.
type Reloader struct {
	path     string
	debounce time.Duration
	onChange func(*Config)
	log      *slog.Logger

	watcher    *fsnotify.Watcher
	stopChan   chan struct{}
	stopOnce   sync.Once
	done       sync.WaitGroup
	pending    time.Time
	pendingMux sync.Mutex
}

// NewReloader creates a Reloader for path. A zero debounce uses 200ms.
func NewReloader(path string, debounce time.Duration, onChange func(*Config)) *Reloader {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Reloader{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		log:      slog.Default(),
		stopChan: make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched so editors that
// replace the file by rename are still picked up.
func (r *Reloader) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(r.path)); err != nil {
		w.Close()
		return err
	}
	r.watcher = w

	r.done.Add(2)
	go r.watch()
	go r.debounceLoop()
	return nil
}

// Stop stops the reloader and waits for its goroutines to exit.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		if r.watcher != nil {
			r.watcher.Close()
		}
	})
	r.done.Wait()
}

func (r *Reloader) watch() {
	defer r.done.Done()
	for {
		select {
		case <-r.stopChan:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			r.pendingMux.Lock()
			r.pending = time.Now()
			r.pendingMux.Unlock()

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("config: watcher error", "error", err)
		}
	}
}

func (r *Reloader) debounceLoop() {
	defer r.done.Done()
	ticker := time.NewTicker(tickFor(r.debounce))
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.flushPending()
		}
	}
}

// tickFor returns the polling period for debounce, never below 1ms.
func tickFor(debounce time.Duration) time.Duration {
	if tick := debounce / 2; tick >= time.Millisecond {
		return tick
	}
	return time.Millisecond
}

func (r *Reloader) flushPending() {
	r.pendingMux.Lock()
	last := r.pending
	ready := !last.IsZero() && time.Since(last) >= r.debounce
	if ready {
		r.pending = time.Time{}
	}
	r.pendingMux.Unlock()
	if !ready {
		return
	}

	cfg, err := Load(r.path)
	if err != nil {
		r.log.Warn("config: reload failed, keeping previous settings", "path", r.path, "error", err)
		return
	}
	r.log.Info("config: reloaded", "path", r.path)
	r.onChange(cfg)
}
