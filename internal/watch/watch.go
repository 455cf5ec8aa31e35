// Package watch triggers a callback when a directory tree changes. Bursts of events
// are coalesced, and the callback never runs concurrently with itself.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/rjeczalik/notify"
)

const (
	DefaultDebounce = 2 * time.Second
	eventBufferSize = 64
)

// FilterFunc returns true for paths whose events should be dropped.
type FilterFunc func(path string) bool

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithFilter(f FilterFunc) Option {
	return func(w *Watcher) {
		w.filter = f
	}
}

type Watcher struct {
	dir      string
	debounce time.Duration
	filter   FilterFunc
}

func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{dir: dir, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the tree until ctx is done, calling fn once per quiet period after a
// change. Errors from fn are logged and watching continues.
func (w *Watcher) Run(ctx context.Context, fn func(context.Context) error) error {
	events := make(chan notify.EventInfo, eventBufferSize)
	if err := notify.Watch(w.dir+"/...", events, notify.Write, notify.Create, notify.Remove, notify.Rename); err != nil {
		return err
	}
	defer notify.Stop(events)

	slog.Info("watch start", "dir", w.dir, "debounce", w.debounce)
	w.loop(ctx, events, fn)
	slog.Info("watch stopped", "dir", w.dir)
	return nil
}

func (w *Watcher) loop(ctx context.Context, events <-chan notify.EventInfo, fn func(context.Context) error) {
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	pending := 0
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if w.filter != nil && w.filter(ev.Path()) {
				continue
			}
			pending++
			// inotify reports a burst of writes while a file is being written
			timer.Reset(w.debounce)
		case <-timer.C:
			slog.Debug("watch triggered", "events", pending)
			pending = 0
			if err := fn(ctx); err != nil {
				slog.Error("watch callback", "error", err)
			}
		}
	}
}
