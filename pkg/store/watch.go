package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tableflip.dev/tabtree/pkg/debug"
)

// EventType describes the nature of a session change notification.
type EventType int

const (
	// EventWindowChanged indicates the saved session of Window was written
	// or erased.
	EventWindowChanged EventType = iota

	// EventWindowsInvalidated signals that the store changed in a way that
	// could not be pinned to one window; callers should reload everything.
	EventWindowsInvalidated
)

func (t EventType) String() string {
	switch t {
	case EventWindowChanged:
		return "changed"
	case EventWindowsInvalidated:
		return "invalidated"
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is emitted by Persistence.Watch when underlying storage changes.
type Event struct {
	Type   EventType
	Window string
}

// Watch streams change events until ctx is cancelled. Events are dropped if
// the consumer falls behind. The channel is closed once ctx is done or the
// watcher fails.
func (p *persistence) Watch(ctx context.Context) (<-chan Event, error) {
	if p.basePath == "" {
		return nil, errors.New("store: base path unknown")
	}

	if err := os.MkdirAll(filepath.Join(p.basePath, windowsDir), 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure base path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("store: create watcher: %w", err)
	}
	var closeOnce sync.Once
	closeWatcher := func() {
		closeOnce.Do(func() {
			if err := watcher.Close(); err != nil {
				debug.Logger().Warn("store: watcher close", "err", err)
			}
		})
	}

	dirs, err := collectDirs(p.basePath)
	if err != nil {
		closeWatcher()
		return nil, fmt.Errorf("store: enumerate directories: %w", err)
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			closeWatcher()
			return nil, fmt.Errorf("store: watch %s: %w", dir, err)
		}
	}

	events := make(chan Event, 64)

	go func() {
		defer close(events)
		defer closeWatcher()

		watched := make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			watched[dir] = struct{}{}
		}

		send := func(ev Event) {
			select {
			case events <- ev:
			default:
			}
		}

		throttle := newEventThrottle(100 * time.Millisecond)
		defer throttle.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				debug.Logger().Debug("store: watcher error", "err", err)
				throttle.Enqueue(Event{Type: EventWindowsInvalidated}, send)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}

				if evt.Op&fsnotify.Create == fsnotify.Create {
					if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
						dir := filepath.Clean(evt.Name)
						if _, found := watched[dir]; !found {
							if err := watcher.Add(dir); err != nil {
								debug.Logger().Warn("store: watch", "dir", dir, "err", err)
							} else {
								watched[dir] = struct{}{}
							}
						}
						throttle.Enqueue(Event{Type: EventWindowsInvalidated}, send)
						continue
					}
				}

				name, ok := p.windowForPath(evt.Name)
				if !ok {
					throttle.Enqueue(Event{Type: EventWindowsInvalidated}, send)
					continue
				}
				throttle.Enqueue(Event{Type: EventWindowChanged, Window: name}, send)
			}
		}
	}()

	return events, nil
}

// collectDirs walks base and returns all directories that should be watched.
func collectDirs(base string) ([]string, error) {
	dirs := []string{base}
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && path != base {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}

// windowForPath maps base/windows/<hex name> back to the window name.
// diskv's temp files and anything outside windows/ do not map.
func (p *persistence) windowForPath(path string) (string, bool) {
	rel, err := filepath.Rel(p.basePath, path)
	if err != nil || rel == "." {
		return "", false
	}
	parts := strings.Split(rel, string(os.PathSeparator))
	if len(parts) != 2 || parts[0] != windowsDir || parts[1] == "" {
		return "", false
	}
	name, err := hexName(parts[1])
	if err != nil {
		return "", false
	}
	return name, true
}

// eventThrottle coalesces bursts of filesystem activity into one event per
// window.
type eventThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[EventType]map[string]struct{}
	delay   time.Duration
}

func newEventThrottle(delay time.Duration) *eventThrottle {
	return &eventThrottle{
		delay:   delay,
		pending: make(map[EventType]map[string]struct{}),
	}
}

func (t *eventThrottle) Enqueue(ev Event, send func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[ev.Type] == nil {
		t.pending[ev.Type] = make(map[string]struct{})
	}
	t.pending[ev.Type][ev.Window] = struct{}{}

	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
}

func (t *eventThrottle) flush(send func(Event)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[EventType]map[string]struct{})
	t.timer = nil
	t.mu.Unlock()

	// A full reload supersedes per-window events.
	if _, ok := pending[EventWindowsInvalidated]; ok {
		send(Event{Type: EventWindowsInvalidated})
		return
	}
	for name := range pending[EventWindowChanged] {
		send(Event{Type: EventWindowChanged, Window: name})
	}
}

func (t *eventThrottle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
