package store

import (
	"context"
	"testing"
	"time"

	"tableflip.dev/tabtree/pkg/structure"
)

type testConfig struct {
	path string
}

func (t testConfig) BasePath() string {
	return t.path
}

func TestPersistenceWatchEmitsWindowChanges(t *testing.T) {
	base := t.TempDir()
	p, err := Load(testConfig{path: base})
	if err != nil {
		t.Fatalf("load persistence: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Allow watcher goroutine to subscribe to directories before storing.
	time.Sleep(50 * time.Millisecond)

	w := &Window{Name: "Research", Items: []structure.Item{{ID: "a", Parent: structure.NoParent}}}
	if err := p.Save(w); err != nil {
		t.Fatalf("save window: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == EventWindowsInvalidated {
				return
			}
			if evt.Type == EventWindowChanged {
				if evt.Window != "Research" {
					t.Fatalf("expected window 'Research', got %q", evt.Window)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for window change event")
		}
	}
}

func TestEventThrottleCoalesces(t *testing.T) {
	got := make(chan Event, 8)
	th := newEventThrottle(10 * time.Millisecond)
	defer th.Stop()

	for i := 0; i < 5; i++ {
		th.Enqueue(Event{Type: EventWindowChanged, Window: "a"}, func(ev Event) { got <- ev })
	}
	select {
	case ev := <-got:
		if ev.Window != "a" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
	select {
	case ev := <-got:
		t.Fatalf("unexpected second event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventThrottleInvalidationWins(t *testing.T) {
	got := make(chan Event, 8)
	th := newEventThrottle(10 * time.Millisecond)
	defer th.Stop()

	send := func(ev Event) { got <- ev }
	th.Enqueue(Event{Type: EventWindowChanged, Window: "a"}, send)
	th.Enqueue(Event{Type: EventWindowsInvalidated}, send)
	select {
	case ev := <-got:
		if ev.Type != EventWindowsInvalidated {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestWindowForPath(t *testing.T) {
	p := &persistence{basePath: "/base"}
	if name, ok := p.windowForPath("/base/windows/" + "6d61696e"); !ok || name != "main" {
		t.Fatalf("windowForPath = %q, %v", name, ok)
	}
	for _, path := range []string{"/base", "/base/windows", "/base/other/6d61696e", "/base/windows/zz"} {
		if name, ok := p.windowForPath(path); ok {
			t.Fatalf("%s mapped to %q", path, name)
		}
	}
}
