package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) TabCreated(tab Tab) { r.add("created:" + string(tab.ID)) }
func (r *recorder) TabRemoved(tab Tab) { r.add("removed:" + string(tab.ID)) }
func (r *recorder) TabMoved(tab Tab, _ int) { r.add("moved:" + string(tab.ID)) }
func (r *recorder) TabActivated(tab Tab) { r.add("activated:" + string(tab.ID)) }
func (r *recorder) TabDetached(tab Tab, _ WindowID) { r.add("detached:" + string(tab.ID)) }
func (r *recorder) TabAttached(tab Tab) { r.add("attached:" + string(tab.ID)) }

func order(r Registry, w WindowID) []TabID {
	var out []TabID
	for _, t := range r.Tabs(w) {
		out = append(out, t.ID)
	}
	return out
}

func equalIDs(a, b []TabID) bool {
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

func open(t *testing.T, m *Memory, w WindowID, ids ...TabID) {
	t.Helper()
	for _, id := range ids {
		if _, err := m.Create(context.Background(), w, CreateProperties{ID: id}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
}

func TestMemoryCreateAndMove(t *testing.T) {
	m := NewMemory()
	rec := &recorder{}
	m.AddListener(rec)
	w := m.OpenWindow()
	open(t, m, w, "a", "b", "c")

	if err := m.Move(context.Background(), "a", 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got, want := order(m, w), []TabID{"b", "c", "a"}; !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if idx := Index(m, "a"); idx != 2 {
		t.Fatalf("index of a = %d, want 2", idx)
	}
	events := rec.snapshot()
	if events[len(events)-1] != "moved:a" {
		t.Fatalf("last event = %q, want moved:a", events[len(events)-1])
	}
}

func TestMemoryPinnedStayFirst(t *testing.T) {
	m := NewMemory()
	w := m.OpenWindow()
	open(t, m, w, "a", "b")
	if _, err := m.Create(context.Background(), w, CreateProperties{ID: "p", Pinned: true}); err != nil {
		t.Fatalf("create pinned: %v", err)
	}
	if got, want := order(m, w), []TabID{"p", "a", "b"}; !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if err := m.Move(context.Background(), "b", 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got, want := order(m, w), []TabID{"p", "b", "a"}; !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestMemoryRemoveActivatesNeighbour(t *testing.T) {
	m := NewMemory()
	w := m.OpenWindow()
	open(t, m, w, "a", "b", "c")
	if err := m.Activate(context.Background(), "b"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := m.Remove(context.Background(), "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	tab, ok := m.Get("c")
	if !ok || !tab.Active {
		t.Fatalf("expected c to become active, got %+v", tab)
	}
	if err := m.Remove(context.Background(), "b"); !errors.Is(err, ErrTabNotFound) {
		t.Fatalf("second remove err = %v, want ErrTabNotFound", err)
	}
}

func TestMemoryDuplicateMaterializesAfterDelay(t *testing.T) {
	m := NewMemory()
	m.Delay = 20 * time.Millisecond
	rec := &recorder{}
	m.AddListener(rec)
	w := m.OpenWindow()
	open(t, m, w, "a", "b")

	id, err := m.Duplicate(context.Background(), "a")
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if _, ok := m.Get(id); ok {
		t.Fatalf("duplicate visible before delay")
	}
	deadline := time.Now().Add(time.Second)
	for {
		if tab, ok := m.Get(id); ok {
			if tab.Index != 1 {
				t.Fatalf("duplicate index = %d, want 1", tab.Index)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for duplicate")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMemoryTransferKeepsID(t *testing.T) {
	m := NewMemory()
	rec := &recorder{}
	m.AddListener(rec)
	src := m.OpenWindow()
	dst := m.OpenWindow()
	open(t, m, src, "a", "b")
	open(t, m, dst, "x")

	id, err := m.TransferToWindow(context.Background(), "a", dst, 0)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if id != "a" {
		t.Fatalf("transfer id = %q, want a", id)
	}
	if got, want := order(m, dst), []TabID{"a", "x"}; !equalIDs(got, want) {
		t.Fatalf("destination order = %v, want %v", got, want)
	}
	if got, want := order(m, src), []TabID{"b"}; !equalIDs(got, want) {
		t.Fatalf("source order = %v, want %v", got, want)
	}
	events := rec.snapshot()
	if got := events[len(events)-2:]; got[0] != "detached:a" || got[1] != "attached:a" {
		t.Fatalf("events = %v", got)
	}
}

func TestMemoryBeforeMoveVeto(t *testing.T) {
	m := NewMemory()
	w := m.OpenWindow()
	open(t, m, w, "a", "b")
	boom := errors.New("boom")
	m.BeforeMove = func(TabID, int) error { return boom }
	if err := m.Move(context.Background(), "a", 1); !errors.Is(err, boom) {
		t.Fatalf("move err = %v, want boom", err)
	}
	if got, want := order(m, w), []TabID{"a", "b"}; !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}
