package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/store"
	"tableflip.dev/tabtree/pkg/structure"
	"tableflip.dev/tabtree/pkg/tree"
)

type memoryStore struct {
	mu      sync.Mutex
	windows map[string]store.Window
	saves   int
}

func newMemoryStore() *memoryStore {
	collapsed := false
	m := &memoryStore{windows: make(map[string]store.Window)}
	m.windows["main"] = store.Window{Name: "main", Active: "a", Items: []structure.Item{
		{ID: "a", Parent: structure.NoParent, Collapsed: &collapsed, Title: "Alpha"},
		{ID: "b", Parent: structure.NoParent, Collapsed: &collapsed, Title: "Beta"},
		{ID: "c", Parent: structure.NoParent, Collapsed: &collapsed, Title: "Gamma"},
	}}
	return m
}

func (m *memoryStore) Windows(ctx context.Context) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.windows))
	for name := range m.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *memoryStore) Load(ctx context.Context, name string) (*store.Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	w.Items = append([]structure.Item(nil), w.Items...)
	return &w, nil
}

func (m *memoryStore) Save(w *store.Window) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	cp.Items = append([]structure.Item(nil), w.Items...)
	m.windows[w.Name] = cp
	m.saves++
	return nil
}

func (m *memoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, name)
	return nil
}

func (m *memoryStore) Watch(ctx context.Context) (<-chan store.Event, error) {
	return nil, errors.New("not supported")
}

func newTestService(m *memoryStore) *Service {
	policy := tree.DefaultPolicy()
	policy.MaxDelayForDuplication = 200 * time.Millisecond
	policy.PollInterval = 5 * time.Millisecond
	return NewService(&app.Service{Persistence: m, Policy: policy})
}

func TestServiceListWindows(t *testing.T) {
	svc := newTestService(newMemoryStore())

	windows, err := svc.ListWindows(context.Background())
	if err != nil {
		t.Fatalf("ListWindows failed: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	if windows[0].Name != "main" || windows[0].Tabs != 3 || windows[0].Trees != 3 {
		t.Fatalf("unexpected summary %+v", windows[0])
	}
	if windows[0].Active != "a" {
		t.Fatalf("expected active tab a, got %q", windows[0].Active)
	}
}

func TestServiceAttachAndCollapse(t *testing.T) {
	ctx := context.Background()
	m := newMemoryStore()
	svc := newTestService(m)

	dto, err := svc.AttachTab(ctx, "c", "a")
	if err != nil {
		t.Fatalf("AttachTab failed: %v", err)
	}
	if dto.Parent != "a" || dto.Level != 1 {
		t.Fatalf("expected c below a, got %+v", dto)
	}

	// A fresh load sees the saved tree.
	c, err := svc.TabByID(ctx, "c")
	if err != nil {
		t.Fatalf("TabByID failed: %v", err)
	}
	if c.Parent != "a" {
		t.Fatalf("expected saved parent a, got %q", c.Parent)
	}

	a, err := svc.SetCollapsed(ctx, "a", true)
	if err != nil {
		t.Fatalf("SetCollapsed failed: %v", err)
	}
	if !a.SubtreeCollapsed {
		t.Fatalf("expected a collapsed")
	}
	tabs, err := svc.ListTabs(ctx, "main")
	if err != nil {
		t.Fatalf("ListTabs failed: %v", err)
	}
	for _, tab := range tabs {
		if tab.ID == "c" && !tab.Hidden {
			t.Fatalf("expected c hidden below collapsed a")
		}
	}
}

func TestServiceDetach(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	if _, err := svc.AttachTab(ctx, "b", "a"); err != nil {
		t.Fatalf("AttachTab failed: %v", err)
	}
	dto, err := svc.DetachTab(ctx, "b")
	if err != nil {
		t.Fatalf("DetachTab failed: %v", err)
	}
	if dto.Parent != "" || dto.Level != 0 {
		t.Fatalf("expected b to be a root, got %+v", dto)
	}
}

func TestServiceOpenTabAsChild(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore())

	dto, err := svc.OpenTab(ctx, OpenTabOptions{
		Window:   "main",
		Title:    "Delta",
		Opener:   "b",
		Behavior: string(tree.NewTabChild),
	})
	if err != nil {
		t.Fatalf("OpenTab failed: %v", err)
	}
	if dto.Parent != "b" {
		t.Fatalf("expected parent b, got %q", dto.Parent)
	}
	if dto.Index != 2 {
		t.Fatalf("expected the new tab right after b, got index %d", dto.Index)
	}
	if dto.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestServiceCloseUnknownTabSavesNothing(t *testing.T) {
	m := newMemoryStore()
	svc := newTestService(m)

	if _, err := svc.CloseTab(context.Background(), "zzz"); !errors.Is(err, registry.ErrTabNotFound) {
		t.Fatalf("expected tab not found, got %v", err)
	}
	if m.saves != 0 {
		t.Fatalf("expected no saves, got %d", m.saves)
	}
}

func TestServiceMoveTabsToNewWindow(t *testing.T) {
	ctx := context.Background()
	m := newMemoryStore()
	svc := newTestService(m)

	tabs, err := svc.MoveTabs(ctx, MoveTabsOptions{IDs: []string{"b"}, Window: "other"})
	if err != nil {
		t.Fatalf("MoveTabs failed: %v", err)
	}
	if len(tabs) != 1 || tabs[0].Window != "other" {
		t.Fatalf("unexpected moved tabs %+v", tabs)
	}

	windows, err := svc.ListWindows(ctx)
	if err != nil {
		t.Fatalf("ListWindows failed: %v", err)
	}
	counts := make(map[string]int)
	for _, w := range windows {
		counts[w.Name] = w.Tabs
	}
	if counts["main"] != 2 || counts["other"] != 1 {
		t.Fatalf("unexpected tab counts %v", counts)
	}
}
