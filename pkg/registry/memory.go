package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a concurrency-safe in-memory Registry. Duplicated and transferred
// tabs materialize after Delay, the way a browser reports them
// asynchronously.
type Memory struct {
	// Delay postpones materialization of duplicated and transferred tabs.
	Delay time.Duration
	// BeforeMove, when set, runs before every Move and can veto it.
	BeforeMove func(id TabID, index int) error

	mu        sync.Mutex
	windows   map[WindowID]*memWindow
	tabs      map[TabID]*Tab
	nextWin   WindowID
	listeners []Listener
}

type memWindow struct {
	order []TabID
}

var _ Registry = (*Memory)(nil)

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{
		windows: make(map[WindowID]*memWindow),
		tabs:    make(map[TabID]*Tab),
		nextWin: 1,
	}
}

// AddListener registers l for lifecycle notifications.
func (m *Memory) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// OpenWindow creates an empty window without notifying anyone.
func (m *Memory) OpenWindow() WindowID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openWindowLocked()
}

func (m *Memory) openWindowLocked() WindowID {
	id := m.nextWin
	m.nextWin++
	m.windows[id] = &memWindow{}
	return id
}

func (m *Memory) Get(id TabID) (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tabs[id]
	if !ok {
		return Tab{}, false
	}
	return m.snapshotLocked(t), true
}

func (m *Memory) Tabs(window WindowID) []Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[window]
	if !ok {
		return nil
	}
	out := make([]Tab, 0, len(w.order))
	for i, id := range w.order {
		t := *m.tabs[id]
		t.Index = i
		out = append(out, t)
	}
	return out
}

func (m *Memory) Windows() []WindowID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WindowID, 0, len(m.windows))
	for id := range m.windows {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Memory) Create(ctx context.Context, window WindowID, props CreateProperties) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return Tab{}, err
	}
	m.mu.Lock()
	w, ok := m.windows[window]
	if !ok {
		m.mu.Unlock()
		return Tab{}, fmt.Errorf("%w: %d", ErrWindowNotFound, window)
	}
	id := props.ID
	if id == "" {
		id = newID()
	}
	if _, exists := m.tabs[id]; exists {
		m.mu.Unlock()
		return Tab{}, fmt.Errorf("registry: tab %q already exists", id)
	}
	index := len(w.order)
	if props.Index != nil {
		index = *props.Index
	}
	t := &Tab{ID: id, Window: window, Pinned: props.Pinned, Title: props.Title, URL: props.URL}
	m.insertLocked(w, t, index)
	if props.Active {
		m.activateLocked(w, id)
	}
	tab := m.snapshotLocked(t)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.TabCreated(tab)
	}
	return tab, nil
}

func (m *Memory) CreateWindow(ctx context.Context) (WindowID, TabID, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	w := m.OpenWindow()
	tab, err := m.Create(ctx, w, CreateProperties{URL: "about:blank", Active: true})
	if err != nil {
		return 0, "", err
	}
	return w, tab.ID, nil
}

func (m *Memory) Remove(ctx context.Context, id TabID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	tab := m.snapshotLocked(t)
	w := m.windows[t.Window]
	w.order = removeID(w.order, id)
	delete(m.tabs, id)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.TabRemoved(tab)
	}
	if tab.Active {
		m.activateFallback(tab.Window, tab.Index)
	}
	return nil
}

// activateFallback activates the tab at index (or the one before it) when a
// removal left the window without an active tab and no listener picked one.
func (m *Memory) activateFallback(window WindowID, index int) {
	m.mu.Lock()
	w, ok := m.windows[window]
	if !ok || len(w.order) == 0 {
		m.mu.Unlock()
		return
	}
	for _, id := range w.order {
		if m.tabs[id].Active {
			m.mu.Unlock()
			return
		}
	}
	if index >= len(w.order) {
		index = len(w.order) - 1
	}
	id := w.order[index]
	m.activateLocked(w, id)
	tab := m.snapshotLocked(m.tabs[id])
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.TabActivated(tab)
	}
}

func (m *Memory) Activate(ctx context.Context, id TabID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	m.activateLocked(m.windows[t.Window], id)
	tab := m.snapshotLocked(t)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.TabActivated(tab)
	}
	return nil
}

func (m *Memory) Move(ctx context.Context, id TabID, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.BeforeMove != nil {
		if err := m.BeforeMove(id, index); err != nil {
			return err
		}
	}
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	w := m.windows[t.Window]
	from := indexOf(w.order, id)
	w.order = removeID(w.order, id)
	m.insertLocked(w, t, index)
	to := indexOf(w.order, id)
	if from == to {
		m.mu.Unlock()
		return nil
	}
	tab := m.snapshotLocked(t)
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.TabMoved(tab, from)
	}
	return nil
}

func (m *Memory) Duplicate(ctx context.Context, id TabID) (TabID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	dup := &Tab{ID: newID(), Window: t.Window, Pinned: t.Pinned, Title: t.Title, URL: t.URL}
	window := t.Window
	m.mu.Unlock()

	m.materialize(func() (Tab, bool) {
		w, ok := m.windows[window]
		if !ok {
			return Tab{}, false
		}
		index := len(w.order)
		if src, ok := m.tabs[id]; ok && src.Window == window {
			index = indexOf(w.order, id) + 1
		}
		m.insertLocked(w, dup, index)
		return m.snapshotLocked(dup), true
	}, func(l Listener, tab Tab) { l.TabCreated(tab) })
	return dup.ID, nil
}

func (m *Memory) TransferToWindow(ctx context.Context, id TabID, window WindowID, index int) (TabID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	if _, ok := m.windows[window]; !ok {
		m.mu.Unlock()
		return "", fmt.Errorf("%w: %d", ErrWindowNotFound, window)
	}
	if t.Window == window {
		m.mu.Unlock()
		return id, m.Move(ctx, id, index)
	}
	from := t.Window
	old := m.snapshotLocked(t)
	src := m.windows[from]
	src.order = removeID(src.order, id)
	delete(m.tabs, id)
	moved := &Tab{ID: id, Window: window, Pinned: t.Pinned, Title: t.Title, URL: t.URL}
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l.TabDetached(old, from)
	}
	if old.Active {
		m.activateFallback(from, old.Index)
	}

	m.materialize(func() (Tab, bool) {
		w, ok := m.windows[window]
		if !ok {
			return Tab{}, false
		}
		m.insertLocked(w, moved, index)
		return m.snapshotLocked(moved), true
	}, func(l Listener, tab Tab) { l.TabAttached(tab) })
	return id, nil
}

// materialize runs apply under the lock, now or after Delay, and notifies
// listeners about the resulting tab.
func (m *Memory) materialize(apply func() (Tab, bool), notify func(Listener, Tab)) {
	run := func() {
		m.mu.Lock()
		tab, ok := apply()
		listeners := m.listenersLocked()
		m.mu.Unlock()
		if !ok {
			return
		}
		for _, l := range listeners {
			notify(l, tab)
		}
	}
	if m.Delay <= 0 {
		run()
		return
	}
	time.AfterFunc(m.Delay, run)
}

// insertLocked places t into w at index, keeping pinned tabs ahead of the
// others.
func (m *Memory) insertLocked(w *memWindow, t *Tab, index int) {
	pinned := 0
	for _, id := range w.order {
		if m.tabs[id] != nil && m.tabs[id].Pinned {
			pinned++
		}
	}
	lo, hi := pinned, len(w.order)
	if t.Pinned {
		lo, hi = 0, pinned
	}
	if index < lo {
		index = lo
	}
	if index > hi {
		index = hi
	}
	w.order = append(w.order, "")
	copy(w.order[index+1:], w.order[index:])
	w.order[index] = t.ID
	m.tabs[t.ID] = t
}

func (m *Memory) activateLocked(w *memWindow, id TabID) {
	for _, other := range w.order {
		m.tabs[other].Active = other == id
	}
}

func (m *Memory) snapshotLocked(t *Tab) Tab {
	out := *t
	out.Index = -1
	if w, ok := m.windows[t.Window]; ok {
		out.Index = indexOf(w.order, t.ID)
	}
	return out
}

func (m *Memory) listenersLocked() []Listener {
	return append([]Listener(nil), m.listeners...)
}

func indexOf(order []TabID, id TabID) int {
	for i, other := range order {
		if other == id {
			return i
		}
	}
	return -1
}

func removeID(order []TabID, id TabID) []TabID {
	i := indexOf(order, id)
	if i < 0 {
		return order
	}
	return append(order[:i], order[i+1:]...)
}

func newID() TabID {
	return TabID(uuid.NewString())
}
