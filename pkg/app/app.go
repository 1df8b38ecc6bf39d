package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"tableflip.dev/tabtree/pkg/debug"
	"tableflip.dev/tabtree/pkg/reconcile"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/store"
	"tableflip.dev/tabtree/pkg/structure"
	"tableflip.dev/tabtree/pkg/tree"
)

var (
	errNoPersistence = errors.New("app: no persistence configured")

	// ErrUnknownWindow is returned for a window name that is not part of
	// the session.
	ErrUnknownWindow = errors.New("app: unknown window")
)

// Service provides high-level operations on saved window sessions.
// It wraps persistence and the tree engine so UIs and CLIs can share logic.
type Service struct {
	Persistence store.Persistence
	Policy      tree.Policy
	// Broadcaster, when set, receives the commands of broadcast operations
	// of every session.
	Broadcaster tree.Broadcaster
}

// Windows returns the sorted names of the saved windows.
func (s *Service) Windows(ctx context.Context) ([]string, error) {
	if s.Persistence == nil {
		return nil, errNoPersistence
	}
	names := s.Persistence.Windows(ctx)
	sort.Strings(names)
	return names, nil
}

// Watch subscribes to persistence change events.
func (s *Service) Watch(ctx context.Context) (<-chan store.Event, error) {
	if s.Persistence == nil {
		return nil, errNoPersistence
	}
	return s.Persistence.Watch(ctx)
}

// Delete removes a saved window.
func (s *Service) Delete(ctx context.Context, name string) error {
	if s.Persistence == nil {
		return errNoPersistence
	}
	return s.Persistence.Delete(name)
}

// Export returns the saved structure array of a window as JSON.
func (s *Service) Export(ctx context.Context, name string) ([]byte, error) {
	if s.Persistence == nil {
		return nil, errNoPersistence
	}
	w, err := s.Persistence.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return structure.Encode(w.Items)
}

// Import saves a structure array as the window name, replacing any saved
// window of that name. Legacy arrays of bare parent indices are accepted;
// their tabs get fresh ids. The structure is normalized by restoring it
// into a live forest, checking that forest and serializing it.
func (s *Service) Import(ctx context.Context, name string, data []byte) (*store.Window, error) {
	if s.Persistence == nil {
		return nil, errNoPersistence
	}
	items, err := structure.Decode(data)
	if err != nil {
		return nil, err
	}
	sess := s.newSession()
	if _, err := sess.restore(ctx, &store.Window{Name: name, Items: items}); err != nil {
		return nil, err
	}
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("app: import %q: %w", name, err)
	}
	if err := sess.Save(ctx); err != nil {
		return nil, err
	}
	return s.Persistence.Load(ctx, name)
}

// Open loads the named windows into a new live session. Unknown names
// fail with store.ErrNotFound unless create is set, in which case they
// start out empty.
func (s *Service) Open(ctx context.Context, create bool, names ...string) (*Session, error) {
	if s.Persistence == nil {
		return nil, errNoPersistence
	}
	sess := s.newSession()
	for _, name := range names {
		if _, ok := sess.windows[name]; ok {
			continue
		}
		w, err := s.Persistence.Load(ctx, name)
		switch {
		case errors.Is(err, store.ErrNotFound) && create:
			sess.NewWindow(name)
			continue
		case err != nil:
			return nil, err
		}
		if _, err := sess.restore(ctx, w); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

// OpenAll loads every saved window.
func (s *Service) OpenAll(ctx context.Context) (*Session, error) {
	names, err := s.Windows(ctx)
	if err != nil {
		return nil, err
	}
	return s.Open(ctx, false, names...)
}

func (s *Service) newSession() *Session {
	policy := s.Policy
	if policy == (tree.Policy{}) {
		policy = tree.DefaultPolicy()
	}
	reg := registry.NewMemory()
	opts := []tree.Option{tree.WithPolicy(policy), tree.WithLogger(debug.Logger())}
	if s.Broadcaster != nil {
		opts = append(opts, tree.WithBroadcaster(s.Broadcaster))
	}
	engine := tree.New(reg, opts...)
	reg.AddListener(engine)
	return &Session{
		svc:        s,
		Registry:   reg,
		Engine:     engine,
		Reconciler: reconcile.New(engine),
		windows:    make(map[string]registry.WindowID),
		names:      make(map[registry.WindowID]string),
	}
}

// Session is a set of windows restored into an in-memory registry with a
// tree engine observing it.
type Session struct {
	svc        *Service
	Registry   *registry.Memory
	Engine     *tree.Engine
	Reconciler *reconcile.Reconciler

	windows map[string]registry.WindowID
	names   map[registry.WindowID]string
}

// Names returns the window names of the session, sorted.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.windows))
	for name := range s.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Window resolves a window name.
func (s *Session) Window(name string) (registry.WindowID, error) {
	w, ok := s.windows[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownWindow, name)
	}
	return w, nil
}

// NameOf returns the name of a session window.
func (s *Session) NameOf(w registry.WindowID) string {
	return s.names[w]
}

// NewWindow adds an empty window to the session.
func (s *Session) NewWindow(name string) registry.WindowID {
	if w, ok := s.windows[name]; ok {
		return w
	}
	w := s.Registry.OpenWindow()
	s.windows[name] = w
	s.names[w] = name
	return w
}

// restore recreates the tabs of a saved window and rebuilds its forest.
// Ids already taken by another window of the session are replaced.
func (s *Session) restore(ctx context.Context, saved *store.Window) (registry.WindowID, error) {
	name := strings.TrimSpace(saved.Name)
	if name == "" {
		return 0, errors.New("app: window name required")
	}
	if _, ok := s.windows[name]; ok {
		return 0, fmt.Errorf("app: window %q already open", name)
	}
	w := s.NewWindow(name)
	tabs := make([]registry.TabID, 0, len(saved.Items))
	for _, item := range saved.Items {
		id := registry.TabID(item.ID)
		if _, taken := s.Registry.Get(id); id == "" || taken {
			id = registry.TabID(uuid.NewString())
		}
		tab, err := s.Registry.Create(ctx, w, registry.CreateProperties{
			ID:     id,
			Title:  item.Title,
			URL:    item.URL,
			Pinned: item.Pinned,
			Active: saved.Active != "" && item.ID == saved.Active,
		})
		if err != nil {
			return 0, err
		}
		tabs = append(tabs, tab.ID)
	}
	if r := s.Engine.ApplyStructure(tabs, saved.Items, tree.ApplyOptions{}); !r.OK() {
		return 0, fmt.Errorf("app: restore %q: %s", name, r)
	}
	// A structure can list a subtree apart from its tree; pull every
	// subtree together behind its root.
	for _, root := range s.Engine.Roots(w) {
		if err := s.Engine.FollowDescendants(ctx, root).Err(); err != nil {
			return 0, fmt.Errorf("app: restore %q: %w", name, err)
		}
	}
	debug.Logf("restored window %q with %d tabs", name, len(tabs))
	return w, nil
}

// Save writes every window of the session back to persistence.
func (s *Session) Save(ctx context.Context) error {
	var errs []error
	for _, name := range s.Names() {
		if err := s.SaveWindow(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveWindow writes one window back to persistence.
func (s *Session) SaveWindow(ctx context.Context, name string) error {
	w, err := s.Window(name)
	if err != nil {
		return err
	}
	saved := &store.Window{
		Name:  name,
		Items: s.Engine.WindowStructure(w, true),
	}
	for _, t := range s.Registry.Tabs(w) {
		if t.Active {
			saved.Active = string(t.ID)
		}
	}
	return s.svc.Persistence.Save(saved)
}

// Tab returns a tab of the session.
func (s *Session) Tab(id registry.TabID) (registry.Tab, error) {
	t, ok := s.Registry.Get(id)
	if !ok {
		return registry.Tab{}, fmt.Errorf("%w: %s", registry.ErrTabNotFound, id)
	}
	return t, nil
}

// Find resolves a tab reference: an exact id, else a unique id prefix.
func (s *Session) Find(ref string) (registry.TabID, error) {
	if _, ok := s.Registry.Get(registry.TabID(ref)); ok {
		return registry.TabID(ref), nil
	}
	var found []registry.TabID
	for _, w := range s.Registry.Windows() {
		for _, t := range s.Registry.Tabs(w) {
			if ref != "" && strings.HasPrefix(string(t.ID), ref) {
				found = append(found, t.ID)
			}
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w: %s", registry.ErrTabNotFound, ref)
	case 1:
		return found[0], nil
	}
	return "", fmt.Errorf("app: tab reference %q is ambiguous (%d matches)", ref, len(found))
}

// OpenTabOptions describes a tab to open.
type OpenTabOptions struct {
	Title  string
	URL    string
	Pinned bool
	Active bool
	// Opener is the tab the new tab was opened from.
	Opener registry.TabID
	// Behavior places the new tab relative to Opener. Defaults to orphan.
	Behavior tree.NewTabBehavior
}

// OpenTab creates a tab at the end of the window and places it in the
// forest according to the behavior.
func (s *Session) OpenTab(ctx context.Context, window string, opts OpenTabOptions) (registry.Tab, error) {
	w, err := s.Window(window)
	if err != nil {
		return registry.Tab{}, err
	}
	tab, err := s.Registry.Create(ctx, w, registry.CreateProperties{
		Title:  opts.Title,
		URL:    opts.URL,
		Pinned: opts.Pinned,
		Active: opts.Active,
	})
	if err != nil {
		return registry.Tab{}, err
	}
	behavior := opts.Behavior
	if behavior == "" {
		behavior = tree.NewTabOrphan
	}
	if r := s.Engine.BehaveAutoAttached(ctx, tab.ID, behavior, opts.Opener); !r.OK() {
		return tab, fmt.Errorf("app: place new tab: %s", r)
	}
	return s.Tab(tab.ID)
}

// Close closes a tab. Its children are handled by the close-parent
// behavior; the tabs that actually closed are returned.
func (s *Session) Close(ctx context.Context, id registry.TabID) ([]registry.TabID, error) {
	closing := s.Engine.ClosingTabs(id)
	if len(closing) == 0 {
		return nil, fmt.Errorf("%w: %s", registry.ErrTabNotFound, id)
	}
	if err := s.Registry.Remove(ctx, id); err != nil {
		return nil, err
	}
	return closing, nil
}

// Attach makes parent the parent of child and moves the child's subtree
// into place.
func (s *Session) Attach(ctx context.Context, child, parent registry.TabID, opts tree.AttachOptions) (tree.Placement, error) {
	p, report := s.Engine.AttachAndPlace(ctx, child, parent, opts)
	if !p.Result.OK() {
		return p, fmt.Errorf("app: attach %s to %s: %s", child, parent, p.Result)
	}
	return p, report.Err()
}

// Detach makes the tab a root and moves its subtree out of the tree it
// left, right after that tree.
func (s *Session) Detach(ctx context.Context, id registry.TabID) error {
	ancestors := s.Engine.Ancestors(id)
	if r := s.Engine.Detach(id, tree.DetachOptions{Broadcast: true}); !r.OK() {
		return fmt.Errorf("app: detach %s: %s", id, r)
	}
	if len(ancestors) == 0 {
		return nil
	}
	top := ancestors[len(ancestors)-1]
	last := top
	if d := s.Engine.Descendants(top); len(d) > 0 {
		last = d[len(d)-1]
	}
	return s.Engine.MoveSubtreeAfter(ctx, id, last).Err()
}

// SetCollapsed collapses or expands the subtree of the tab on behalf of
// the user.
func (s *Session) SetCollapsed(id registry.TabID, collapsed bool) error {
	r := s.Engine.ManualCollapseExpandSubtree(id, tree.CollapseOptions{Collapsed: collapsed, Broadcast: true})
	if !r.OK() {
		return fmt.Errorf("app: collapse %s: %s", id, r)
	}
	return nil
}

// Activate selects the tab.
func (s *Session) Activate(ctx context.Context, id registry.TabID) error {
	return s.Registry.Activate(ctx, id)
}

// MoveTabs moves or copies tabs into the named window, creating it when
// needed.
func (s *Session) MoveTabs(ctx context.Context, ids []registry.TabID, window string, opts reconcile.MoveOptions) ([]registry.TabID, error) {
	if window != "" {
		opts.DestinationWindow = s.NewWindow(window)
	}
	return s.Reconciler.MoveTabs(ctx, ids, opts)
}

// Drop completes a drag and drop into the named window, creating it when
// needed. An empty name drops into the window the tabs come from.
func (s *Session) Drop(ctx context.Context, window string, dd reconcile.DragDrop) ([]registry.TabID, error) {
	if window != "" {
		dd.DestinationWindow = s.NewWindow(window)
	}
	return s.Reconciler.PerformDragDrop(ctx, dd)
}

// SplitWindow opens a new window called name holding the tabs and their
// trees. The tabs are copied instead of moved with duplicate.
func (s *Session) SplitWindow(ctx context.Context, name string, ids []registry.TabID, duplicate bool) ([]registry.TabID, error) {
	if _, ok := s.windows[name]; ok {
		return nil, fmt.Errorf("app: window %q already exists", name)
	}
	w, moved, err := s.Reconciler.OpenNewWindowFromTabs(ctx, ids, reconcile.WindowOptions{Duplicate: duplicate})
	if w != 0 {
		s.windows[name] = w
		s.names[w] = name
	}
	return moved, err
}

// WindowsOf returns the names of the windows holding the tabs, sorted and
// without repeats.
func (s *Session) WindowsOf(ids ...registry.TabID) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range ids {
		t, ok := s.Registry.Get(id)
		if !ok {
			continue
		}
		if name := s.names[t.Window]; name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks the forest of every window of the session.
func (s *Session) Validate() error {
	var errs []error
	for _, name := range s.Names() {
		if err := s.Engine.Validate(s.windows[name]); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
