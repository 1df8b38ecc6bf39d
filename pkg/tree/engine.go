// Package tree maintains a forest of tabs on top of a tab registry: parent
// and child links, depth, collapsed state, and the moves that keep every
// subtree contiguous in its window's linear order.
//
// All mutators return a Result instead of an error. Tabs can disappear at any
// time, so a stale reference is an ordinary outcome.
package tree

import (
	"context"
	"log/slog"
	"sync"

	"tableflip.dev/tabtree/pkg/debug"
	"tableflip.dev/tabtree/pkg/registry"
)

type node struct {
	id       registry.TabID
	window   registry.WindowID
	parent   registry.TabID
	children []registry.TabID
	level    int

	// collapsed: hidden because an ancestor's subtree is collapsed.
	collapsed bool
	// subtreeCollapsed: this tab's descendants are hidden.
	subtreeCollapsed bool
	manuallyExpanded bool
}

type forest struct {
	window   registry.WindowID
	nodes    map[registry.TabID]*node
	counters Counters
}

// Counters are the per-window in-flight operation counts. They are scoped
// guards, not locks: an operation increments on entry and decrements on
// every exit path.
type Counters struct {
	Moving              int
	ChildrenMoving      int
	Duplicating         int
	IntelligentCollapse int
	Busy                int
}

// Counter selects one of the Counters.
type Counter int

const (
	CounterMoving Counter = iota
	CounterChildrenMoving
	CounterDuplicating
	CounterIntelligentCollapse
	CounterBusy
)

func (c *Counters) ref(kind Counter) *int {
	switch kind {
	case CounterMoving:
		return &c.Moving
	case CounterChildrenMoving:
		return &c.ChildrenMoving
	case CounterDuplicating:
		return &c.Duplicating
	case CounterIntelligentCollapse:
		return &c.IntelligentCollapse
	default:
		return &c.Busy
	}
}

// NodeInfo is a snapshot of one tab's place in its tree.
type NodeInfo struct {
	ID               registry.TabID
	Window           registry.WindowID
	Parent           registry.TabID
	Children         []registry.TabID
	Level            int
	Collapsed        bool
	SubtreeCollapsed bool
	ManuallyExpanded bool
}

// HasChildren reports whether the tab has children.
func (n NodeInfo) HasChildren() bool {
	return len(n.Children) > 0
}

// Engine owns the forests of every window known to a registry.
type Engine struct {
	reg    registry.Registry
	policy Policy
	log    *slog.Logger
	bus    Broadcaster

	mu       sync.Mutex
	forests  map[registry.WindowID]*forest
	windowOf map[registry.TabID]registry.WindowID
	removing map[registry.TabID]bool
	silent   map[registry.TabID]int
	effects  []func()

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the engine policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithBroadcaster publishes broadcast commands to b.
func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) { e.bus = b }
}

// New returns an engine over reg. Register it as a listener of reg so that
// it learns about tab lifecycle changes.
func New(reg registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:      reg,
		policy:   DefaultPolicy(),
		log:      debug.Logger(),
		forests:  make(map[registry.WindowID]*forest),
		windowOf: make(map[registry.TabID]registry.WindowID),
		removing: make(map[registry.TabID]bool),
		silent:   make(map[registry.TabID]int),
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Registry returns the registry the engine works on.
func (e *Engine) Registry() registry.Registry {
	return e.reg
}

func (e *Engine) lock() {
	e.mu.Lock()
}

// unlock releases the lock, then runs the effects queued while it was held:
// event dispatch, broadcasts, registry activations.
func (e *Engine) unlock() {
	effects := e.effects
	e.effects = nil
	e.mu.Unlock()
	for _, fn := range effects {
		fn()
	}
}

func (e *Engine) forestLocked(w registry.WindowID) *forest {
	f, ok := e.forests[w]
	if !ok {
		f = &forest{window: w, nodes: make(map[registry.TabID]*node)}
		e.forests[w] = f
	}
	return f
}

func (e *Engine) nodeLocked(id registry.TabID) *node {
	if id == "" {
		return nil
	}
	w, ok := e.windowOf[id]
	if !ok {
		return nil
	}
	f, ok := e.forests[w]
	if !ok {
		return nil
	}
	return f.nodes[id]
}

// addLocked registers a new root node for tab.
func (e *Engine) addLocked(tab registry.Tab) *node {
	if n := e.nodeLocked(tab.ID); n != nil {
		return n
	}
	n := &node{id: tab.ID, window: tab.Window}
	e.forestLocked(tab.Window).nodes[tab.ID] = n
	e.windowOf[tab.ID] = tab.Window
	return n
}

func (e *Engine) deleteLocked(n *node) {
	if f, ok := e.forests[n.window]; ok {
		delete(f.nodes, n.id)
		if len(f.nodes) == 0 && f.counters == (Counters{}) {
			delete(e.forests, n.window)
		}
	}
	delete(e.windowOf, n.id)
	delete(e.removing, n.id)
}

func (e *Engine) parentLocked(n *node) *node {
	return e.nodeLocked(n.parent)
}

// ancestorsLocked returns the parent chain, nearest first.
func (e *Engine) ancestorsLocked(n *node) []*node {
	var out []*node
	seen := map[registry.TabID]bool{n.id: true}
	for p := e.parentLocked(n); p != nil && !seen[p.id]; p = e.parentLocked(p) {
		seen[p.id] = true
		out = append(out, p)
	}
	return out
}

func (e *Engine) rootLocked(n *node) *node {
	ancestors := e.ancestorsLocked(n)
	if len(ancestors) == 0 {
		return n
	}
	return ancestors[len(ancestors)-1]
}

func (e *Engine) childrenLocked(n *node) []*node {
	out := make([]*node, 0, len(n.children))
	for _, id := range n.children {
		if c := e.nodeLocked(id); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// descendantsLocked returns the subtree below n in depth-first order.
func (e *Engine) descendantsLocked(n *node) []*node {
	var out []*node
	seen := map[registry.TabID]bool{n.id: true}
	var walk func(*node)
	walk = func(p *node) {
		for _, c := range e.childrenLocked(p) {
			if seen[c.id] {
				continue
			}
			seen[c.id] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

func (e *Engine) isPinned(id registry.TabID) bool {
	tab, ok := e.reg.Get(id)
	return ok && tab.Pinned
}

func (e *Engine) isActive(id registry.TabID) bool {
	tab, ok := e.reg.Get(id)
	return ok && tab.Active
}

// activateLocked queues an activation. Silent activations are not treated
// as user selections by TabActivated.
func (e *Engine) activateLocked(id registry.TabID, silent bool) {
	if silent {
		e.silent[id]++
	}
	e.effects = append(e.effects, func() {
		if err := e.reg.Activate(context.Background(), id); err != nil {
			e.log.Debug("activate failed", "tab", id, "err", err)
			if silent {
				e.lock()
				e.consumeSilentLocked(id)
				e.unlock()
			}
		}
	})
}

func (e *Engine) consumeSilentLocked(id registry.TabID) bool {
	if e.silent[id] == 0 {
		return false
	}
	e.silent[id]--
	if e.silent[id] == 0 {
		delete(e.silent, id)
	}
	return true
}

func (e *Engine) infoLocked(n *node) NodeInfo {
	return NodeInfo{
		ID:               n.id,
		Window:           n.window,
		Parent:           n.parent,
		Children:         append([]registry.TabID(nil), n.children...),
		Level:            n.level,
		Collapsed:        n.collapsed,
		SubtreeCollapsed: n.subtreeCollapsed,
		ManuallyExpanded: n.manuallyExpanded,
	}
}

// Has reports whether the tab is part of a forest.
func (e *Engine) Has(id registry.TabID) bool {
	e.lock()
	defer e.unlock()
	return e.nodeLocked(id) != nil
}

// Node returns a snapshot of the tab's node.
func (e *Engine) Node(id registry.TabID) (NodeInfo, bool) {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return NodeInfo{}, false
	}
	return e.infoLocked(n), true
}

// WindowOf returns the window whose forest holds the tab.
func (e *Engine) WindowOf(id registry.TabID) (registry.WindowID, bool) {
	e.lock()
	defer e.unlock()
	w, ok := e.windowOf[id]
	return w, ok
}

// Parent returns the tab's parent or "".
func (e *Engine) Parent(id registry.TabID) registry.TabID {
	e.lock()
	defer e.unlock()
	if n := e.nodeLocked(id); n != nil {
		return n.parent
	}
	return ""
}

// Children returns the tab's children in order.
func (e *Engine) Children(id registry.TabID) []registry.TabID {
	e.lock()
	defer e.unlock()
	if n := e.nodeLocked(id); n != nil {
		return append([]registry.TabID(nil), n.children...)
	}
	return nil
}

// Descendants returns the subtree below the tab in depth-first order.
func (e *Engine) Descendants(id registry.TabID) []registry.TabID {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return nil
	}
	return ids(e.descendantsLocked(n))
}

// Ancestors returns the parent chain of the tab, nearest first.
func (e *Engine) Ancestors(id registry.TabID) []registry.TabID {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return nil
	}
	return ids(e.ancestorsLocked(n))
}

// Roots returns the roots of the window's forest in linear order.
func (e *Engine) Roots(window registry.WindowID) []registry.TabID {
	e.lock()
	defer e.unlock()
	var out []registry.TabID
	for _, id := range e.orderLocked(window).ids {
		if n := e.nodeLocked(id); n != nil && n.parent == "" {
			out = append(out, id)
		}
	}
	return out
}

// Forest returns a snapshot of every node of the window in linear order.
func (e *Engine) Forest(window registry.WindowID) []NodeInfo {
	e.lock()
	defer e.unlock()
	var out []NodeInfo
	for _, id := range e.orderLocked(window).ids {
		if n := e.nodeLocked(id); n != nil {
			out = append(out, e.infoLocked(n))
		}
	}
	return out
}

// Counters returns the in-flight operation counts of the window.
func (e *Engine) Counters(window registry.WindowID) Counters {
	e.lock()
	defer e.unlock()
	if f, ok := e.forests[window]; ok {
		return f.counters
	}
	return Counters{}
}

// Track increments a window counter until the returned release is called.
func (e *Engine) Track(window registry.WindowID, kind Counter) (release func()) {
	e.lock()
	e.enterLocked(window, kind)
	e.unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			e.lock()
			e.leaveLocked(window, kind)
			e.unlock()
		})
	}
}

func (e *Engine) enterLocked(window registry.WindowID, kind Counter) {
	*e.forestLocked(window).counters.ref(kind)++
}

func (e *Engine) leaveLocked(window registry.WindowID, kind Counter) {
	f := e.forestLocked(window)
	if c := f.counters.ref(kind); *c > 0 {
		*c--
	}
}

// order is a window's linear tab order as reported by the registry.
type order struct {
	ids []registry.TabID
	pos map[registry.TabID]int
}

func (e *Engine) orderLocked(window registry.WindowID) order {
	tabs := e.reg.Tabs(window)
	o := order{ids: make([]registry.TabID, len(tabs)), pos: make(map[registry.TabID]int, len(tabs))}
	for i, t := range tabs {
		o.ids[i] = t.ID
		o.pos[t.ID] = i
	}
	return o
}

func (o order) index(id registry.TabID) int {
	if i, ok := o.pos[id]; ok {
		return i
	}
	return -1
}

func (o order) next(id registry.TabID) registry.TabID {
	if i := o.index(id); i >= 0 && i+1 < len(o.ids) {
		return o.ids[i+1]
	}
	return ""
}

func (o order) prev(id registry.TabID) registry.TabID {
	if i := o.index(id); i > 0 {
		return o.ids[i-1]
	}
	return ""
}

func (o order) last() registry.TabID {
	if len(o.ids) == 0 {
		return ""
	}
	return o.ids[len(o.ids)-1]
}

// without returns the order with the given tabs removed.
func (o order) without(skip map[registry.TabID]bool) order {
	out := order{pos: make(map[registry.TabID]int, len(o.ids))}
	for _, id := range o.ids {
		if skip[id] {
			continue
		}
		out.pos[id] = len(out.ids)
		out.ids = append(out.ids, id)
	}
	return out
}

func ids(nodes []*node) []registry.TabID {
	out := make([]registry.TabID, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

func set(list []registry.TabID) map[registry.TabID]bool {
	out := make(map[registry.TabID]bool, len(list))
	for _, id := range list {
		out[id] = true
	}
	return out
}
