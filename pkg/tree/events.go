package tree

import (
	"fmt"
	"sort"

	"tableflip.dev/tabtree/pkg/registry"
)

// Event is a notification about a forest change. Events are delivered
// synchronously, in dispatch order, after the engine released its lock.
type Event interface {
	Describe() string
}

// Attached is dispatched when a tab was attached to (or reordered under) a
// parent.
type Attached struct {
	Window        registry.WindowID
	Child         registry.TabID
	Parent        registry.TabID
	OldParent     registry.TabID
	Index         int
	NewlyAttached bool
}

// Describe renders the event for logs.
func (e Attached) Describe() string {
	return fmt.Sprintf(`attached child:%q parent:%q index:%d new:%t`, e.Child, e.Parent, e.Index, e.NewlyAttached)
}

// Detached is dispatched when a tab lost its parent.
type Detached struct {
	Window    registry.WindowID
	Child     registry.TabID
	OldParent registry.TabID
}

// Describe renders the event for logs.
func (e Detached) Describe() string {
	return fmt.Sprintf(`detached child:%q from:%q`, e.Child, e.OldParent)
}

// LevelChanged is dispatched when a tab's depth changed.
type LevelChanged struct {
	Tab   registry.TabID
	Level int
}

// Describe renders the event for logs.
func (e LevelChanged) Describe() string {
	return fmt.Sprintf(`level tab:%q level:%d`, e.Tab, e.Level)
}

// SubtreeCollapseChanging is dispatched once per subtree collapse or expand.
type SubtreeCollapseChanging struct {
	Tab       registry.TabID
	Collapsed bool
	JustNow   bool
}

// Describe renders the event for logs.
func (e SubtreeCollapseChanging) Describe() string {
	return fmt.Sprintf(`subtree tab:%q collapsed:%t`, e.Tab, e.Collapsed)
}

// CollapseInfo describes a change of a tab's own visibility.
type CollapseInfo struct {
	Collapsed bool
	JustNow   bool
	// Anchor is the tab whose expansion triggered the change, for scrolling.
	Anchor registry.TabID
	// Last marks the final visible tab of an expansion.
	Last bool
	// ByAncestor is true when the new state matches what the ancestors
	// impose.
	ByAncestor bool
}

// CollapseStateChanging is dispatched right before a tab is hidden or shown.
type CollapseStateChanging struct {
	Tab registry.TabID
	CollapseInfo
}

// Describe renders the event for logs.
func (e CollapseStateChanging) Describe() string {
	return fmt.Sprintf(`collapsing tab:%q collapsed:%t`, e.Tab, e.Collapsed)
}

// CollapseStateChanged is dispatched right after a tab was hidden or shown.
type CollapseStateChanged struct {
	Tab registry.TabID
	CollapseInfo
}

// Describe renders the event for logs.
func (e CollapseStateChanged) Describe() string {
	return fmt.Sprintf(`collapsed tab:%q collapsed:%t last:%t`, e.Tab, e.Collapsed, e.Last)
}

// Subscribe registers fn for every event. The returned func unsubscribes.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) dispatch(ev Event) {
	e.subMu.Lock()
	ids := make([]int, 0, len(e.subs))
	for id := range e.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, e.subs[id])
	}
	e.subMu.Unlock()

	e.log.Debug("event", "event", ev.Describe())
	for _, fn := range fns {
		fn(ev)
	}
}

// emit queues ev for dispatch once the lock is released.
func (e *Engine) emit(ev Event) {
	e.effects = append(e.effects, func() { e.dispatch(ev) })
}
