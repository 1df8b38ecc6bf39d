package tree

import (
	"context"
	"errors"
	"strings"

	"tableflip.dev/tabtree/pkg/registry"
)

var _ registry.Listener = (*Engine)(nil)

// TabCreated adds the new tab as a root.
func (e *Engine) TabCreated(tab registry.Tab) {
	e.lock()
	defer e.unlock()
	e.addLocked(tab)
}

// TabRemoved resolves the children of the removed tab according to the
// close-parent behavior, moves focus if the tab was active, and forgets it.
func (e *Engine) TabRemoved(tab registry.Tab) {
	e.lock()
	n := e.nodeLocked(tab.ID)
	if n == nil {
		e.unlock()
		return
	}
	moves := e.removeLocked(n, tab)
	e.unlock()
	e.runMoves(context.Background(), Applied, moves)
}

func (e *Engine) removeLocked(n *node, tab registry.Tab) []pendingMove {
	parent := e.parentLocked(n)
	behavior := e.closeParentBehaviorLocked(n, parent, CloseOptions{})
	if e.removing[n.id] {
		behavior = SimplyDetach
	}

	if tab.Active && e.policy.MoveFocusOnActiveTabClosed {
		if next := e.nextFocusLocked(n, parent, behavior, nil); next != nil {
			e.activateLocked(next.id, false)
		}
	}

	var closing []registry.TabID
	if behavior == CloseAllChildren {
		for _, d := range e.descendantsLocked(n) {
			e.removing[d.id] = true
			closing = append(closing, d.id)
		}
	}

	opts := DetachAllOptions{Behavior: behavior, Group: e.isGroupTab(tab)}
	if parent == nil {
		o := e.orderLocked(n.window)
		for i := tab.Index; i >= 0 && i < len(o.ids); i++ {
			if m := e.nodeLocked(o.ids[i]); m != nil && m.parent == "" && m != n {
				opts.nextTab = m.id
				break
			}
		}
	} else {
		e.detachLocked(n, false)
	}
	_, moves := e.detachAllChildrenLocked(n, parent, opts)
	e.deleteLocked(n)

	for _, id := range closing {
		id := id
		e.effects = append(e.effects, func() {
			if err := e.reg.Remove(context.Background(), id); err != nil && !errors.Is(err, registry.ErrTabNotFound) {
				e.log.Debug("close descendant failed", "tab", id, "err", err)
			}
		})
	}
	return moves
}

func (e *Engine) isGroupTab(tab registry.Tab) bool {
	return e.policy.GroupTabURLPrefix != "" && strings.HasPrefix(tab.URL, e.policy.GroupTabURLPrefix)
}

// nextFocusLocked picks the tab to activate when n, the active tab, goes
// away: its first child under a promote behavior, else its parent or
// previous sibling when n is the last child.
func (e *Engine) nextFocusLocked(n, parent *node, behavior CloseParentBehavior, ignored map[registry.TabID]bool) *node {
	var next *node
	children := e.childrenLocked(n)
	if len(children) > 0 && (behavior == PromoteAllChildren || behavior == PromoteFirstChild) {
		next = children[0]
	}
	if next == nil && parent != nil && len(parent.children) > 0 && parent.children[len(parent.children)-1] == n.id {
		if parent.children[0] == n.id {
			next = parent
		} else {
			next = e.nodeLocked(e.previousSiblingLocked(n))
		}
	}
	if next != nil && ignored[next.id] {
		next = nil
	}
	if next != nil && next.collapsed {
		next = e.visibleAncestorOrSelfLocked(next)
	}
	return next
}

// MoveFocusFromClosing activates a tab that should take over focus from id,
// which is about to leave its window. Tabs in ignored are never picked. It
// reports whether a tab was activated.
func (e *Engine) MoveFocusFromClosing(ctx context.Context, id registry.TabID, ignored []registry.TabID) bool {
	e.lock()
	n := e.nodeLocked(id)
	if n == nil {
		e.unlock()
		return false
	}
	skip := set(ignored)
	skip[id] = true
	parent := e.parentLocked(n)
	next := e.nextFocusLocked(n, parent, e.closeParentBehaviorLocked(n, parent, CloseOptions{}), skip)
	var target registry.TabID
	if next != nil && !skip[next.id] {
		target = next.id
	} else {
		target = e.nextVisibleLocked(n, skip)
	}
	e.unlock()
	if target == "" {
		return false
	}
	if err := e.reg.Activate(ctx, target); err != nil {
		e.log.Debug("move focus failed", "tab", target, "err", err)
		return false
	}
	return true
}

// nextVisibleLocked returns the nearest visible tab after n, or before it.
func (e *Engine) nextVisibleLocked(n *node, skip map[registry.TabID]bool) registry.TabID {
	o := e.orderLocked(n.window)
	i := o.index(n.id)
	visible := func(id registry.TabID) bool {
		if skip[id] {
			return false
		}
		m := e.nodeLocked(id)
		return m == nil || !m.collapsed
	}
	for j := i + 1; i >= 0 && j < len(o.ids); j++ {
		if visible(o.ids[j]) {
			return o.ids[j]
		}
	}
	for j := i - 1; j >= 0; j-- {
		if visible(o.ids[j]) {
			return o.ids[j]
		}
	}
	return ""
}

// TabMoved repairs the forest after a move the engine did not make itself:
// a tab moved away from its parent is detached, a tab dropped into the
// middle of a tree joins it, and descendants follow their parent.
func (e *Engine) TabMoved(tab registry.Tab, _ int) {
	e.lock()
	n := e.nodeLocked(tab.ID)
	if n == nil {
		e.unlock()
		return
	}
	if f, ok := e.forests[n.window]; ok && (f.counters.Moving > 0 || f.counters.ChildrenMoving > 0 || f.counters.Busy > 0) {
		e.unlock()
		return
	}
	o := e.orderLocked(n.window)
	if n.parent != "" && o.prev(n.id) != e.expectedPredecessorLocked(n) {
		e.detachLocked(n, false)
		if n.collapsed {
			e.revealLocked(n, false)
		}
	}
	subtree := set(ids(e.descendantsLocked(n)))
	if next := e.nodeLocked(o.next(n.id)); next != nil && !subtree[next.id] && next.parent != "" && next.parent != n.id {
		e.attachLocked(n.id, next.parent, AttachOptions{DontMove: true})
	}
	follow := len(n.children) > 0
	e.unlock()
	if follow {
		e.FollowDescendants(context.Background(), tab.ID)
	}
}

// expectedPredecessorLocked is the tab that must directly precede n for its
// tree to stay contiguous.
func (e *Engine) expectedPredecessorLocked(n *node) registry.TabID {
	p := e.parentLocked(n)
	if p == nil {
		return ""
	}
	prev := e.nodeLocked(e.previousSiblingLocked(n))
	if prev == nil {
		return p.id
	}
	if d := e.descendantsLocked(prev); len(d) > 0 {
		return d[len(d)-1].id
	}
	return prev.id
}

// TabActivated opens the trees around a tab the user selected.
func (e *Engine) TabActivated(tab registry.Tab) {
	e.lock()
	if e.consumeSilentLocked(tab.ID) {
		e.unlock()
		return
	}
	n := e.nodeLocked(tab.ID)
	if n == nil {
		e.unlock()
		return
	}
	if n.collapsed {
		ancestors := e.ancestorsLocked(n)
		for i := len(ancestors) - 1; i >= 0; i-- {
			if ancestors[i].subtreeCollapsed {
				e.collapseExpandSubtreeLocked(ancestors[i], CollapseOptions{Collapsed: false})
			}
		}
	}
	intelligent := e.policy.AutoCollapseExpandSubtreeOnSelect && len(n.children) > 0 && n.subtreeCollapsed
	e.unlock()
	if intelligent {
		e.CollapseExpandTreesIntelligentlyFor(tab.ID, CollapseOptions{})
	}
}

// TabDetached removes a tab that left its window. Children left behind are
// reattached to its parent or become roots.
func (e *Engine) TabDetached(tab registry.Tab, _ registry.WindowID) {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(tab.ID)
	if n == nil {
		return
	}
	e.detachTabsFromTreeLocked([]registry.TabID{n.id}, DetachOptions{})
	if n.parent != "" {
		e.detachLocked(n, false)
	}
	e.deleteLocked(n)
}

// TabAttached adds a tab that arrived from another window as a root.
func (e *Engine) TabAttached(tab registry.Tab) {
	e.lock()
	defer e.unlock()
	e.addLocked(tab)
}

// BehaveAutoAttached places a freshly opened tab relative to base.
func (e *Engine) BehaveAutoAttached(ctx context.Context, id registry.TabID, behavior NewTabBehavior, base registry.TabID) Result {
	if !e.Has(id) {
		return SkippedStale
	}
	toEnd := func() Result {
		e.Detach(id, DetachOptions{Broadcast: true})
		return e.MoveSubtreeBefore(ctx, id, "").Result
	}
	switch behavior {
	case NewTabOrphan:
		return toEnd()
	case NewTabChild:
		p, report := e.AttachAndPlace(ctx, id, base, AttachOptions{ForceExpand: true, Broadcast: true})
		return mergeResult(p.Result, report.Result)
	case NewTabSibling:
		parent := e.Parent(base)
		if parent == "" {
			return toEnd()
		}
		p, report := e.AttachAndPlace(ctx, id, parent, AttachOptions{Broadcast: true})
		return mergeResult(p.Result, report.Result)
	case NewTabNextSibling:
		e.lock()
		b := e.nodeLocked(base)
		if b == nil {
			e.unlock()
			return SkippedStale
		}
		parent := b.parent
		nextSibling := e.nextSiblingLocked(b)
		lastDescendant := b.id
		if d := e.descendantsLocked(b); len(d) > 0 {
			lastDescendant = d[len(d)-1].id
		}
		e.unlock()
		if parent != "" {
			p, report := e.AttachAndPlace(ctx, id, parent, AttachOptions{InsertBefore: nextSibling, InsertAfter: lastDescendant, Broadcast: true})
			return mergeResult(p.Result, report.Result)
		}
		e.Detach(id, DetachOptions{Broadcast: true})
		if nextSibling != "" {
			return e.MoveSubtreeBefore(ctx, id, nextSibling).Result
		}
		return e.MoveSubtreeAfter(ctx, id, lastDescendant).Result
	}
	return RejectedInvalid
}

// mergeResult combines a topology result with the result of the move that
// realized it.
func mergeResult(topology, move Result) Result {
	if !topology.OK() {
		return topology
	}
	if move == Failed || move == SkippedStale {
		return move
	}
	if topology == Applied || move == Applied {
		return Applied
	}
	return Unchanged
}
