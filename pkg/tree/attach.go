package tree

import (
	"context"
	"slices"

	"tableflip.dev/tabtree/pkg/registry"
)

// AttachOptions tunes Attach.
type AttachOptions struct {
	InsertBefore registry.TabID
	InsertAfter  registry.TabID
	// InsertAt overrides the policy's insert position when no anchor is
	// given.
	InsertAt InsertPosition
	// DontMove keeps the child at its current linear position.
	DontMove         bool
	DontUpdateIndent bool
	// DontExpand keeps a collapsed parent collapsed.
	DontExpand bool
	// ForceExpand expands a collapsed parent so the child stays visible.
	ForceExpand bool
	JustNow     bool
	Broadcast   bool
}

// Placement is the outcome of an attach: the result plus the linear anchors
// and index the child belongs at.
type Placement struct {
	Result       Result
	InsertBefore registry.TabID
	InsertAfter  registry.TabID
	Index        int
}

// Attach makes parent the parent of child. Only the forest changes; use
// AttachAndPlace to also move the child's subtree to its new position.
func (e *Engine) Attach(child, parent registry.TabID, opts AttachOptions) Result {
	e.lock()
	defer e.unlock()
	return e.attachLocked(child, parent, opts).Result
}

// AttachAndPlace attaches child to parent, then moves the child's subtree
// between the computed anchors unless DontMove is set.
func (e *Engine) AttachAndPlace(ctx context.Context, child, parent registry.TabID, opts AttachOptions) (Placement, MoveReport) {
	e.lock()
	p := e.attachLocked(child, parent, opts)
	e.unlock()
	if !p.Result.OK() || opts.DontMove {
		return p, MoveReport{Result: p.Result}
	}
	if p.InsertBefore != "" {
		return p, e.MoveSubtreeBefore(ctx, child, p.InsertBefore)
	}
	return p, e.MoveSubtreeAfter(ctx, child, p.InsertAfter)
}

func (e *Engine) attachLocked(childID, parentID registry.TabID, opts AttachOptions) Placement {
	child := e.nodeLocked(childID)
	parent := e.nodeLocked(parentID)
	if child == nil || parent == nil {
		e.log.Debug("attach: stale reference", "child", childID, "parent", parentID)
		return Placement{Result: SkippedStale}
	}
	if e.isPinned(childID) || e.isPinned(parentID) {
		e.log.Debug("attach: pinned tabs cannot be nested", "child", childID, "parent", parentID)
		return Placement{Result: RejectedInvalid}
	}
	if child.window != parent.window {
		e.log.Debug("attach: window mismatch", "child", childID, "parent", parentID)
		return Placement{Result: RejectedInvalid}
	}
	if child == parent {
		e.log.Debug("attach: tab cannot be its own parent", "tab", childID)
		return Placement{Result: RejectedInvalid}
	}
	for _, a := range e.ancestorsLocked(parent) {
		if a == child {
			e.log.Debug("attach: would create a cycle", "child", childID, "parent", parentID)
			return Placement{Result: RejectedInvalid}
		}
	}

	all := e.orderLocked(child.window)
	// The child moves together with its subtree, so no anchor may point
	// into it.
	subtree := set(append([]registry.TabID{childID}, ids(e.descendantsLocked(child))...))
	outside := func(id registry.TabID, step func(registry.TabID) registry.TabID) registry.TabID {
		for id != "" && subtree[id] {
			id = step(id)
		}
		return id
	}
	before, after := opts.InsertBefore, opts.InsertAfter
	if opts.DontMove {
		before, after = outside(all.next(childID), all.next), ""
		if before == "" {
			after = all.prev(childID)
		}
	}
	if before == "" && after == "" {
		before, after = e.referenceTabsLocked(childID, parent, ReferenceOptions{InsertAt: opts.InsertAt})
		before = outside(before, all.next)
		after = outside(after, all.prev)
	}
	if before == "" && after == "" {
		after = parentID
	}

	newIndex := newIndexLocked(all, childID, before, after)
	oldParent := child.parent
	newlyAttached := oldParent != parentID || !containsID(parent.children, childID)

	// Children follow the linear order the tabs will have once the child
	// sits at newIndex.
	expected := make([]registry.TabID, 0, len(all.ids)+1)
	for _, id := range all.ids {
		if id != childID {
			expected = append(expected, id)
		}
	}
	if newIndex > len(expected) {
		newIndex = len(expected)
	}
	expected = append(expected, "")
	copy(expected[newIndex+1:], expected[newIndex:])
	expected[newIndex] = childID
	children := make([]registry.TabID, 0, len(parent.children)+1)
	for _, id := range expected {
		if id == childID {
			children = append(children, id)
			continue
		}
		if n := e.nodeLocked(id); n != nil && n.parent == parentID {
			children = append(children, id)
		}
	}
	// Children the registry does not list (yet) keep their place at the end.
	for _, id := range parent.children {
		if id != childID && all.index(id) < 0 {
			children = append(children, id)
		}
	}
	if !newlyAttached && newIndex == all.index(childID) && slices.Equal(parent.children, children) {
		return Placement{Result: Unchanged, InsertBefore: before, InsertAfter: after, Index: newIndex}
	}
	parent.children = children

	if newlyAttached {
		if oldParent != "" && oldParent != parentID {
			e.unlinkLocked(child, false)
		}
		child.parent = parentID
		if !opts.DontUpdateIndent {
			e.updateLevelsLocked(child, parent.level+1)
		}
	}

	e.emit(Attached{
		Window:        child.window,
		Child:         childID,
		Parent:        parentID,
		OldParent:     oldParent,
		Index:         newIndex,
		NewlyAttached: newlyAttached,
	})

	if newlyAttached {
		e.syncVisibilityLocked(child, parent, opts)
	}

	if opts.Broadcast {
		e.publish(Command{
			Type:         CommandAttach,
			Window:       child.window,
			Tab:          childID,
			Parent:       parentID,
			InsertBefore: before,
			InsertAfter:  after,
			JustNow:      opts.JustNow,
		})
	}
	return Placement{Result: Applied, InsertBefore: before, InsertAfter: after, Index: newIndex}
}

// syncVisibilityLocked hides a freshly attached child under a collapsed
// parent, or expands the parent when ForceExpand is set.
func (e *Engine) syncVisibilityLocked(child, parent *node, opts AttachOptions) {
	hiddenUnder := parent.subtreeCollapsed || parent.collapsed
	switch {
	case hiddenUnder && opts.ForceExpand:
		chain := append([]*node{parent}, e.ancestorsLocked(parent)...)
		for i := len(chain) - 1; i >= 0; i-- {
			if chain[i].subtreeCollapsed {
				e.collapseExpandSubtreeLocked(chain[i], CollapseOptions{Collapsed: false, JustNow: opts.JustNow})
			}
		}
		if child.collapsed {
			e.revealLocked(child, opts.JustNow)
		}
	case hiddenUnder:
		if !child.collapsed {
			e.collapseExpandTabAndSubtreeLocked(child, collapseParams{collapsed: true, justNow: opts.JustNow})
		}
	case child.collapsed:
		e.revealLocked(child, opts.JustNow)
	}
}

// DetachOptions tunes Detach.
type DetachOptions struct {
	Broadcast bool
}

// Detach removes the tab from its parent. Detaching a root is a no-op.
func (e *Engine) Detach(child registry.TabID, opts DetachOptions) Result {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(child)
	if n == nil {
		return SkippedStale
	}
	if n.parent == "" {
		return Unchanged
	}
	e.detachLocked(n, opts.Broadcast)
	if n.collapsed {
		e.revealLocked(n, false)
	}
	return Applied
}

func (e *Engine) detachLocked(n *node, broadcast bool) {
	e.unlinkLocked(n, broadcast)
	e.updateLevelsLocked(n, 0)
}

// unlinkLocked removes n from its parent's children and leaves its level
// alone.
func (e *Engine) unlinkLocked(n *node, broadcast bool) {
	oldParent := n.parent
	if p := e.nodeLocked(oldParent); p != nil {
		p.children = removeTabID(p.children, n.id)
	}
	n.parent = ""
	e.emit(Detached{Window: n.window, Child: n.id, OldParent: oldParent})
	if broadcast {
		e.publish(Command{Type: CommandDetach, Window: n.window, Tab: n.id})
	}
}

// updateLevelsLocked sets the depth of n and its subtree. Pinned tabs keep
// their level.
func (e *Engine) updateLevelsLocked(n *node, level int) {
	if e.isPinned(n.id) {
		return
	}
	if n.level != level {
		n.level = level
		e.emit(LevelChanged{Tab: n.id, Level: level})
	}
	for _, c := range e.childrenLocked(n) {
		e.updateLevelsLocked(c, level+1)
	}
}

// revealLocked shows n and every descendant not hidden by a collapsed
// subtree of its own.
func (e *Engine) revealLocked(n *node, justNow bool) {
	e.collapseExpandTabLocked(n, collapseParams{collapsed: false, justNow: justNow})
	if n.subtreeCollapsed {
		return
	}
	for _, c := range e.childrenLocked(n) {
		e.revealLocked(c, justNow)
	}
}

// DetachAllOptions tunes DetachAllChildren.
type DetachAllOptions struct {
	// Behavior defaults to SimplyDetach.
	Behavior CloseParentBehavior
	// Group marks the tab as a group tab.
	Group     bool
	Broadcast bool

	// nextTab overrides the next root for tabs no longer in the registry.
	nextTab registry.TabID
}

// pendingMove is a subtree move computed under the lock and run after it.
// An empty before moves the subtree to the end of its window.
type pendingMove struct {
	root   registry.TabID
	before registry.TabID
}

// DetachAllChildren resolves the children of a tab according to a
// close-parent behavior, oldest first.
func (e *Engine) DetachAllChildren(ctx context.Context, id registry.TabID, opts DetachAllOptions) Result {
	e.lock()
	n := e.nodeLocked(id)
	if n == nil {
		e.unlock()
		return SkippedStale
	}
	result, moves := e.detachAllChildrenLocked(n, e.parentLocked(n), opts)
	e.unlock()
	return e.runMoves(ctx, result, moves)
}

func (e *Engine) runMoves(ctx context.Context, result Result, moves []pendingMove) Result {
	for _, m := range moves {
		if report := e.MoveSubtreeBefore(ctx, m.root, m.before); report.Result == Failed {
			result = Failed
		}
	}
	return result
}

// detachAllChildrenLocked resolves n's children. parent is n's parent, which
// may already have been unlinked from n.
func (e *Engine) detachAllChildrenLocked(n, parent *node, opts DetachAllOptions) (Result, []pendingMove) {
	children := e.childrenLocked(n)
	if len(children) == 0 {
		return Unchanged, nil
	}

	behavior := opts.Behavior
	if behavior == "" {
		behavior = SimplyDetach
	}
	if behavior == CloseAllChildren {
		behavior = PromoteFirstChild
	}
	if opts.Group {
		removing := 0
		for _, c := range children {
			if e.removing[c.id] {
				removing++
			}
		}
		if removing == len(children) {
			behavior = PromoteAllChildren
		}
	}
	if behavior == ReplaceWithGroup {
		behavior = PromoteAllChildren
	}

	// An empty nextTab moves the detached subtrees to the end of the window.
	var nextTab registry.TabID
	if behavior == DetachAllChildren && !e.policy.MoveTabsToBottomWhenDetachedFromClosedParent {
		nextTab = opts.nextTab
		if nextTab == "" {
			nextTab = e.nextSiblingLocked(e.rootLocked(n))
		}
	}

	if behavior != DetachAllChildren {
		e.collapseExpandSubtreeLocked(n, CollapseOptions{Collapsed: false})
	}

	var moves []pendingMove
	for i, c := range children {
		switch {
		case behavior == DetachAllChildren:
			e.detachLocked(c, opts.Broadcast)
			if c.collapsed {
				e.revealLocked(c, false)
			}
			moves = append(moves, pendingMove{root: c.id, before: nextTab})
		case behavior == PromoteFirstChild:
			if i == 0 {
				e.detachLocked(c, opts.Broadcast)
				if parent != nil {
					e.attachLocked(c.id, parent.id, AttachOptions{DontMove: true, DontExpand: true, Broadcast: opts.Broadcast})
				} else if c.collapsed {
					e.revealLocked(c, false)
				}
				e.collapseExpandSubtreeLocked(c, CollapseOptions{Collapsed: false, Broadcast: opts.Broadcast})
				continue
			}
			e.attachLocked(c.id, children[0].id, AttachOptions{DontMove: true, DontExpand: true, Broadcast: opts.Broadcast})
		case behavior == PromoteAllChildren && parent != nil:
			e.attachLocked(c.id, parent.id, AttachOptions{DontMove: true, DontExpand: true, Broadcast: opts.Broadcast})
		default:
			e.detachLocked(c, opts.Broadcast)
			if c.collapsed {
				e.revealLocked(c, false)
			}
		}
	}
	return Applied, moves
}

// nextSiblingLocked returns the sibling after n, or for a root the next root.
func (e *Engine) nextSiblingLocked(n *node) registry.TabID {
	if p := e.parentLocked(n); p != nil {
		for i, id := range p.children {
			if id == n.id && i+1 < len(p.children) {
				return p.children[i+1]
			}
		}
		return ""
	}
	o := e.orderLocked(n.window)
	for i := o.index(n.id) + 1; i >= 1 && i < len(o.ids); i++ {
		if m := e.nodeLocked(o.ids[i]); m != nil && m.parent == "" {
			return m.id
		}
	}
	return ""
}

func (e *Engine) previousSiblingLocked(n *node) registry.TabID {
	p := e.parentLocked(n)
	if p == nil {
		return ""
	}
	for i, id := range p.children {
		if id == n.id && i > 0 {
			return p.children[i-1]
		}
	}
	return ""
}

// DetachTabsFromTree takes the tabs out of their trees. Children that are not
// part of the set are reattached to the leaving tab's parent, or become
// roots.
func (e *Engine) DetachTabsFromTree(tabs []registry.TabID, opts DetachOptions) Result {
	e.lock()
	defer e.unlock()
	return e.detachTabsFromTreeLocked(tabs, opts)
}

func (e *Engine) detachTabsFromTreeLocked(tabs []registry.TabID, opts DetachOptions) Result {
	leaving := set(tabs)
	result := Unchanged
	for i := len(tabs) - 1; i >= 0; i-- {
		n := e.nodeLocked(tabs[i])
		if n == nil {
			continue
		}
		parent := e.parentLocked(n)
		for _, c := range e.childrenLocked(n) {
			if leaving[c.id] {
				continue
			}
			result = Applied
			if parent != nil {
				e.attachLocked(c.id, parent.id, AttachOptions{DontMove: true, Broadcast: opts.Broadcast})
				continue
			}
			e.detachLocked(c, opts.Broadcast)
			if c.collapsed {
				e.revealLocked(c, false)
			}
		}
	}
	return result
}

// CloseOptions tunes CloseParentBehaviorFor.
type CloseOptions struct {
	// AsIndividualTab ignores the subtree-collapsed shortcut.
	AsIndividualTab bool
	// KeepChildren prevents the children from being closed with the tab.
	KeepChildren bool
}

// CloseParentBehaviorFor returns what should happen to the tab's children
// when it leaves its tree.
func (e *Engine) CloseParentBehaviorFor(id registry.TabID, opts CloseOptions) CloseParentBehavior {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return e.policy.CloseParentBehavior
	}
	return e.closeParentBehaviorLocked(n, e.parentLocked(n), opts)
}

func (e *Engine) closeParentBehaviorLocked(n, parent *node, opts CloseOptions) CloseParentBehavior {
	if !opts.AsIndividualTab && n.subtreeCollapsed && !opts.KeepChildren {
		return CloseAllChildren
	}
	behavior := e.policy.CloseParentBehavior
	if opts.KeepChildren && behavior != PromoteFirstChild && behavior != PromoteAllChildren {
		behavior = PromoteFirstChild
	}
	if parent == nil && behavior == PromoteAllChildren && e.policy.PromoteFirstChildForClosedRoot {
		behavior = PromoteFirstChild
	}
	if behavior == PromoteFirstChild && parent != nil && len(parent.children) == 1 && e.policy.PromoteAllChildrenWhenLastChild {
		behavior = PromoteAllChildren
	}
	return behavior
}

// ClosingTabs returns the tabs that close together with id: its subtree when
// the close-parent behavior closes children, otherwise id alone.
func (e *Engine) ClosingTabs(id registry.TabID) []registry.TabID {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return nil
	}
	if e.closeParentBehaviorLocked(n, e.parentLocked(n), CloseOptions{}) != CloseAllChildren {
		return []registry.TabID{id}
	}
	return append([]registry.TabID{id}, ids(e.descendantsLocked(n))...)
}

func containsID(list []registry.TabID, id registry.TabID) bool {
	for _, other := range list {
		if other == id {
			return true
		}
	}
	return false
}

func removeTabID(list []registry.TabID, id registry.TabID) []registry.TabID {
	out := list[:0]
	for _, other := range list {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}
