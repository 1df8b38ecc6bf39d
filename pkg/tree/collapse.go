package tree

import "tableflip.dev/tabtree/pkg/registry"

// CollapseOptions tunes the collapse operations.
type CollapseOptions struct {
	Collapsed bool
	// Force applies the state even when it is already set.
	Force     bool
	JustNow   bool
	Broadcast bool
}

// CollapseExpandSubtree hides or shows the descendants of the tab.
func (e *Engine) CollapseExpandSubtree(id registry.TabID, opts CollapseOptions) Result {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return SkippedStale
	}
	return e.collapseExpandSubtreeLocked(n, opts)
}

// ManualCollapseExpandSubtree is CollapseExpandSubtree on behalf of the
// user: an expansion is remembered so that intelligent collapse leaves the
// subtree alone.
func (e *Engine) ManualCollapseExpandSubtree(id registry.TabID, opts CollapseOptions) Result {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return SkippedStale
	}
	broadcast := opts.Broadcast
	opts.Broadcast = false
	r := e.collapseExpandSubtreeLocked(n, opts)
	if !opts.Collapsed && r != SkippedStale {
		n.manuallyExpanded = true
	}
	if broadcast && r == Applied {
		e.publish(Command{
			Type:      CommandCollapseSubtree,
			Window:    n.window,
			Tab:       n.id,
			Collapsed: opts.Collapsed,
			Manual:    true,
			JustNow:   opts.JustNow,
		})
	}
	return r
}

func (e *Engine) collapseExpandSubtreeLocked(n *node, opts CollapseOptions) Result {
	if !opts.Force && n.subtreeCollapsed == opts.Collapsed {
		return Unchanged
	}
	n.subtreeCollapsed = opts.Collapsed
	if opts.Collapsed {
		n.manuallyExpanded = false
	}

	// Children of a hidden tab stay hidden when its subtree opens.
	hide := opts.Collapsed || n.collapsed
	children := e.childrenLocked(n)
	for i, c := range children {
		params := collapseParams{collapsed: hide, justNow: opts.JustNow}
		if !hide && !opts.JustNow && i == len(children)-1 {
			params.anchor = n.id
			params.last = true
		}
		e.collapseExpandTabAndSubtreeLocked(c, params)
	}

	e.emit(SubtreeCollapseChanging{Tab: n.id, Collapsed: opts.Collapsed, JustNow: opts.JustNow})
	if opts.Broadcast {
		e.publish(Command{
			Type:      CommandCollapseSubtree,
			Window:    n.window,
			Tab:       n.id,
			Collapsed: opts.Collapsed,
			JustNow:   opts.JustNow,
		})
	}
	return Applied
}

type collapseParams struct {
	collapsed bool
	justNow   bool
	anchor    registry.TabID
	last      bool
	broadcast bool
}

// CollapseExpandTabAndSubtree hides or shows the tab and, unless its own
// subtree is collapsed, everything below it. Roots cannot be hidden.
func (e *Engine) CollapseExpandTabAndSubtree(id registry.TabID, opts CollapseOptions) Result {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return SkippedStale
	}
	return e.collapseExpandTabAndSubtreeLocked(n, collapseParams{collapsed: opts.Collapsed, justNow: opts.JustNow, broadcast: opts.Broadcast})
}

func (e *Engine) collapseExpandTabAndSubtreeLocked(n *node, params collapseParams) Result {
	if n.parent == "" {
		return Unchanged
	}
	e.collapseExpandTabLocked(n, params)

	if params.collapsed && e.isActive(n.id) {
		if visible := e.visibleAncestorOrSelfLocked(n); visible != nil && visible != n {
			e.log.Debug("collapse: moving focus to visible ancestor", "from", n.id, "to", visible.id)
			e.activateLocked(visible.id, true)
		}
	}

	if !n.subtreeCollapsed {
		children := e.childrenLocked(n)
		for i, c := range children {
			last := params.last && i == len(children)-1
			child := collapseParams{collapsed: params.collapsed, justNow: params.justNow, last: last, broadcast: params.broadcast}
			if last {
				child.anchor = params.anchor
			}
			e.collapseExpandTabAndSubtreeLocked(c, child)
		}
	}
	return Applied
}

// CollapseExpandTab hides or shows the tab itself.
func (e *Engine) CollapseExpandTab(id registry.TabID, opts CollapseOptions) Result {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return SkippedStale
	}
	e.collapseExpandTabLocked(n, collapseParams{collapsed: opts.Collapsed, justNow: opts.JustNow, broadcast: opts.Broadcast})
	return Applied
}

func (e *Engine) collapseExpandTabLocked(n *node, params collapseParams) {
	collapsed := params.collapsed
	if collapsed && e.isPinned(n.id) {
		e.log.Debug("collapse: pinned tab stays visible", "tab", n.id)
		collapsed = false
	}
	byAncestor := false
	for _, a := range e.ancestorsLocked(n) {
		if a.subtreeCollapsed {
			byAncestor = true
			break
		}
	}
	info := CollapseInfo{
		Collapsed:  collapsed,
		JustNow:    params.justNow,
		Anchor:     params.anchor,
		Last:       params.last && (len(n.children) == 0 || n.subtreeCollapsed),
		ByAncestor: byAncestor == collapsed,
	}
	e.emit(CollapseStateChanging{Tab: n.id, CollapseInfo: info})
	n.collapsed = collapsed
	e.emit(CollapseStateChanged{Tab: n.id, CollapseInfo: info})

	if params.broadcast {
		e.publish(Command{
			Type:       CommandCollapseTab,
			Window:     n.window,
			Tab:        n.id,
			Collapsed:  collapsed,
			JustNow:    params.justNow,
			ByAncestor: info.ByAncestor,
		})
	}
}

func (e *Engine) visibleAncestorOrSelfLocked(n *node) *node {
	if !n.collapsed {
		return n
	}
	for _, a := range e.ancestorsLocked(n) {
		if !a.collapsed {
			return a
		}
	}
	return nil
}

// ShouldAutoExpand reports whether the tab has a collapsed subtree that a
// selection would open.
func (e *Engine) ShouldAutoExpand(id registry.TabID) bool {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	return n != nil && len(n.children) > 0 && n.subtreeCollapsed
}

// CollapseExpandTreesIntelligentlyFor expands the tab's subtree and collapses
// every other expanded tree that does not contain the tab. Subtrees the user
// expanded by hand stay open. Only one pass runs per window at a time.
func (e *Engine) CollapseExpandTreesIntelligentlyFor(id registry.TabID, opts CollapseOptions) Result {
	e.lock()
	defer e.unlock()
	n := e.nodeLocked(id)
	if n == nil {
		return SkippedStale
	}
	f := e.forestLocked(n.window)
	if f.counters.IntelligentCollapse > 0 {
		e.log.Debug("intelligent collapse already running", "window", n.window)
		return Unchanged
	}
	e.enterLocked(n.window, CounterIntelligentCollapse)
	defer e.leaveLocked(n.window, CounterIntelligentCollapse)

	expanded := map[registry.TabID]bool{n.id: true}
	for _, a := range e.ancestorsLocked(n) {
		expanded[a.id] = true
	}

	var candidates []*node
	for _, tabID := range e.orderLocked(n.window).ids {
		c := e.nodeLocked(tabID)
		if c == nil || len(c.children) == 0 || c.collapsed || c.subtreeCollapsed || expanded[c.id] {
			continue
		}
		if tab, ok := e.reg.Get(c.id); ok && tab.Hidden {
			continue
		}
		candidates = append(candidates, c)
	}

	for _, c := range candidates {
		dontCollapse := false
		if parent := e.parentLocked(c); parent != nil {
			dontCollapse = true
			if !parent.subtreeCollapsed {
				for _, a := range e.ancestorsLocked(c) {
					if expanded[a.id] {
						dontCollapse = false
						break
					}
				}
			}
		}
		if dontCollapse || c.manuallyExpanded {
			continue
		}
		e.collapseExpandSubtreeLocked(c, CollapseOptions{Collapsed: true, JustNow: opts.JustNow, Broadcast: opts.Broadcast})
	}

	e.collapseExpandSubtreeLocked(n, CollapseOptions{Collapsed: false, JustNow: opts.JustNow, Broadcast: opts.Broadcast})
	return Applied
}
