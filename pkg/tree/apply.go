package tree

import (
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/structure"
)

// ApplyOptions tunes ApplyStructure.
type ApplyOptions struct {
	Broadcast bool
}

// Structure returns the structure array of the tabs, in the given order.
// Tabs unknown to the engine are serialized as roots.
func (e *Engine) Structure(tabs []registry.TabID, full bool) []structure.Item {
	e.lock()
	defer e.unlock()
	sources := make([]structure.Source, len(tabs))
	for i, id := range tabs {
		sources[i].ID = string(id)
		if n := e.nodeLocked(id); n != nil {
			sources[i].Parent = string(n.parent)
			sources[i].SubtreeCollapsed = n.subtreeCollapsed
		}
		if full {
			if tab, ok := e.reg.Get(id); ok {
				sources[i].Title = tab.Title
				sources[i].URL = tab.URL
				sources[i].Pinned = tab.Pinned
			}
		}
	}
	return structure.Serialize(sources, full)
}

// WindowStructure returns the structure array of every tab of the window in
// linear order.
func (e *Engine) WindowStructure(window registry.WindowID, full bool) []structure.Item {
	var tabs []registry.TabID
	for _, t := range e.reg.Tabs(window) {
		tabs = append(tabs, t.ID)
	}
	return e.Structure(tabs, full)
}

// ApplyStructure rebuilds the trees of tabs from a structure array. Both
// lists are cut to the shorter length. Each tab is detached, then attached
// to the parent its item names without moving it. Collapsed states are
// applied last, deepest tab first; an item without a recorded state
// collapses when it has children.
func (e *Engine) ApplyStructure(tabs []registry.TabID, items []structure.Item, opts ApplyOptions) Result {
	e.lock()
	defer e.unlock()
	n := len(tabs)
	if len(items) < n {
		n = len(items)
	}
	tabs, items = tabs[:n], items[:n]
	if n == 0 {
		return Unchanged
	}

	var root registry.TabID
	var inTree []*node
	for i, id := range tabs {
		t := e.nodeLocked(id)
		if t == nil {
			// Keep the indices of the tree aligned with the items.
			if items[i].Parent < 0 {
				root, inTree = "", nil
			} else if inTree != nil {
				inTree = append(inTree, nil)
			}
			continue
		}
		if t.parent != "" {
			e.detachLocked(t, false)
		}
		if t.collapsed {
			e.collapseExpandTabLocked(t, collapseParams{collapsed: false, justNow: true})
		}

		parentIndex := items[i].Parent
		if parentIndex < 0 {
			root = id
			inTree = []*node{t}
			continue
		}
		parent := e.nodeLocked(root)
		if parent == nil {
			continue
		}
		if parentIndex < len(inTree) && inTree[parentIndex] != nil {
			parent = inTree[parentIndex]
		}
		inTree = append(inTree, t)
		// Opening the parent first keeps the attach from hiding the child
		// and moving focus away from it.
		parent.subtreeCollapsed = false
		e.attachLocked(id, parent.id, AttachOptions{DontExpand: true, DontMove: true, JustNow: true})
	}

	for i := n - 1; i >= 0; i-- {
		t := e.nodeLocked(tabs[i])
		if t == nil {
			continue
		}
		collapsed, recorded := items[i].IsCollapsed()
		if !recorded {
			collapsed = len(t.children) > 0
		}
		e.collapseExpandSubtreeLocked(t, CollapseOptions{Collapsed: collapsed, Force: true, JustNow: true})
	}

	if opts.Broadcast {
		e.publish(Command{
			Type:      CommandApplyStructure,
			Window:    e.windowOf[tabs[0]],
			Tabs:      append([]registry.TabID(nil), tabs...),
			Structure: append([]structure.Item(nil), items...),
		})
	}
	return Applied
}
