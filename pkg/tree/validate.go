package tree

import (
	"errors"
	"fmt"

	"tableflip.dev/tabtree/pkg/registry"
)

// ErrInconsistent wraps every problem reported by Validate.
var ErrInconsistent = errors.New("tree: inconsistent forest")

// Validate checks the forest of a window against the registry: mutual
// parent and child links, no cycles, depths, contiguous subtrees in linear
// order, children ordered like the tabs, pinned tabs outside of trees, and
// hidden tabs exactly below collapsed subtrees.
func (e *Engine) Validate(window registry.WindowID) error {
	e.lock()
	defer e.unlock()
	f, ok := e.forests[window]
	if !ok {
		return nil
	}
	o := e.orderLocked(window)
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	for id, n := range f.nodes {
		if n.parent != "" {
			p := e.nodeLocked(n.parent)
			switch {
			case p == nil:
				fail("%s has unknown parent %s", id, n.parent)
			case !containsID(p.children, id):
				fail("%s is not listed as a child of %s", id, n.parent)
			case p.window != n.window:
				fail("%s and its parent %s live in different windows", id, n.parent)
			}
		}
		for _, c := range n.children {
			if cn := e.nodeLocked(c); cn == nil || cn.parent != id {
				fail("%s lists %s as a child that does not point back", id, c)
			}
		}
		ancestors := e.ancestorsLocked(n)
		if len(ancestors) > 0 {
			if top := ancestors[len(ancestors)-1]; top.parent != "" {
				fail("%s sits on a cycle", id)
				continue
			}
		}
		pinned := e.isPinned(id)
		if pinned && (n.parent != "" || len(n.children) > 0) {
			fail("pinned %s is part of a tree", id)
		}
		if !pinned && n.level != len(ancestors) {
			fail("%s has level %d, want %d", id, n.level, len(ancestors))
		}
		hidden := false
		if p := e.parentLocked(n); p != nil {
			hidden = p.subtreeCollapsed || p.collapsed
		}
		if !pinned && n.collapsed != hidden {
			fail("%s collapsed=%t, want %t", id, n.collapsed, hidden)
		}

		var present []registry.TabID
		for _, c := range n.children {
			if o.index(c) >= 0 {
				present = append(present, c)
			}
		}
		for i := 1; i < len(present); i++ {
			if o.index(present[i-1]) > o.index(present[i]) {
				fail("children of %s are out of linear order", id)
				break
			}
		}
		if o.index(id) < 0 {
			continue
		}
		block := []registry.TabID{id}
		for _, d := range e.descendantsLocked(n) {
			if o.index(d.id) >= 0 {
				block = append(block, d.id)
			}
		}
		if !contiguous(o, block) {
			fail("subtree of %s is not contiguous", id)
		}
	}
	return errors.Join(errs...)
}
