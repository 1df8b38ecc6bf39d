package reconcile

import (
	"context"
	"errors"
	"fmt"

	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/tree"
)

// DragDrop describes a completed drag of tabs.
type DragDrop struct {
	Tabs []registry.TabID
	// DestinationWindow defaults to the window the tabs come from.
	DestinationWindow registry.WindowID
	// AttachTo is the tab dropped onto. Empty drops the tabs at root level.
	AttachTo registry.TabID
	// Attach makes the dropped roots children of AttachTo. Without it the
	// tabs are only moved.
	Attach       bool
	InsertBefore registry.TabID
	InsertAfter  registry.TabID
	Duplicate    bool
}

// PerformDragDrop completes a drag and drop: partially dragged trees are
// split, the tabs are moved or duplicated to the destination, attached to
// the drop target or detached to root level, and finally placed between the
// anchors. It returns the dropped tabs. Unexpected failures are recovered
// and reported as an error; whatever was already applied stays applied.
func (r *Reconciler) PerformDragDrop(ctx context.Context, dd DragDrop) (dropped []registry.TabID, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("drag and drop failed", "panic", p)
			err = fmt.Errorf("reconcile: drag and drop: %v", p)
		}
	}()

	dragged := r.living(dd.Tabs)
	if len(dragged) == 0 {
		return nil, ErrNoTabs
	}
	source, _ := r.engine.WindowOf(dragged[0])
	dest := dd.DestinationWindow
	if dest == 0 {
		dest = source
	}
	r.log.Debug("drag and drop", "tabs", dragged, "from", source, "to", dest, "attachTo", dd.AttachTo, "attach", dd.Attach)

	roots := r.roots(dragged)
	closure := r.closure(roots)
	if len(closure) != len(dragged) && !dd.Duplicate {
		r.log.Debug("drag and drop: partial tree dragged", "dragged", len(dragged), "tree", len(closure))
		r.engine.DetachTabsFromTree(dragged, tree.DetachOptions{Broadcast: true})
	}

	block := make(map[registry.TabID]bool, len(closure))
	for _, id := range closure {
		block[id] = true
	}
	before := r.walkOut(dd.InsertBefore, block, 1)
	after := r.walkOut(dd.InsertAfter, block, -1)

	var errs []error
	if dd.Duplicate || dest != source {
		moved, err := r.MoveTabs(ctx, dragged, MoveOptions{
			DestinationWindow: dest,
			Duplicate:         dd.Duplicate,
			InsertBefore:      before,
			InsertAfter:       after,
		})
		if err != nil {
			errs = append(errs, err)
		}
		dragged = moved
		roots = r.roots(dragged)
	}
	if len(dragged) == 0 {
		return nil, errors.Join(errs...)
	}

	switch {
	case dd.AttachTo == "":
		for _, root := range roots {
			r.engine.Detach(root, tree.DetachOptions{Broadcast: true})
		}
	case dd.Attach:
		if report := r.attachOnDrop(ctx, roots, dragged, dd.AttachTo, before, after); report.Result == tree.Failed {
			errs = append(errs, report.Err())
		}
	default:
		r.log.Debug("drag and drop: just moved")
	}

	var report tree.MoveReport
	switch {
	case before != "":
		report = r.engine.MoveTabsBefore(ctx, dragged, before)
	case after != "":
		report = r.engine.MoveTabsAfter(ctx, dragged, after)
	}
	if report.Result == tree.Failed {
		errs = append(errs, report.Err())
	}

	if dest != source {
		if err := r.reg.Activate(ctx, dragged[0]); err != nil && !errors.Is(err, registry.ErrTabNotFound) {
			errs = append(errs, err)
		}
	}
	return r.living(dragged), errors.Join(errs...)
}

// attachOnDrop places the dragged tabs under parent and attaches their
// roots to it. Without anchors the tabs go where a new child of parent
// would.
func (r *Reconciler) attachOnDrop(ctx context.Context, roots, dragged []registry.TabID, parent, before, after registry.TabID) tree.MoveReport {
	if before == "" && after == "" {
		before, after = r.engine.ReferenceTabs(roots[0], parent, tree.ReferenceOptions{Ignore: roots})
	}
	var report tree.MoveReport
	switch {
	case before != "":
		report = r.engine.MoveTabsBefore(ctx, dragged, before)
	case after != "":
		report = r.engine.MoveTabsAfter(ctx, dragged, after)
	}

	forceExpand := false
	for _, id := range dragged {
		if tab, ok := r.reg.Get(id); ok && tab.Active {
			forceExpand = true
			break
		}
	}
	for _, root := range roots {
		r.engine.Attach(root, parent, tree.AttachOptions{DontMove: true, ForceExpand: forceExpand, Broadcast: true})
	}
	return report
}

// roots returns the tabs whose parent is not among tabs.
func (r *Reconciler) roots(tabs []registry.TabID) []registry.TabID {
	in := make(map[registry.TabID]bool, len(tabs))
	for _, id := range tabs {
		in[id] = true
	}
	var out []registry.TabID
	for _, id := range tabs {
		if !in[r.engine.Parent(id)] {
			out = append(out, id)
		}
	}
	return out
}

// closure returns the roots followed by all of their descendants.
func (r *Reconciler) closure(roots []registry.TabID) []registry.TabID {
	seen := make(map[registry.TabID]bool)
	var out []registry.TabID
	for _, root := range roots {
		for _, id := range append([]registry.TabID{root}, r.engine.Descendants(root)...) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// walkOut steps an anchor that lies inside block to the nearest tab outside
// it, forward for dir 1 and backward for dir -1.
func (r *Reconciler) walkOut(anchor registry.TabID, block map[registry.TabID]bool, dir int) registry.TabID {
	if !block[anchor] {
		return anchor
	}
	tab, ok := r.reg.Get(anchor)
	if !ok {
		return ""
	}
	tabs := r.reg.Tabs(tab.Window)
	for i := tab.Index + dir; i >= 0 && i < len(tabs); i += dir {
		if !block[tabs[i].ID] {
			return tabs[i].ID
		}
	}
	return ""
}
