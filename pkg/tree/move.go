package tree

import (
	"context"
	"fmt"

	"tableflip.dev/tabtree/pkg/registry"
)

// MoveSubtreeBefore moves root and its descendants so that the block ends
// right before next. An empty next moves the block to the end of the window.
func (e *Engine) MoveSubtreeBefore(ctx context.Context, root, next registry.TabID) MoveReport {
	return e.moveSubtree(ctx, root, next, true)
}

// MoveSubtreeAfter moves root and its descendants so that the block starts
// right after prev. An empty prev moves the block to the start of the window.
func (e *Engine) MoveSubtreeAfter(ctx context.Context, root, prev registry.TabID) MoveReport {
	return e.moveSubtree(ctx, root, prev, false)
}

func (e *Engine) moveSubtree(ctx context.Context, rootID, anchor registry.TabID, before bool) MoveReport {
	e.lock()
	n := e.nodeLocked(rootID)
	if n == nil {
		e.unlock()
		return MoveReport{Result: SkippedStale}
	}
	block := append([]registry.TabID{rootID}, ids(e.descendantsLocked(n))...)
	if anchor != "" {
		if _, ok := e.reg.Get(anchor); !ok {
			e.unlock()
			return MoveReport{Result: SkippedStale}
		}
		if containsID(block, anchor) {
			e.unlock()
			e.log.Debug("move: anchor inside the moved subtree", "root", rootID, "anchor", anchor)
			return MoveReport{Result: RejectedInvalid}
		}
	}
	if placed(e.orderLocked(n.window), block, anchor, before) {
		e.unlock()
		return MoveReport{Result: Unchanged}
	}
	window := n.window
	e.enterLocked(window, CounterMoving)
	e.unlock()
	defer func() {
		e.lock()
		e.leaveLocked(window, CounterMoving)
		e.unlock()
	}()

	report := MoveReport{Result: Applied}
	if err := e.moveTab(ctx, rootID, anchor, before); err != nil {
		report.Result = Failed
		report.Failures = append(report.Failures, MoveFailure{Tab: rootID, Err: err})
		return report
	}
	report.Moved = append(report.Moved, rootID)
	if !e.Has(rootID) {
		report.Result = Failed
		report.Failures = append(report.Failures, MoveFailure{Tab: rootID, Err: ErrVanished})
		return report
	}
	follow := e.FollowDescendants(ctx, rootID)
	report.Moved = append(report.Moved, follow.Moved...)
	report.Failures = append(report.Failures, follow.Failures...)
	if len(report.Failures) > 0 {
		report.Result = Failed
	}
	return report
}

// FollowDescendants moves every descendant of root right after it, in tree
// order. A failed move is recorded and the remaining descendants still move.
func (e *Engine) FollowDescendants(ctx context.Context, root registry.TabID) MoveReport {
	e.lock()
	n := e.nodeLocked(root)
	if n == nil {
		e.unlock()
		return MoveReport{Result: SkippedStale}
	}
	descendants := ids(e.descendantsLocked(n))
	if len(descendants) == 0 || contiguous(e.orderLocked(n.window), append([]registry.TabID{root}, descendants...)) {
		e.unlock()
		return MoveReport{Result: Unchanged}
	}
	window := n.window
	e.enterLocked(window, CounterChildrenMoving)
	e.unlock()
	defer func() {
		e.lock()
		e.leaveLocked(window, CounterChildrenMoving)
		e.unlock()
	}()

	report := MoveReport{Result: Applied}
	prev := root
	for _, d := range descendants {
		if err := e.moveTab(ctx, d, prev, false); err != nil {
			report.Failures = append(report.Failures, MoveFailure{Tab: d, Err: err})
			continue
		}
		report.Moved = append(report.Moved, d)
		prev = d
	}
	if len(report.Failures) > 0 {
		report.Result = Failed
	}
	return report
}

// MoveTabsBefore places tabs, in the given order, right before next.
func (e *Engine) MoveTabsBefore(ctx context.Context, tabs []registry.TabID, next registry.TabID) MoveReport {
	return e.moveTabs(ctx, tabs, next, true)
}

// MoveTabsAfter places tabs, in the given order, right after prev.
func (e *Engine) MoveTabsAfter(ctx context.Context, tabs []registry.TabID, prev registry.TabID) MoveReport {
	return e.moveTabs(ctx, tabs, prev, false)
}

func (e *Engine) moveTabs(ctx context.Context, tabs []registry.TabID, anchor registry.TabID, before bool) MoveReport {
	if len(tabs) == 0 {
		return MoveReport{Result: Unchanged}
	}
	first, ok := e.reg.Get(tabs[0])
	if !ok {
		return MoveReport{Result: SkippedStale}
	}
	if containsID(tabs, anchor) {
		return MoveReport{Result: RejectedInvalid}
	}
	e.lock()
	if placed(e.orderLocked(first.Window), tabs, anchor, before) {
		e.unlock()
		return MoveReport{Result: Unchanged}
	}
	e.enterLocked(first.Window, CounterMoving)
	e.unlock()
	defer func() {
		e.lock()
		e.leaveLocked(first.Window, CounterMoving)
		e.unlock()
	}()

	report := MoveReport{Result: Applied}
	var prev registry.TabID
	for _, id := range tabs {
		var err error
		if prev == "" {
			err = e.moveTab(ctx, id, anchor, before)
		} else {
			err = e.moveTab(ctx, id, prev, false)
		}
		if err != nil {
			report.Failures = append(report.Failures, MoveFailure{Tab: id, Err: err})
			continue
		}
		report.Moved = append(report.Moved, id)
		prev = id
	}
	if len(report.Failures) > 0 {
		report.Result = Failed
	}
	return report
}

// moveTab asks the registry to place one tab next to anchor. It must be
// called without the engine lock.
func (e *Engine) moveTab(ctx context.Context, id, anchor registry.TabID, before bool) error {
	tab, ok := e.reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", registry.ErrTabNotFound, id)
	}
	tabs := e.reg.Tabs(tab.Window)
	cur := tab.Index
	var target int
	switch {
	case anchor == "" && before:
		target = len(tabs) - 1
	case anchor == "":
		target = 0
	default:
		a, ok := e.reg.Get(anchor)
		if !ok || a.Window != tab.Window {
			return fmt.Errorf("%w: anchor %s", registry.ErrTabNotFound, anchor)
		}
		switch {
		case before && cur < a.Index:
			target = a.Index - 1
		case before:
			target = a.Index
		case cur < a.Index:
			target = a.Index
		default:
			target = a.Index + 1
		}
	}
	if target == cur {
		return nil
	}
	return e.reg.Move(ctx, id, target)
}

// placed reports whether block already sits contiguously, in order, right
// before (or after) anchor.
func placed(o order, block []registry.TabID, anchor registry.TabID, before bool) bool {
	if len(block) == 0 {
		return true
	}
	if !contiguous(o, block) {
		return false
	}
	start := o.index(block[0])
	end := start + len(block)
	switch {
	case before && anchor == "":
		return end == len(o.ids)
	case before:
		return o.index(anchor) == end
	case anchor == "":
		return start == 0
	default:
		return o.index(anchor) == start-1
	}
}

// contiguous reports whether block occupies consecutive positions, in order.
func contiguous(o order, block []registry.TabID) bool {
	start := o.index(block[0])
	if start < 0 {
		return false
	}
	for i, id := range block {
		if o.index(id) != start+i {
			return false
		}
	}
	return true
}
