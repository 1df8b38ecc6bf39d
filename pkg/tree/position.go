package tree

import "tableflip.dev/tabtree/pkg/registry"

// ReferenceOptions tunes ReferenceTabs.
type ReferenceOptions struct {
	// InsertAt overrides the policy's InsertNewChildAt.
	InsertAt InsertPosition
	// Ignore excludes tabs from the descendant and linear order scans, e.g.
	// the tabs being dragged.
	Ignore []registry.TabID
}

// ReferenceTabs computes the linear neighbours a new child of parent should
// be placed between. Either anchor may be empty.
func (e *Engine) ReferenceTabs(child, parent registry.TabID, opts ReferenceOptions) (before, after registry.TabID) {
	e.lock()
	defer e.unlock()
	p := e.nodeLocked(parent)
	if p == nil {
		return "", ""
	}
	return e.referenceTabsLocked(child, p, opts)
}

func (e *Engine) referenceTabsLocked(child registry.TabID, parent *node, opts ReferenceOptions) (before, after registry.TabID) {
	insertAt := opts.InsertAt
	if insertAt == "" {
		insertAt = e.policy.InsertNewChildAt
	}
	ignore := set(opts.Ignore)
	var descendants []*node
	for _, d := range e.descendantsLocked(parent) {
		if !ignore[d.id] {
			descendants = append(descendants, d)
		}
	}
	all := e.orderLocked(parent.window)

	if len(descendants) > 0 {
		firstChild := descendants[0]
		lastDescendant := descendants[len(descendants)-1]
		switch insertAt {
		case InsertFirst:
			before = firstChild.id
		case InsertNearest:
			visible := all.without(ignore)
			index := visible.index(child)
			switch {
			case index < visible.index(firstChild.id):
				before = firstChild.id
				after = parent.id
			case index > visible.index(lastDescendant.id):
				after = lastDescendant.id
			default:
				for _, c := range e.childrenLocked(parent) {
					if ignore[c.id] {
						continue
					}
					if index > visible.index(c.id) {
						continue
					}
					before = c.id
					break
				}
				if before == "" {
					after = lastDescendant.id
				}
			}
		default:
			after = lastDescendant.id
		}
	} else {
		after = parent.id
	}

	if before == child {
		before = all.next(before)
	}
	if after == child {
		after = all.prev(after)
	}

	// Anchors must stay inside the parent's tree: nothing goes before the
	// parent, nothing goes after its last member.
	parentIndex := all.index(parent.id)
	if before != "" && all.index(before) <= parentIndex {
		before = ""
	}
	lastMember := parent.id
	if d := e.descendantsLocked(parent); len(d) > 0 {
		lastMember = d[len(d)-1].id
	}
	if after != "" && all.index(after) > all.index(lastMember) {
		after = lastMember
	}
	return before, after
}

// newIndexLocked is the linear index the child ends up at when placed
// between the anchors, counted without the child itself.
func newIndexLocked(o order, child, before, after registry.TabID) int {
	rest := o.without(map[registry.TabID]bool{child: true})
	if i := rest.index(before); before != "" && i >= 0 {
		return i
	}
	if i := rest.index(after); after != "" && i >= 0 {
		return i + 1
	}
	return len(rest.ids)
}
