package tree

import (
	"context"
	"sync"
	"testing"

	"tableflip.dev/tabtree/pkg/registry"
)

type harness struct {
	t   *testing.T
	reg *registry.Memory
	e   *Engine
	w   registry.WindowID

	mu     sync.Mutex
	events []Event
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	reg := registry.NewMemory()
	e := New(reg, opts...)
	reg.AddListener(e)
	h := &harness{t: t, reg: reg, e: e, w: reg.OpenWindow()}
	e.Subscribe(func(ev Event) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, ev)
	})
	return h
}

func (h *harness) open(ids ...registry.TabID) {
	h.t.Helper()
	h.openIn(h.w, ids...)
}

func (h *harness) openIn(w registry.WindowID, ids ...registry.TabID) {
	h.t.Helper()
	for _, id := range ids {
		if _, err := h.reg.Create(context.Background(), w, registry.CreateProperties{ID: id}); err != nil {
			h.t.Fatalf("create %s: %v", id, err)
		}
	}
}

func (h *harness) attach(child, parent registry.TabID) {
	h.t.Helper()
	p, report := h.e.AttachAndPlace(context.Background(), child, parent, AttachOptions{})
	if p.Result != Applied {
		h.t.Fatalf("attach %s to %s: %v", child, parent, p.Result)
	}
	if report.Result == Failed {
		h.t.Fatalf("attach %s to %s: move failed: %v", child, parent, report.Err())
	}
}

func (h *harness) linear() []registry.TabID {
	return h.linearOf(h.w)
}

func (h *harness) linearOf(w registry.WindowID) []registry.TabID {
	var out []registry.TabID
	for _, t := range h.reg.Tabs(w) {
		out = append(out, t.ID)
	}
	return out
}

func (h *harness) valid() {
	h.t.Helper()
	for _, w := range h.reg.Windows() {
		if err := h.e.Validate(w); err != nil {
			h.t.Fatalf("invalid forest in window %d: %v", w, err)
		}
	}
}

func (h *harness) node(id registry.TabID) NodeInfo {
	h.t.Helper()
	n, ok := h.e.Node(id)
	if !ok {
		h.t.Fatalf("no node %s", id)
	}
	return n
}

func (h *harness) resetEvents() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func (h *harness) recorded() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

func sameIDs(a, b []registry.TabID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAttachBuildsTree(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2")
	h.attach("C1", "P")
	h.attach("C2", "P")

	if got := h.e.Children("P"); !sameIDs(got, []registry.TabID{"C1", "C2"}) {
		t.Fatalf("children = %v", got)
	}
	if lvl := h.node("C2").Level; lvl != 1 {
		t.Fatalf("level of C2 = %d, want 1", lvl)
	}
	h.valid()

	var attached []Attached
	for _, ev := range h.recorded() {
		if a, ok := ev.(Attached); ok {
			attached = append(attached, a)
		}
	}
	if len(attached) != 2 || !attached[0].NewlyAttached || attached[1].Index != 2 {
		t.Fatalf("attached events = %+v", attached)
	}
}

func TestAttachRejections(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C")
	if _, err := h.reg.Create(context.Background(), h.w, registry.CreateProperties{ID: "pin", Pinned: true}); err != nil {
		t.Fatalf("create pinned: %v", err)
	}
	other := h.reg.OpenWindow()
	h.openIn(other, "X")
	h.attach("B", "A")
	h.attach("C", "B")

	tests := map[string]struct {
		child, parent registry.TabID
		want          Result
	}{
		"cycle through descendant": {child: "A", parent: "C", want: RejectedInvalid},
		"own parent":               {child: "A", parent: "A", want: RejectedInvalid},
		"pinned child":             {child: "pin", parent: "A", want: RejectedInvalid},
		"pinned parent":            {child: "C", parent: "pin", want: RejectedInvalid},
		"other window":             {child: "X", parent: "A", want: RejectedInvalid},
		"stale child":              {child: "gone", parent: "A", want: SkippedStale},
		"stale parent":             {child: "A", parent: "gone", want: SkippedStale},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if got := h.e.Attach(tc.child, tc.parent, AttachOptions{}); got != tc.want {
				t.Fatalf("Attach(%s, %s) = %v, want %v", tc.child, tc.parent, got, tc.want)
			}
		})
	}
	if p := h.e.Parent("A"); p != "" {
		t.Fatalf("A gained parent %s", p)
	}
	h.valid()
}

func TestReferenceTabsNearest(t *testing.T) {
	h := newHarness(t)
	h.open("P", "D1", "X", "D2", "D3")
	for _, d := range []registry.TabID{"D1", "D2", "D3"} {
		if r := h.e.Attach(d, "P", AttachOptions{DontMove: true}); r != Applied {
			t.Fatalf("attach %s: %v", d, r)
		}
	}

	before, after := h.e.ReferenceTabs("X", "P", ReferenceOptions{InsertAt: InsertNearest})
	if before != "D2" || after != "" {
		t.Fatalf("ReferenceTabs = (%q, %q), want (D2, \"\")", before, after)
	}

	p, _ := h.e.AttachAndPlace(context.Background(), "X", "P", AttachOptions{InsertAt: InsertNearest})
	if p.Result != Applied {
		t.Fatalf("attach: %v", p.Result)
	}
	if got := h.e.Children("P"); !sameIDs(got, []registry.TabID{"D1", "X", "D2", "D3"}) {
		t.Fatalf("children = %v", got)
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"P", "D1", "X", "D2", "D3"}) {
		t.Fatalf("linear = %v", got)
	}
	h.valid()
}

func TestReferenceTabsPositions(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2", "N")
	h.attach("C1", "P")
	h.attach("C2", "P")

	tests := map[InsertPosition]struct{ before, after registry.TabID }{
		InsertEnd:   {after: "C2"},
		InsertFirst: {before: "C1"},
		// N sits after the last descendant.
		InsertNearest: {after: "C2"},
	}
	for at, want := range tests {
		before, after := h.e.ReferenceTabs("N", "P", ReferenceOptions{InsertAt: at})
		if before != want.before || after != want.after {
			t.Fatalf("%s: got (%q, %q), want (%q, %q)", at, before, after, want.before, want.after)
		}
	}

	before, after := h.e.ReferenceTabs("N", "C1", ReferenceOptions{})
	if before != "" || after != "C1" {
		t.Fatalf("childless parent: got (%q, %q)", before, after)
	}
}

func TestAttachInPlaceIsUnchanged(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2")
	h.attach("C1", "P")
	h.attach("C2", "P")
	h.resetEvents()

	if r := h.e.Attach("C2", "P", AttachOptions{}); r != Unchanged {
		t.Fatalf("second attach = %v, want Unchanged", r)
	}
	if evs := h.recorded(); len(evs) != 0 {
		t.Fatalf("second attach dispatched %v", evs)
	}
	h.valid()
}

func TestReparentReportsLevelOnce(t *testing.T) {
	h := newHarness(t)
	h.open("A", "A1", "C", "B", "B1")
	h.attach("A1", "A")
	h.attach("B", "C")
	h.attach("B1", "B")
	h.resetEvents()

	h.attach("B", "A1")
	levels := make(map[registry.TabID][]int)
	for _, ev := range h.recorded() {
		if l, ok := ev.(LevelChanged); ok {
			levels[l.Tab] = append(levels[l.Tab], l.Level)
		}
	}
	want := map[registry.TabID]int{"B": 2, "B1": 3}
	if len(levels) != len(want) {
		t.Fatalf("level events = %v", levels)
	}
	for id, w := range want {
		if got := levels[id]; len(got) != 1 || got[0] != w {
			t.Fatalf("level events of %s = %v, want [%d]", id, got, w)
		}
	}
	h.valid()
}

func TestAttachFirstPlacesBeforeSiblings(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2", "N")
	h.attach("C1", "P")
	h.attach("C2", "P")

	p, report := h.e.AttachAndPlace(context.Background(), "N", "P", AttachOptions{InsertAt: InsertFirst})
	if p.Result != Applied || report.Result == Failed {
		t.Fatalf("attach: %v %v", p.Result, report.Err())
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"P", "N", "C1", "C2"}) {
		t.Fatalf("linear = %v", got)
	}
	if got := h.e.Children("P"); !sameIDs(got, []registry.TabID{"N", "C1", "C2"}) {
		t.Fatalf("children = %v", got)
	}
	h.valid()
}

func TestDetachIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C")
	h.attach("C", "P")
	if r := h.e.Detach("C", DetachOptions{}); r != Applied {
		t.Fatalf("detach = %v", r)
	}
	if r := h.e.Detach("C", DetachOptions{}); r != Unchanged {
		t.Fatalf("second detach = %v", r)
	}
	if r := h.e.Detach("gone", DetachOptions{}); r != SkippedStale {
		t.Fatalf("stale detach = %v", r)
	}
	if n := h.node("C"); n.Parent != "" || n.Level != 0 {
		t.Fatalf("node after detach = %+v", n)
	}
	if got := h.e.Children("P"); len(got) != 0 {
		t.Fatalf("children = %v", got)
	}
}

func TestCountersReturnToZero(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C", "D")
	h.attach("C", "A")
	h.attach("D", "C")
	h.e.MoveSubtreeAfter(context.Background(), "A", "B")
	h.e.CollapseExpandTreesIntelligentlyFor("A", CollapseOptions{})
	release := h.e.Track(h.w, CounterDuplicating)
	if c := h.e.Counters(h.w); c.Duplicating != 1 {
		t.Fatalf("duplicating = %d", c.Duplicating)
	}
	release()
	release()
	if c := h.e.Counters(h.w); c != (Counters{}) {
		t.Fatalf("counters = %+v", c)
	}
}
