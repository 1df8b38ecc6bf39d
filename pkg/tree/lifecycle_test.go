package tree

import (
	"context"
	"testing"

	"tableflip.dev/tabtree/pkg/registry"
)

func withPolicy(mutate func(*Policy)) Option {
	p := DefaultPolicy()
	mutate(&p)
	return WithPolicy(p)
}

func TestCloseRootPromotesFirstChild(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2")
	h.attach("C1", "P")
	h.attach("C2", "P")

	if err := h.reg.Remove(context.Background(), "P"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if h.e.Has("P") {
		t.Fatal("P still known")
	}
	if p := h.e.Parent("C1"); p != "" {
		t.Fatalf("C1 parent = %s", p)
	}
	if p := h.e.Parent("C2"); p != "C1" {
		t.Fatalf("C2 parent = %q, want C1", p)
	}
	if lvl := h.node("C2").Level; lvl != 1 {
		t.Fatalf("C2 level = %d", lvl)
	}
	h.valid()
}

func TestCloseNestedLastChildPromotesAll(t *testing.T) {
	h := newHarness(t)
	h.open("G", "P", "C1", "C2")
	h.attach("P", "G")
	h.attach("C1", "P")
	h.attach("C2", "P")

	if b := h.e.CloseParentBehaviorFor("P", CloseOptions{}); b != PromoteAllChildren {
		t.Fatalf("behavior = %s", b)
	}
	if err := h.reg.Remove(context.Background(), "P"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := h.e.Children("G"); !sameIDs(got, []registry.TabID{"C1", "C2"}) {
		t.Fatalf("children of G = %v", got)
	}
	h.valid()
}

func TestCloseParentBehaviorRules(t *testing.T) {
	tests := map[string]struct {
		policy    func(*Policy)
		collapsed bool
		opts      CloseOptions
		tab       registry.TabID
		want      CloseParentBehavior
	}{
		"collapsed subtree closes children": {collapsed: true, tab: "P", want: CloseAllChildren},
		"keep children of collapsed subtree": {collapsed: true, tab: "P", opts: CloseOptions{KeepChildren: true}, want: PromoteFirstChild},
		"keep children forces promote": {
			policy: func(p *Policy) { p.CloseParentBehavior = DetachAllChildren },
			tab:    "P", opts: CloseOptions{KeepChildren: true}, want: PromoteFirstChild,
		},
		"root with promote all": {
			policy: func(p *Policy) { p.CloseParentBehavior = PromoteAllChildren },
			tab:    "R", want: PromoteFirstChild,
		},
		"only child escalates": {tab: "C", want: PromoteAllChildren},
		"no escalation when disabled": {
			policy: func(p *Policy) { p.PromoteAllChildrenWhenLastChild = false },
			tab:    "C", want: PromoteFirstChild,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			mutate := tc.policy
			if mutate == nil {
				mutate = func(*Policy) {}
			}
			h := newHarness(t, withPolicy(mutate))
			h.open("R", "P", "C", "S")
			h.attach("P", "R")
			h.attach("C", "P")
			h.attach("S", "R")
			if tc.collapsed {
				h.e.CollapseExpandSubtree("P", CollapseOptions{Collapsed: true})
			}
			if got := h.e.CloseParentBehaviorFor(tc.tab, tc.opts); got != tc.want {
				t.Fatalf("behavior = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCloseCollapsedParentClosesSubtree(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "G", "C2", "X")
	h.attach("C1", "P")
	h.attach("G", "C1")
	h.attach("C2", "P")
	h.e.CollapseExpandSubtree("P", CollapseOptions{Collapsed: true})

	if got := h.e.ClosingTabs("P"); !sameIDs(got, []registry.TabID{"P", "C1", "G", "C2"}) {
		t.Fatalf("closing tabs = %v", got)
	}
	if err := h.reg.Remove(context.Background(), "P"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"X"}) {
		t.Fatalf("linear = %v", got)
	}
	for _, id := range []registry.TabID{"P", "C1", "G", "C2"} {
		if h.e.Has(id) {
			t.Fatalf("%s still known", id)
		}
	}
	h.valid()
}

func TestCloseWithDetachAllMovesChildrenBeforeNextRoot(t *testing.T) {
	h := newHarness(t, withPolicy(func(p *Policy) { p.CloseParentBehavior = DetachAllChildren }))
	h.open("P", "C1", "C2", "N")
	h.attach("C1", "P")
	h.attach("C2", "P")

	if err := h.reg.Remove(context.Background(), "P"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := h.e.Roots(h.w); !sameIDs(got, []registry.TabID{"C1", "C2", "N"}) {
		t.Fatalf("roots = %v", got)
	}
	h.valid()
}

func TestDetachAllChildrenBehaviors(t *testing.T) {
	tests := map[CloseParentBehavior]struct {
		parents map[registry.TabID]registry.TabID
	}{
		SimplyDetach:       {parents: map[registry.TabID]registry.TabID{"C1": "", "C2": ""}},
		PromoteFirstChild:  {parents: map[registry.TabID]registry.TabID{"C1": "G", "C2": "C1"}},
		PromoteAllChildren: {parents: map[registry.TabID]registry.TabID{"C1": "G", "C2": "G"}},
		ReplaceWithGroup:   {parents: map[registry.TabID]registry.TabID{"C1": "G", "C2": "G"}},
	}
	for behavior, tc := range tests {
		t.Run(string(behavior), func(t *testing.T) {
			h := newHarness(t)
			h.open("G", "P", "C1", "C2")
			h.attach("P", "G")
			h.attach("C1", "P")
			h.attach("C2", "P")
			if r := h.e.DetachAllChildren(context.Background(), "P", DetachAllOptions{Behavior: behavior}); r != Applied {
				t.Fatalf("result = %v", r)
			}
			for child, want := range tc.parents {
				if got := h.e.Parent(child); got != want {
					t.Fatalf("parent of %s = %q, want %q", child, got, want)
				}
			}
			if got := h.e.Children("P"); len(got) != 0 {
				t.Fatalf("P still has children %v", got)
			}
		})
	}
}

func TestCloseActiveLastChildFocusesPreviousSibling(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2", "X")
	h.attach("C1", "P")
	h.attach("C2", "P")
	if err := h.reg.Activate(context.Background(), "C2"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := h.reg.Remove(context.Background(), "C2"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if tab, _ := h.reg.Get("C1"); !tab.Active {
		t.Fatal("C1 should be active")
	}
}

func TestCloseActiveParentFocusesFirstChild(t *testing.T) {
	h := newHarness(t)
	h.open("X", "P", "C1", "C2")
	h.attach("C1", "P")
	h.attach("C2", "P")
	if err := h.reg.Activate(context.Background(), "P"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := h.reg.Remove(context.Background(), "P"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if tab, _ := h.reg.Get("C1"); !tab.Active {
		t.Fatal("C1 should be active")
	}
}

func TestCloseOnlyChildFocusesParent(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C", "X")
	h.attach("C", "P")
	if err := h.reg.Activate(context.Background(), "C"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := h.reg.Remove(context.Background(), "C"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if tab, _ := h.reg.Get("P"); !tab.Active {
		t.Fatal("P should be active")
	}
}

func TestTabLeavingWindowKeepsChildrenBehind(t *testing.T) {
	h := newHarness(t)
	other := h.reg.OpenWindow()
	h.open("G", "P", "C")
	h.attach("P", "G")
	h.attach("C", "P")

	if _, err := h.reg.TransferToWindow(context.Background(), "P", other, 0); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if p := h.e.Parent("C"); p != "G" {
		t.Fatalf("C parent = %q, want G", p)
	}
	n := h.node("P")
	if n.Window != other || n.Parent != "" {
		t.Fatalf("P = %+v", n)
	}
	h.valid()
}

func TestBehaveAutoAttached(t *testing.T) {
	h := newHarness(t)
	h.open("A", "A1", "B", "N1", "N2", "N3", "N4")
	h.attach("A1", "A")

	if r := h.e.BehaveAutoAttached(context.Background(), "N1", NewTabChild, "A"); r != Applied {
		t.Fatalf("child = %v", r)
	}
	if r := h.e.BehaveAutoAttached(context.Background(), "N2", NewTabSibling, "A1"); r != Applied {
		t.Fatalf("sibling = %v", r)
	}
	if r := h.e.BehaveAutoAttached(context.Background(), "N3", NewTabNextSibling, "A1"); r != Applied {
		t.Fatalf("next sibling = %v", r)
	}
	if got := h.e.Children("A"); !sameIDs(got, []registry.TabID{"A1", "N3", "N1", "N2"}) {
		t.Fatalf("children of A = %v", got)
	}
	if r := h.e.BehaveAutoAttached(context.Background(), "N1", NewTabOrphan, ""); r != Applied {
		t.Fatalf("orphan = %v", r)
	}
	if p := h.e.Parent("N1"); p != "" {
		t.Fatalf("N1 parent = %s", p)
	}
	if got := h.linear(); got[len(got)-1] != "N1" {
		t.Fatalf("linear = %v", got)
	}
	h.valid()
}
