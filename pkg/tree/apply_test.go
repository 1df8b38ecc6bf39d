package tree

import (
	"context"
	"sync"
	"testing"

	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/structure"
)

type fakeBus struct {
	mu   sync.Mutex
	cmds []Command
}

func (b *fakeBus) Publish(_ context.Context, cmd Command) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cmds = append(b.cmds, cmd)
	return nil
}

func (b *fakeBus) published() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Command(nil), b.cmds...)
}

func parentsOf(items []structure.Item) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.Parent
	}
	return out
}

func TestStructureRoundTrip(t *testing.T) {
	src := newHarness(t)
	src.open("A", "B", "C", "D")
	src.attach("B", "A")
	src.attach("C", "A")

	items := src.e.WindowStructure(src.w, false)
	want := []int{-1, 0, 0, -1}
	for i, p := range parentsOf(items) {
		if p != want[i] {
			t.Fatalf("parents = %v, want %v", parentsOf(items), want)
		}
	}

	dst := newHarness(t)
	dst.open("X", "Y", "Z", "W")
	if r := dst.e.ApplyStructure(dst.linear(), items, ApplyOptions{}); r != Applied {
		t.Fatalf("apply = %v", r)
	}
	if got := dst.e.Children("X"); !sameIDs(got, []registry.TabID{"Y", "Z"}) {
		t.Fatalf("children of X = %v", got)
	}
	if dst.node("X").SubtreeCollapsed {
		t.Fatal("X should stay expanded")
	}
	if p := dst.e.Parent("W"); p != "" {
		t.Fatalf("W parent = %s", p)
	}
	dst.valid()
}

func TestStructureRestoresCollapsedState(t *testing.T) {
	src := newHarness(t)
	src.open("A", "B", "C")
	src.attach("B", "A")
	src.attach("C", "B")
	src.e.CollapseExpandSubtree("B", CollapseOptions{Collapsed: true})

	dst := newHarness(t)
	dst.open("X", "Y", "Z")
	dst.e.ApplyStructure(dst.linear(), src.e.WindowStructure(src.w, false), ApplyOptions{})
	if dst.node("X").SubtreeCollapsed || !dst.node("Y").SubtreeCollapsed {
		t.Fatalf("X=%+v Y=%+v", dst.node("X"), dst.node("Y"))
	}
	if dst.node("Y").Collapsed || !dst.node("Z").Collapsed {
		t.Fatal("only Z should be hidden")
	}
	dst.valid()

	// Reapplying an expanded structure reveals everything again.
	dst.e.ApplyStructure(dst.linear(), []structure.Item{{Parent: -1}, {Parent: 0}, {Parent: 1}}, ApplyOptions{})
	if !dst.node("Y").SubtreeCollapsed {
		t.Fatal("a missing state collapses tabs with children")
	}
	collapsed := false
	items := []structure.Item{{Parent: -1, Collapsed: &collapsed}, {Parent: 0, Collapsed: &collapsed}, {Parent: 1, Collapsed: &collapsed}}
	dst.e.ApplyStructure(dst.linear(), items, ApplyOptions{})
	for _, id := range []registry.TabID{"X", "Y", "Z"} {
		if n := dst.node(id); n.Collapsed || n.SubtreeCollapsed {
			t.Fatalf("%s = %+v", id, n)
		}
	}
	dst.valid()
}

func TestApplyLegacyStructure(t *testing.T) {
	items, err := structure.Decode([]byte(`[-1, 0, 1, -1]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	h := newHarness(t)
	h.open("A", "B", "C", "D")
	h.e.ApplyStructure(h.linear(), items, ApplyOptions{})

	if p := h.e.Parent("C"); p != "B" {
		t.Fatalf("C parent = %q", p)
	}
	if !h.node("A").SubtreeCollapsed || !h.node("B").SubtreeCollapsed || h.node("D").SubtreeCollapsed {
		t.Fatal("tabs with children collapse when no state is recorded")
	}
	h.valid()
}

func TestApplyStructureTruncates(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C")
	h.e.ApplyStructure(h.linear(), []structure.Item{{Parent: -1}, {Parent: 0}}, ApplyOptions{})
	if p := h.e.Parent("B"); p != "A" {
		t.Fatalf("B parent = %q", p)
	}
	if p := h.e.Parent("C"); p != "" {
		t.Fatalf("C parent = %q", p)
	}
	if r := h.e.ApplyStructure(nil, []structure.Item{{Parent: -1}}, ApplyOptions{}); r != Unchanged {
		t.Fatalf("empty apply = %v", r)
	}
}

func TestApplyStructureOutOfRangeParentUsesRoot(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C")
	h.e.ApplyStructure(h.linear(), []structure.Item{{Parent: -1}, {Parent: 0}, {Parent: 7}}, ApplyOptions{})
	if p := h.e.Parent("C"); p != "A" {
		t.Fatalf("C parent = %q, want A", p)
	}
	h.valid()
}

func TestApplyStructureSkipsUnknownRoot(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C", "D")
	tabs := []registry.TabID{"A", "B", "gone", "C", "D"}
	items := []structure.Item{{Parent: -1}, {Parent: 0}, {Parent: -1}, {Parent: 0}, {Parent: 1}}
	h.e.ApplyStructure(tabs, items, ApplyOptions{})

	if p := h.e.Parent("B"); p != "A" {
		t.Fatalf("B parent = %q", p)
	}
	for _, id := range []registry.TabID{"C", "D"} {
		if p := h.e.Parent(id); p != "" {
			t.Fatalf("%s joined %q, the tree of an unknown root", id, p)
		}
	}
	if got := h.e.Children("A"); !sameIDs(got, []registry.TabID{"B"}) {
		t.Fatalf("children of A = %v", got)
	}
	h.valid()
}

func TestApplyStructureSkipsUnknownChild(t *testing.T) {
	h := newHarness(t)
	h.open("A", "C")
	tabs := []registry.TabID{"A", "gone", "C"}
	items := []structure.Item{{Parent: -1}, {Parent: 0}, {Parent: 1}}
	h.e.ApplyStructure(tabs, items, ApplyOptions{})

	if p := h.e.Parent("C"); p != "A" {
		t.Fatalf("C parent = %q, want the root A", p)
	}
	h.valid()
}

func TestBroadcastReplaysOnPeer(t *testing.T) {
	bus := &fakeBus{}
	src := newHarness(t, WithBroadcaster(bus))
	src.open("P", "X", "C")
	p, _ := src.e.AttachAndPlace(context.Background(), "C", "P", AttachOptions{Broadcast: true})
	if p.Result != Applied {
		t.Fatalf("attach = %v", p.Result)
	}
	src.e.ManualCollapseExpandSubtree("P", CollapseOptions{Collapsed: true, Broadcast: true})
	src.e.ManualCollapseExpandSubtree("P", CollapseOptions{Collapsed: false, Broadcast: true})

	cmds := bus.published()
	if len(cmds) != 3 {
		t.Fatalf("published %d commands: %+v", len(cmds), cmds)
	}
	if cmds[0].Type != CommandAttach || cmds[0].Tab != "C" || cmds[0].Parent != "P" {
		t.Fatalf("attach command = %+v", cmds[0])
	}
	if !cmds[2].Manual || cmds[2].Collapsed {
		t.Fatalf("expand command = %+v", cmds[2])
	}

	peer := newHarness(t)
	peer.open("P", "C", "X")
	for _, cmd := range cmds {
		if r := peer.e.ApplyRemote(context.Background(), cmd); r != Applied {
			t.Fatalf("replay %s = %v", cmd.Type, r)
		}
	}
	if got := peer.e.Children("P"); !sameIDs(got, []registry.TabID{"C"}) {
		t.Fatalf("peer children = %v", got)
	}
	if got := peer.linear(); !sameIDs(got, []registry.TabID{"P", "C", "X"}) {
		t.Fatalf("peer moved tabs: %v", got)
	}
	peer.valid()

	if r := peer.e.ApplyRemote(context.Background(), Command{Type: "bogus"}); r != RejectedInvalid {
		t.Fatalf("unknown command = %v", r)
	}
}

func TestApplyStructureBroadcast(t *testing.T) {
	bus := &fakeBus{}
	h := newHarness(t, WithBroadcaster(bus))
	h.open("A", "B")
	h.e.ApplyStructure(h.linear(), []structure.Item{{Parent: -1}, {Parent: 0}}, ApplyOptions{Broadcast: true})
	cmds := bus.published()
	if len(cmds) != 1 || cmds[0].Type != CommandApplyStructure || len(cmds[0].Tabs) != 2 {
		t.Fatalf("commands = %+v", cmds)
	}

	peer := newHarness(t)
	peer.open("A", "B")
	peer.e.ApplyRemote(context.Background(), cmds[0])
	if p := peer.e.Parent("B"); p != "A" {
		t.Fatalf("peer B parent = %q", p)
	}
}
