package tree

import (
	"context"
	"errors"
	"testing"

	"tableflip.dev/tabtree/pkg/registry"
)

func TestMoveSubtreeKeepsBlockTogether(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C", "D", "E")
	h.attach("B", "A")
	h.attach("C", "B")

	report := h.e.MoveSubtreeBefore(context.Background(), "A", "E")
	if report.Result != Applied {
		t.Fatalf("move = %v: %v", report.Result, report.Err())
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"D", "A", "B", "C", "E"}) {
		t.Fatalf("linear = %v", got)
	}
	if !sameIDs(report.Moved, []registry.TabID{"A", "B", "C"}) {
		t.Fatalf("moved = %v", report.Moved)
	}
	h.valid()

	report = h.e.MoveSubtreeBefore(context.Background(), "A", "E")
	if report.Result != Unchanged {
		t.Fatalf("second move = %v", report.Result)
	}

	report = h.e.MoveSubtreeAfter(context.Background(), "A", "")
	if report.Result != Applied {
		t.Fatalf("move to start = %v", report.Result)
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"A", "B", "C", "D", "E"}) {
		t.Fatalf("linear = %v", got)
	}

	report = h.e.MoveSubtreeBefore(context.Background(), "A", "")
	if got := h.linear(); report.Result != Applied || !sameIDs(got, []registry.TabID{"D", "E", "A", "B", "C"}) {
		t.Fatalf("move to end = %v, linear = %v", report.Result, got)
	}
	h.valid()
}

func TestMoveSubtreeRejectsAnchorInsideSubtree(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C")
	h.attach("B", "A")
	if r := h.e.MoveSubtreeAfter(context.Background(), "A", "B").Result; r != RejectedInvalid {
		t.Fatalf("result = %v", r)
	}
	if r := h.e.MoveSubtreeAfter(context.Background(), "gone", "B").Result; r != SkippedStale {
		t.Fatalf("stale root = %v", r)
	}
	if r := h.e.MoveSubtreeAfter(context.Background(), "A", "gone").Result; r != SkippedStale {
		t.Fatalf("stale anchor = %v", r)
	}
}

func TestMoveSubtreeRootVanishes(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C", "D")
	h.attach("B", "A")
	h.reg.BeforeMove = func(id registry.TabID, _ int) error {
		if id == "A" {
			h.reg.BeforeMove = nil
			return h.reg.Remove(context.Background(), "A")
		}
		return nil
	}

	report := h.e.MoveSubtreeAfter(context.Background(), "A", "D")
	if report.Result != Failed {
		t.Fatalf("result = %v", report.Result)
	}
	if len(report.Moved) != 0 {
		t.Fatalf("moved = %v", report.Moved)
	}
	if c := h.e.Counters(h.w); c.Moving != 0 || c.ChildrenMoving != 0 {
		t.Fatalf("counters leaked: %+v", c)
	}
	h.valid()
}

func TestFollowDescendantsContinuesAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C", "X")
	h.attach("B", "A")
	h.attach("C", "A")
	boom := errors.New("boom")
	h.reg.BeforeMove = func(id registry.TabID, _ int) error {
		if id == "B" {
			return boom
		}
		return nil
	}

	report := h.e.MoveSubtreeAfter(context.Background(), "A", "X")
	if report.Result != Failed || !errors.Is(report.Err(), boom) {
		t.Fatalf("report = %+v", report)
	}
	if !sameIDs(report.Moved, []registry.TabID{"A", "C"}) {
		t.Fatalf("moved = %v", report.Moved)
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"B", "X", "A", "C"}) {
		t.Fatalf("linear = %v", got)
	}
}

func TestMoveTabsKeepsOrder(t *testing.T) {
	h := newHarness(t)
	h.open("A", "B", "C", "D")
	report := h.e.MoveTabsAfter(context.Background(), []registry.TabID{"A", "B"}, "D")
	if report.Result != Applied {
		t.Fatalf("move = %v", report.Result)
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"C", "D", "A", "B"}) {
		t.Fatalf("linear = %v", got)
	}
	report = h.e.MoveTabsBefore(context.Background(), []registry.TabID{"A", "B"}, "C")
	if got := h.linear(); report.Result != Applied || !sameIDs(got, []registry.TabID{"A", "B", "C", "D"}) {
		t.Fatalf("move = %v, linear = %v", report.Result, got)
	}
	if r := h.e.MoveTabsBefore(context.Background(), []registry.TabID{"A", "B"}, "C").Result; r != Unchanged {
		t.Fatalf("repeat = %v", r)
	}
}

func TestExternalMoveRepairsTree(t *testing.T) {
	h := newHarness(t)
	h.open("P", "C1", "C2", "R", "R1")
	h.attach("C1", "P")
	h.attach("C2", "P")
	h.attach("R1", "R")

	// C1 dragged by the user to the end of the window leaves P.
	if err := h.reg.Move(context.Background(), "C1", 4); err != nil {
		t.Fatalf("move: %v", err)
	}
	if p := h.e.Parent("C1"); p != "" {
		t.Fatalf("C1 parent = %s, want none", p)
	}
	h.valid()

	// R dragged between P and C2 joins P and takes R1 along.
	if err := h.reg.Move(context.Background(), "R", 1); err != nil {
		t.Fatalf("move: %v", err)
	}
	if p := h.e.Parent("R"); p != "P" {
		t.Fatalf("R parent = %q, want P", p)
	}
	if got := h.linear(); !sameIDs(got, []registry.TabID{"P", "R", "R1", "C2", "C1"}) {
		t.Fatalf("linear = %v", got)
	}
	h.valid()
}
