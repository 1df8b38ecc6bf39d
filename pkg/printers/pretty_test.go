package printers

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/tree"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out, noColor := color.Output, color.NoColor
	color.Output, color.NoColor = &buf, true
	t.Cleanup(func() { color.Output, color.NoColor = out, noColor })
	return &buf
}

func sample() ([]tree.NodeInfo, map[registry.TabID]registry.Tab) {
	nodes := []tree.NodeInfo{
		{ID: "pinned-tab", Level: 0},
		{ID: "parent-tab", Level: 0, Children: []registry.TabID{"child-tab"}, SubtreeCollapsed: true},
		{ID: "child-tab", Parent: "parent-tab", Level: 1, Collapsed: true},
		{ID: "other", Level: 0},
	}
	tabs := map[registry.TabID]registry.Tab{
		"pinned-tab": {ID: "pinned-tab", Pinned: true, URL: "https://pinned.example"},
		"parent-tab": {ID: "parent-tab", Title: "A rather long parent title"},
		"child-tab":  {ID: "child-tab", Title: "Child"},
		"other":      {ID: "other", Active: true},
	}
	return nodes, tabs
}

func TestForestHidesCollapsedTabs(t *testing.T) {
	buf := capture(t)
	pp := &PrettyPrint{}
	pp.Forest(sample())

	got := buf.String()
	want := "⊤ https://pinned.example\n▸ A rather long parent title\n• other\n\n"
	if got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestForestShowHiddenAndIDs(t *testing.T) {
	buf := capture(t)
	pp := &PrettyPrint{ShowHidden: true, ShowID: true, Width: 10}
	pp.Forest(sample())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[2], "child-ta") || !strings.HasSuffix(lines[2], "  • Child") {
		t.Fatalf("child line = %q", lines[2])
	}
	if !strings.HasSuffix(lines[1], "A rather …") {
		t.Fatalf("title not truncated: %q", lines[1])
	}
}

func TestForestEmpty(t *testing.T) {
	buf := capture(t)
	(&PrettyPrint{}).Forest(nil, nil)
	if !strings.Contains(buf.String(), "none") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWindowsTable(t *testing.T) {
	buf := capture(t)
	Windows([]app.WindowReport{{Name: "research", Tabs: 4, Roots: 2, MaxDepth: 2, Active: "C1"}})
	got := buf.String()
	if !strings.Contains(got, "WINDOW") || !strings.Contains(got, "research") {
		t.Fatalf("table = %q", got)
	}
}
