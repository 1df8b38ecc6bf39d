package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/tree"
)

// IDWidth is how much of a tab id is shown. Tab references accept unique
// prefixes, so this is usually enough to address a tab.
const IDWidth = 8

type PrettyPrint struct {
	ShowID bool
	// ShowHidden also prints tabs below collapsed subtrees.
	ShowHidden bool
	// Width truncates titles; zero leaves them alone.
	Width int
}

var (
	spacing = strings.Repeat(" ", IDWidth+2)
)

func (pp *PrettyPrint) NewLine() {
	fmt.Fprintln(color.Output, "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = t.Fprint(color.Output, spacing)
	}
	_, _ = t.Fprintln(color.Output, title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = t.Fprint(color.Output, spacing)
	}
	_, _ = t.Fprint(color.Output, title)
	_, _ = c.Fprintf(color.Output, " - %d", count)

	switch count {
	case 1:
		_, _ = c.Fprintln(color.Output, " tab")
	default:
		_, _ = c.Fprintln(color.Output, " tabs")
	}
}

// Forest prints the nodes as an indented tree, in the order given.
func (pp *PrettyPrint) Forest(nodes []tree.NodeInfo, tabs map[registry.TabID]registry.Tab) {
	if len(nodes) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = f.Fprint(color.Output, spacing)
		}
		_, _ = f.Fprint(color.Output, " none\n\n")
		return
	}

	t := color.New()
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	active := color.New(color.FgHiGreen, color.Bold)
	faint := color.New(color.Faint)

	for _, n := range nodes {
		if n.Collapsed && !pp.ShowHidden {
			continue
		}
		tab := tabs[n.ID]
		if pp.ShowID {
			id := ShortID(n.ID)
			_, _ = y.Fprint(color.Output, id)
			_, _ = y.Fprint(color.Output, strings.Repeat(" ", len(spacing)-len(id)))
		}
		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", n.Level), Glyph(n, tab), pp.label(tab))
		switch {
		case tab.Active:
			_, _ = active.Fprintln(color.Output, line)
		case n.Collapsed:
			_, _ = faint.Fprintln(color.Output, line)
		default:
			_, _ = t.Fprintln(color.Output, line)
		}
	}
	_, _ = t.Fprintln(color.Output, "")
}

func (pp *PrettyPrint) label(tab registry.Tab) string {
	label := tab.Title
	if label == "" {
		label = tab.URL
	}
	if label == "" {
		label = string(tab.ID)
	}
	if pp.Width > 0 {
		label = truncate.StringWithTail(label, uint(pp.Width), "…")
	}
	return label
}

const (
	GlyphPinned    = "⊤"
	GlyphCollapsed = "▸"
	GlyphExpanded  = "▾"
	GlyphLeaf      = "•"
)

// LegendEntry explains one glyph.
type LegendEntry struct {
	Symbol  string
	Meaning string
}

// Legend lists the glyphs in display order.
func Legend() []LegendEntry {
	return []LegendEntry{
		{GlyphPinned, "pinned tab, never part of a tree"},
		{GlyphCollapsed, "collapsed parent, children hidden"},
		{GlyphExpanded, "expanded parent"},
		{GlyphLeaf, "tab without children"},
	}
}

// Glyph is the marker printed before a tab.
func Glyph(n tree.NodeInfo, tab registry.Tab) string {
	switch {
	case tab.Pinned:
		return GlyphPinned
	case n.HasChildren() && n.SubtreeCollapsed:
		return GlyphCollapsed
	case n.HasChildren():
		return GlyphExpanded
	}
	return GlyphLeaf
}

// ShortID shortens a tab id for display.
func ShortID(id registry.TabID) string {
	s := string(id)
	if len(s) > IDWidth {
		return s[:IDWidth]
	}
	return s
}

// Windows prints a table of window summaries.
func Windows(reports []app.WindowReport) {
	if len(reports) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprint(color.Output, "no saved windows\n")
		return
	}
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("WINDOW", "TABS", "PINNED", "TREES", "DEPTH", "COLLAPSED", "ACTIVE")
	for _, r := range reports {
		tbl.AddRow(r.Name, r.Tabs, r.Pinned, r.Roots, r.MaxDepth, r.Collapsed, ShortID(r.Active))
	}
	_, _ = fmt.Fprintln(color.Output, tbl)
}
