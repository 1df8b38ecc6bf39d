// Package key provides CLI helpers to display the tree legend.
package key

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/tabtree/pkg/printers"
)

// Key prints a glyph legend describing how tabs are drawn.
type Key struct{}

// Do renders the glyph and color keys to stdout.
func (k *Key) Do(ctx context.Context) error {
	_, _ = fmt.Fprintln(color.Output, "")

	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Glyph"), bold.Sprint("Meaning"))
	for _, e := range printers.Legend() {
		tbl.AddRow(e.Symbol, e.Meaning)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(color.Output, tbl)
	_, _ = fmt.Fprintln(color.Output, "")

	tbl = uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Color"), bold.Sprint("Meaning"))
	tbl.AddRow(color.New(color.FgHiGreen, color.Bold).Sprint("green"), "active tab of the window")
	tbl.AddRow(color.New(color.Faint).Sprint("faint"), "hidden below a collapsed parent (--hidden)")
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(color.Output, tbl)

	_, _ = fmt.Fprintln(color.Output, "")
	return nil
}
