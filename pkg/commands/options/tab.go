package options

import (
	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/tree"
)

// TabOptions describe a tab to open.
type TabOptions struct {
	URL      string
	Title    string
	Pinned   bool
	Active   bool
	Opener   string
	Behavior string
}

func AddTabArgs(cmd *cobra.Command, o *TabOptions) {
	cmd.Flags().StringVarP(&o.URL, "url", "u", "", "URL of the tab.")
	cmd.Flags().StringVar(&o.Title, "title", "", "Title of the tab.")
	cmd.Flags().BoolVar(&o.Pinned, "pinned", false, "Pin the tab.")
	cmd.Flags().BoolVarP(&o.Active, "active", "a", false, "Select the tab.")
	cmd.Flags().StringVar(&o.Opener, "opener", "", "The tab this tab was opened from.")
	cmd.Flags().StringVar(&o.Behavior, "as", string(tree.NewTabOrphan),
		"Where the tab joins the tree relative to --opener. One of 'orphan', 'child', 'sibling' or 'nextSibling'.")
}

// GetBehavior parses --as.
func (o *TabOptions) GetBehavior() (tree.NewTabBehavior, error) {
	return tree.ParseNewTabBehavior(o.Behavior)
}
