package options

import (
	"github.com/spf13/cobra"
)

// PlacementOptions are the linear anchors of a move, attach or drop.
type PlacementOptions struct {
	Before string
	After  string
}

func AddPlacementArgs(cmd *cobra.Command, o *PlacementOptions) {
	cmd.Flags().StringVar(&o.Before, "before", "",
		"Place the tabs right before this tab.")
	cmd.Flags().StringVar(&o.After, "after", "",
		"Place the tabs right after this tab.")
}
