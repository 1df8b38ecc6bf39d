package options

import (
	"github.com/spf13/cobra"
)

// WindowOptions selects a destination window by name.
type WindowOptions struct {
	Window    string
	Duplicate bool
}

func AddWindowArgs(cmd *cobra.Command, o *WindowOptions) {
	cmd.Flags().StringVarP(&o.Window, "to", "t", "",
		"Destination window; created when it does not exist.")
}

func AddDuplicateArgs(cmd *cobra.Command, o *WindowOptions) {
	cmd.Flags().BoolVarP(&o.Duplicate, "duplicate", "d", false,
		"Copy the tabs instead of moving them.")
}
