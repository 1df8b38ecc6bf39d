package options

import (
	"github.com/spf13/cobra"
)

// TraceOptions
type TraceOptions struct {
	Trace bool
}

func AddTraceArgs(cmd *cobra.Command, o *TraceOptions) {
	cmd.Flags().BoolVar(&o.Trace, "trace", false,
		"Print the tree commands of the change as JSON lines on stderr.")
}
