package commands

import (
	"context"

	"github.com/spf13/cobra"

	"tableflip.dev/tabtree/pkg/commands/options"
	"tableflip.dev/tabtree/pkg/runner/edit"
)

// editFlags are shared by every command that changes saved windows.
type editFlags struct {
	id    options.IDOptions
	trace options.TraceOptions
}

func addEditArgs(cmd *cobra.Command, f *editFlags) {
	options.AddShowIDArgs(cmd, &f.id)
	options.AddTraceArgs(cmd, &f.trace)
}

func runEdit(f *editFlags, change edit.Change) error {
	svc, _, err := loadService()
	if err != nil {
		return output.HandleError(err)
	}
	e := edit.Edit{
		Service: svc,
		Change:  change,
		ShowID:  f.id.ShowID,
		Trace:   f.trace.Trace,
		Quiet:   output.JSON,
	}
	return output.HandleError(e.Do(context.Background()))
}
