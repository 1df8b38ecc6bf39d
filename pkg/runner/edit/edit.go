// Package edit runs one change against the saved windows: open them, apply
// the change, check the forests, save and print the result.
package edit

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/broadcast"
	"tableflip.dev/tabtree/pkg/printers"
	"tableflip.dev/tabtree/pkg/runner/show"
	"tableflip.dev/tabtree/pkg/tree"
)

// Change mutates the session and returns the names of the windows worth
// printing afterwards.
type Change func(ctx context.Context, sess *app.Session) ([]string, error)

type Edit struct {
	Service *app.Service
	Change  Change
	ShowID  bool
	// Quiet skips printing the changed windows.
	Quiet bool
	// Trace prints the tree commands the change broadcast, as JSON lines on
	// stderr.
	Trace bool
}

func (n *Edit) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not edit, no service")
	}
	if n.Change == nil {
		return errors.New("can not edit, nothing to do")
	}

	var bus *broadcast.Bus
	var traced <-chan tree.Command
	if n.Trace {
		bus = broadcast.New(0)
		defer bus.Close()
		var err error
		if traced, err = bus.Subscribe(ctx); err != nil {
			return err
		}
		svc := *n.Service
		svc.Broadcaster = bus
		n.Service = &svc
	}

	sess, err := n.Service.OpenAll(ctx)
	if err != nil {
		return err
	}
	windows, changeErr := n.Change(ctx, sess)
	if traced != nil {
		drain(traced)
	}
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", errors.Join(changeErr, err))
	}
	if err := sess.Save(ctx); err != nil {
		return errors.Join(changeErr, err)
	}

	if !n.Quiet {
		pp := &printers.PrettyPrint{ShowID: n.ShowID}
		pp.NewLine()
		for _, name := range windows {
			show.Window(sess, name, pp)
		}
	}
	return changeErr
}

func drain(ch <-chan tree.Command) {
	enc := json.NewEncoder(os.Stderr)
	for {
		select {
		case cmd, ok := <-ch:
			if !ok {
				return
			}
			if err := enc.Encode(cmd); err != nil {
				_, _ = color.New(color.FgRed).Fprintf(os.Stderr, "trace: %v\n", err)
			}
		default:
			return
		}
	}
}
