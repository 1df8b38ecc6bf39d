package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/printers"
	"tableflip.dev/tabtree/pkg/runner/show"
	"tableflip.dev/tabtree/pkg/store"
)

// Watch reprints saved windows whenever they change on disk.
type Watch struct {
	Service *app.Service
	ShowID  bool
}

func (n *Watch) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not watch, no service")
	}
	events, err := n.Service.Watch(ctx)
	if err != nil {
		return err
	}
	pp := &printers.PrettyPrint{ShowID: n.ShowID}
	stamp := color.New(color.Faint)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			_, _ = stamp.Fprintf(color.Output, "%s %s %s\n", time.Now().Format(time.TimeOnly), ev.Type, ev.Window)
			if err := n.render(ctx, ev, pp); err != nil {
				_, _ = color.New(color.FgRed).Fprintln(color.Output, err)
			}
		}
	}
}

func (n *Watch) render(ctx context.Context, ev store.Event, pp *printers.PrettyPrint) error {
	if ev.Type == store.EventWindowsInvalidated {
		sess, err := n.Service.OpenAll(ctx)
		if err != nil {
			return err
		}
		show.Session(sess, pp)
		return nil
	}
	sess, err := n.Service.Open(ctx, false, ev.Window)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Fprintf(color.Output, "%s removed\n\n", ev.Window)
		return nil
	}
	if err != nil {
		return err
	}
	show.Window(sess, ev.Window, pp)
	return nil
}
