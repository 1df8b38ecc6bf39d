package show

import (
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/goccy/go-json"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/printers"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/structure"
)

type Show struct {
	Service    *app.Service
	Windows    []string
	ShowID     bool
	ShowHidden bool
	Width      int
	JSON       bool
}

func (n *Show) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not show, no service")
	}
	var (
		sess *app.Session
		err  error
	)
	if len(n.Windows) == 0 {
		sess, err = n.Service.OpenAll(ctx)
	} else {
		sess, err = n.Service.Open(ctx, false, n.Windows...)
	}
	if err != nil {
		return err
	}
	if n.JSON {
		return n.json(sess)
	}
	Session(sess, &printers.PrettyPrint{ShowID: n.ShowID, ShowHidden: n.ShowHidden, Width: n.Width})
	return nil
}

// Session prints every window of the session.
func Session(sess *app.Session, pp *printers.PrettyPrint) {
	for _, name := range sess.Names() {
		Window(sess, name, pp)
	}
}

// Window prints one window of the session as a tree.
func Window(sess *app.Session, name string, pp *printers.PrettyPrint) {
	w, err := sess.Window(name)
	if err != nil {
		return
	}
	tabs := make(map[registry.TabID]registry.Tab)
	for _, t := range sess.Registry.Tabs(w) {
		tabs[t.ID] = t
	}
	pp.TitleWithCount(name, len(tabs))
	pp.Forest(sess.Engine.Forest(w), tabs)
}

func (n *Show) json(sess *app.Session) error {
	out := make(map[string][]structure.Item)
	for _, name := range sess.Names() {
		w, _ := sess.Window(name)
		out[name] = sess.Engine.WindowStructure(w, true)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, _ = color.Output.Write(append(b, '\n'))
	return nil
}
