package list

import (
	"context"
	"errors"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/printers"
)

type List struct {
	Service *app.Service
}

func (n *List) Do(ctx context.Context) error {
	if n.Service == nil {
		return errors.New("can not list, no service")
	}
	sess, err := n.Service.OpenAll(ctx)
	if err != nil {
		return err
	}
	printers.Windows(sess.Report())
	return nil
}
