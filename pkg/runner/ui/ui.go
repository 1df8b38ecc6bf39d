package ui

import (
	"context"
	"errors"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/tui"
)

type UI struct {
	Service *app.Service
	ShowID  bool
}

func (d *UI) Do(ctx context.Context) error {
	if d.Service == nil {
		return errors.New("can not open ui, no service")
	}
	return tui.Run(ctx, d.Service, d.ShowID)
}
