package commands

import (
	"context"
	"strconv"
	"strings"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/config"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/store"
)

func loadService() (*app.Service, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	p, err := store.Load(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &app.Service{Persistence: p, Policy: cfg.Policy}, cfg, nil
}

// resolve turns tab references (ids or unique id prefixes) into ids.
func resolve(sess *app.Session, refs ...string) ([]registry.TabID, error) {
	out := make([]registry.TabID, 0, len(refs))
	for _, ref := range refs {
		id, err := sess.Find(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// resolveOptional is resolve for a single optional reference.
func resolveOptional(sess *app.Session, ref string) (registry.TabID, error) {
	if ref == "" {
		return "", nil
	}
	return sess.Find(ref)
}

func windowCompletions(toComplete string) []string {
	svc, _, err := loadService()
	if err != nil {
		return nil
	}
	names, err := svc.Windows(context.Background())
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, strconv.Quote(name))
		}
	}
	return out
}
