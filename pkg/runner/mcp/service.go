// Package mcp provides the Model Context Protocol server integration for tabtree.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/reconcile"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/tree"
)

// Service coordinates session operations that are shared by the MCP server.
// Every mutation loads the saved windows, applies the change, checks the
// forests and saves them again.
type Service struct {
	App *app.Service

	// mu serializes load-change-save cycles of concurrent tool calls.
	mu sync.Mutex
}

// ErrNoService is returned when the service has no app service configured.
var ErrNoService = errors.New("session service is not configured")

// WindowSummary describes a saved window and basic aggregate metadata.
type WindowSummary struct {
	Name      string `json:"name"`
	Tabs      int    `json:"tabs"`
	Pinned    int    `json:"pinned"`
	Trees     int    `json:"trees"`
	MaxDepth  int    `json:"maxDepth"`
	Collapsed int    `json:"collapsed"`
	Hidden    int    `json:"hidden"`
	Active    string `json:"active,omitempty"`
}

// TabDTO is a transport-friendly projection of a tab and its place in the
// forest.
type TabDTO struct {
	ID               string   `json:"id"`
	Window           string   `json:"window"`
	Index            int      `json:"index"`
	Title            string   `json:"title,omitempty"`
	URL              string   `json:"url,omitempty"`
	Pinned           bool     `json:"pinned"`
	Active           bool     `json:"active"`
	Parent           string   `json:"parent,omitempty"`
	Children         []string `json:"children,omitempty"`
	Level            int      `json:"level"`
	Hidden           bool     `json:"hidden"`
	SubtreeCollapsed bool     `json:"subtreeCollapsed"`
}

// OpenTabOptions captures the parameters used to open a new tab.
type OpenTabOptions struct {
	Window   string
	Title    string
	URL      string
	Pinned   bool
	Active   bool
	Opener   string
	Behavior string
}

// MoveTabsOptions captures the parameters required to move tabs between
// windows.
type MoveTabsOptions struct {
	IDs          []string
	Window       string
	InsertBefore string
	InsertAfter  string
	Duplicate    bool
}

// NewService builds a service wrapper using the provided app service.
func NewService(a *app.Service) *Service {
	return &Service{App: a}
}

// ListWindows returns summaries for every saved window.
func (s *Service) ListWindows(ctx context.Context) ([]WindowSummary, error) {
	if s.App == nil {
		return nil, ErrNoService
	}
	sess, err := s.App.OpenAll(ctx)
	if err != nil {
		return nil, err
	}
	reports := sess.Report()
	out := make([]WindowSummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, WindowSummary{
			Name:      r.Name,
			Tabs:      r.Tabs,
			Pinned:    r.Pinned,
			Trees:     r.Roots,
			MaxDepth:  r.MaxDepth,
			Collapsed: r.Collapsed,
			Hidden:    r.Hidden,
			Active:    string(r.Active),
		})
	}
	return out, nil
}

// ListTabs returns the tabs of a window in linear order.
func (s *Service) ListTabs(ctx context.Context, window string) ([]TabDTO, error) {
	if s.App == nil {
		return nil, ErrNoService
	}
	sess, err := s.App.Open(ctx, false, window)
	if err != nil {
		return nil, err
	}
	return windowTabs(sess, window)
}

// TabByID looks a tab up by id or unique id prefix across every window.
func (s *Service) TabByID(ctx context.Context, ref string) (TabDTO, error) {
	if s.App == nil {
		return TabDTO{}, ErrNoService
	}
	sess, err := s.App.OpenAll(ctx)
	if err != nil {
		return TabDTO{}, err
	}
	id, err := sess.Find(ref)
	if err != nil {
		return TabDTO{}, err
	}
	return toDTO(sess, id)
}

// OpenTab opens a tab in a window, creating the window when needed.
func (s *Service) OpenTab(ctx context.Context, opts OpenTabOptions) (TabDTO, error) {
	if opts.Window == "" {
		return TabDTO{}, errors.New("window is required")
	}
	var out TabDTO
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		sess.NewWindow(opts.Window)
		o := app.OpenTabOptions{
			Title:    opts.Title,
			URL:      opts.URL,
			Pinned:   opts.Pinned,
			Active:   opts.Active,
			Behavior: tree.NewTabBehavior(opts.Behavior),
		}
		if opts.Opener != "" {
			id, err := sess.Find(opts.Opener)
			if err != nil {
				return err
			}
			o.Opener = id
		}
		tab, err := sess.OpenTab(ctx, opts.Window, o)
		if err != nil {
			return err
		}
		out, err = toDTO(sess, tab.ID)
		return err
	})
	return out, err
}

// CloseTab closes a tab and returns the ids of every tab that closed.
func (s *Service) CloseTab(ctx context.Context, ref string) ([]string, error) {
	var out []string
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		id, err := sess.Find(ref)
		if err != nil {
			return err
		}
		closed, err := sess.Close(ctx, id)
		out = ids(closed)
		return err
	})
	return out, err
}

// AttachTab makes parent the parent of child.
func (s *Service) AttachTab(ctx context.Context, child, parent string) (TabDTO, error) {
	var out TabDTO
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		c, err := sess.Find(child)
		if err != nil {
			return err
		}
		p, err := sess.Find(parent)
		if err != nil {
			return err
		}
		if _, err := sess.Attach(ctx, c, p, tree.AttachOptions{Broadcast: true}); err != nil {
			return err
		}
		out, err = toDTO(sess, c)
		return err
	})
	return out, err
}

// DetachTab makes a tab a root.
func (s *Service) DetachTab(ctx context.Context, ref string) (TabDTO, error) {
	var out TabDTO
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		id, err := sess.Find(ref)
		if err != nil {
			return err
		}
		if err := sess.Detach(ctx, id); err != nil {
			return err
		}
		out, err = toDTO(sess, id)
		return err
	})
	return out, err
}

// SetCollapsed collapses or expands the subtree below a tab.
func (s *Service) SetCollapsed(ctx context.Context, ref string, collapsed bool) (TabDTO, error) {
	var out TabDTO
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		id, err := sess.Find(ref)
		if err != nil {
			return err
		}
		if err := sess.SetCollapsed(id, collapsed); err != nil {
			return err
		}
		out, err = toDTO(sess, id)
		return err
	})
	return out, err
}

// ActivateTab selects a tab, expanding collapsed ancestors.
func (s *Service) ActivateTab(ctx context.Context, ref string) (TabDTO, error) {
	var out TabDTO
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		id, err := sess.Find(ref)
		if err != nil {
			return err
		}
		if err := sess.Activate(ctx, id); err != nil {
			return err
		}
		out, err = toDTO(sess, id)
		return err
	})
	return out, err
}

// MoveTabs moves or copies tabs with their trees into a window.
func (s *Service) MoveTabs(ctx context.Context, opts MoveTabsOptions) ([]TabDTO, error) {
	if len(opts.IDs) == 0 {
		return nil, errors.New("at least one tab is required")
	}
	var out []TabDTO
	err := s.edit(ctx, func(ctx context.Context, sess *app.Session) error {
		tabs := make([]registry.TabID, 0, len(opts.IDs))
		for _, ref := range opts.IDs {
			id, err := sess.Find(ref)
			if err != nil {
				return err
			}
			tabs = append(tabs, id)
		}
		mo := reconcile.MoveOptions{Duplicate: opts.Duplicate}
		var err error
		if mo.InsertBefore, err = findOptional(sess, opts.InsertBefore); err != nil {
			return err
		}
		if mo.InsertAfter, err = findOptional(sess, opts.InsertAfter); err != nil {
			return err
		}
		moved, err := sess.MoveTabs(ctx, tabs, opts.Window, mo)
		if err != nil {
			return err
		}
		if len(moved) == 0 {
			return fmt.Errorf("tabs did not arrive in %q", opts.Window)
		}
		for _, id := range moved {
			dto, err := toDTO(sess, id)
			if err != nil {
				return err
			}
			out = append(out, dto)
		}
		return nil
	})
	return out, err
}

func (s *Service) edit(ctx context.Context, change func(ctx context.Context, sess *app.Session) error) error {
	if s.App == nil {
		return ErrNoService
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.App.OpenAll(ctx)
	if err != nil {
		return err
	}
	if err := change(ctx, sess); err != nil {
		return err
	}
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	return sess.Save(ctx)
}

func findOptional(sess *app.Session, ref string) (registry.TabID, error) {
	if ref == "" {
		return "", nil
	}
	return sess.Find(ref)
}

func windowTabs(sess *app.Session, name string) ([]TabDTO, error) {
	w, err := sess.Window(name)
	if err != nil {
		return nil, err
	}
	tabs := sess.Registry.Tabs(w)
	out := make([]TabDTO, 0, len(tabs))
	for _, t := range tabs {
		dto, err := toDTO(sess, t.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, dto)
	}
	return out, nil
}

func toDTO(sess *app.Session, id registry.TabID) (TabDTO, error) {
	t, err := sess.Tab(id)
	if err != nil {
		return TabDTO{}, err
	}
	dto := TabDTO{
		ID:     string(t.ID),
		Window: sess.NameOf(t.Window),
		Index:  t.Index,
		Title:  t.Title,
		URL:    t.URL,
		Pinned: t.Pinned,
		Active: t.Active,
	}
	if n, ok := sess.Engine.Node(id); ok {
		dto.Parent = string(n.Parent)
		dto.Children = ids(n.Children)
		dto.Level = n.Level
		dto.Hidden = n.Collapsed
		dto.SubtreeCollapsed = n.SubtreeCollapsed
	}
	return dto, nil
}

func ids(in []registry.TabID) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = string(id)
	}
	return out
}
