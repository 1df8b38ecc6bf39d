package app

import (
	"tableflip.dev/tabtree/pkg/registry"
)

// WindowReport summarizes the forest of one window.
type WindowReport struct {
	Name      string
	Window    registry.WindowID
	Tabs      int
	Pinned    int
	Roots     int
	MaxDepth  int
	Collapsed int
	Hidden    int
	Active    registry.TabID
}

// Report summarizes every window of the session, sorted by name.
func (s *Session) Report() []WindowReport {
	names := s.Names()
	out := make([]WindowReport, 0, len(names))
	for _, name := range names {
		w := s.windows[name]
		r := WindowReport{Name: name, Window: w}
		for _, t := range s.Registry.Tabs(w) {
			r.Tabs++
			if t.Pinned {
				r.Pinned++
			}
			if t.Active {
				r.Active = t.ID
			}
		}
		for _, n := range s.Engine.Forest(w) {
			if n.Parent == "" {
				r.Roots++
			}
			if n.Level+1 > r.MaxDepth {
				r.MaxDepth = n.Level + 1
			}
			if n.SubtreeCollapsed && n.HasChildren() {
				r.Collapsed++
			}
			if n.Collapsed {
				r.Hidden++
			}
		}
		out = append(out, r)
	}
	return out
}
