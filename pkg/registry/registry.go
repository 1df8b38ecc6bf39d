// Package registry defines the contract tabtree needs from the component that
// owns tab existence and the linear tab order of every window, plus an
// in-memory implementation of it.
package registry

import (
	"context"
	"errors"
)

// TabID identifies a tab for its whole lifetime. It is independent from the
// tab's position in its window.
type TabID string

// WindowID identifies a window (one linear tab order).
type WindowID int

var (
	// ErrTabNotFound is returned when the referenced tab does not exist (any
	// more). Callers in the tree engine treat it as a stale reference.
	ErrTabNotFound = errors.New("registry: tab not found")

	// ErrWindowNotFound is returned when the referenced window does not exist.
	ErrWindowNotFound = errors.New("registry: window not found")
)

// Tab is a point-in-time view of a tab as the registry sees it.
type Tab struct {
	ID     TabID
	Window WindowID
	Index  int
	Pinned bool
	Hidden bool
	Active bool
	Title  string
	URL    string
}

// CreateProperties describes a tab to open.
type CreateProperties struct {
	// ID forces the id of the new tab (session restore). A fresh id is
	// generated when empty.
	ID     TabID
	Title  string
	URL    string
	Pinned bool
	Active bool
	// Index is the position to open the tab at; nil opens it at the end.
	Index *int
}

// Registry is the tab registry. Read methods must never call back into a
// Listener; mutating methods notify listeners after their own state is
// updated.
type Registry interface {
	Get(id TabID) (Tab, bool)
	// Tabs returns the tabs of the window in linear order.
	Tabs(window WindowID) []Tab
	Windows() []WindowID

	Create(ctx context.Context, window WindowID, props CreateProperties) (Tab, error)
	CreateWindow(ctx context.Context) (WindowID, TabID, error)
	Remove(ctx context.Context, id TabID) error
	Activate(ctx context.Context, id TabID) error
	// Move repositions a single tab so that it ends up at index.
	Move(ctx context.Context, id TabID, index int) error
	// Duplicate opens a copy of the tab. The returned id may only become
	// known to listeners after a delay.
	Duplicate(ctx context.Context, id TabID) (TabID, error)
	// TransferToWindow moves the tab into another window at index. The tab
	// may only become known in the destination after a delay.
	TransferToWindow(ctx context.Context, id TabID, window WindowID, index int) (TabID, error)
}

// Listener receives tab lifecycle notifications.
type Listener interface {
	TabCreated(tab Tab)
	TabRemoved(tab Tab)
	TabMoved(tab Tab, from int)
	TabActivated(tab Tab)
	TabDetached(tab Tab, from WindowID)
	TabAttached(tab Tab)
}

// Index returns the linear index of the tab or -1.
func Index(r Registry, id TabID) int {
	tab, ok := r.Get(id)
	if !ok {
		return -1
	}
	return tab.Index
}
