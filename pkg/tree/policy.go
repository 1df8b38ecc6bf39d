package tree

import (
	"fmt"
	"strings"
	"time"
)

// InsertPosition selects where a new child goes among its siblings.
type InsertPosition string

const (
	InsertEnd     InsertPosition = "end"
	InsertFirst   InsertPosition = "first"
	InsertNearest InsertPosition = "nearest"
)

// ParseInsertPosition parses a configured insert position.
func ParseInsertPosition(s string) (InsertPosition, error) {
	switch p := InsertPosition(strings.ToLower(strings.TrimSpace(s))); p {
	case InsertEnd, InsertFirst, InsertNearest:
		return p, nil
	case "":
		return InsertEnd, nil
	}
	return "", fmt.Errorf("tree: unknown insert position %q", s)
}

// CloseParentBehavior decides what happens to the children of a tab that
// leaves its tree.
type CloseParentBehavior string

const (
	DetachAllChildren  CloseParentBehavior = "detachAll"
	PromoteFirstChild  CloseParentBehavior = "promoteFirstChild"
	PromoteAllChildren CloseParentBehavior = "promoteAllChildren"
	SimplyDetach       CloseParentBehavior = "simplyDetach"
	ReplaceWithGroup   CloseParentBehavior = "replaceWithGroup"
	CloseAllChildren   CloseParentBehavior = "closeAllChildren"
)

// ParseCloseParentBehavior parses a configured close-parent behavior.
func ParseCloseParentBehavior(s string) (CloseParentBehavior, error) {
	for _, b := range []CloseParentBehavior{DetachAllChildren, PromoteFirstChild, PromoteAllChildren, SimplyDetach, ReplaceWithGroup, CloseAllChildren} {
		if strings.EqualFold(string(b), strings.TrimSpace(s)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("tree: unknown close parent behavior %q", s)
}

// NewTabBehavior selects how a freshly opened tab joins the forest.
type NewTabBehavior string

const (
	NewTabOrphan      NewTabBehavior = "orphan"
	NewTabChild       NewTabBehavior = "child"
	NewTabSibling     NewTabBehavior = "sibling"
	NewTabNextSibling NewTabBehavior = "nextSibling"
)

// ParseNewTabBehavior parses an auto-attach behavior.
func ParseNewTabBehavior(s string) (NewTabBehavior, error) {
	for _, b := range []NewTabBehavior{NewTabOrphan, NewTabChild, NewTabSibling, NewTabNextSibling} {
		if strings.EqualFold(string(b), strings.TrimSpace(s)) {
			return b, nil
		}
	}
	return "", fmt.Errorf("tree: unknown new tab behavior %q", s)
}

// Policy is the read-only configuration of an Engine.
type Policy struct {
	InsertNewChildAt                             InsertPosition
	CloseParentBehavior                          CloseParentBehavior
	MoveFocusOnActiveTabClosed                   bool
	PromoteFirstChildForClosedRoot               bool
	PromoteAllChildrenWhenLastChild              bool
	MoveTabsToBottomWhenDetachedFromClosedParent bool
	AutoCollapseExpandSubtreeOnSelect            bool

	// GroupTabURLPrefix identifies group tabs by URL.
	GroupTabURLPrefix string

	MaxDelayForDuplication time.Duration
	PollInterval           time.Duration
}

// DefaultPolicy returns the built-in defaults.
func DefaultPolicy() Policy {
	return Policy{
		InsertNewChildAt:                  InsertEnd,
		CloseParentBehavior:               PromoteFirstChild,
		MoveFocusOnActiveTabClosed:        true,
		PromoteFirstChildForClosedRoot:    true,
		PromoteAllChildrenWhenLastChild:   true,
		AutoCollapseExpandSubtreeOnSelect: true,
		GroupTabURLPrefix:                 "about:treestyletab-group",
		MaxDelayForDuplication:            time.Second,
		PollInterval:                      100 * time.Millisecond,
	}
}
