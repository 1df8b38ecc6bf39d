// Package structure converts between tab forests and the flat, index based
// tree structure arrays used to save and restore them.
//
// A structure array has one Item per tab in linear order. Parent is the index
// of the parent relative to the most recent root in the array, or -1 for a
// root.
package structure

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// NoParent marks a root in a structure array.
const NoParent = -1

// ErrMalformed is returned for input that is neither a list of items nor a
// list of legacy parent indices.
var ErrMalformed = errors.New("structure: malformed input")

// Item describes one tab of a structure array.
type Item struct {
	ID     string `json:"id"`
	Parent int    `json:"parent"`
	// Collapsed records whether the tab's subtree was collapsed. It is nil
	// for legacy input that carried no state.
	Collapsed *bool  `json:"collapsed,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	Pinned    bool   `json:"pinned,omitempty"`
}

// IsCollapsed reports the recorded collapsed state and whether one was
// recorded at all.
func (i Item) IsCollapsed() (collapsed, recorded bool) {
	if i.Collapsed == nil {
		return false, false
	}
	return *i.Collapsed, true
}

// Source is the input of Serialize: a tab with its parent id.
type Source struct {
	ID               string
	Parent           string
	SubtreeCollapsed bool
	Title            string
	URL              string
	Pinned           bool
}

// Serialize builds the structure array of tabs. Tabs whose parent is not an
// earlier element of the list become roots. With full, title, url and pinned
// state are carried too.
func Serialize(tabs []Source, full bool) []Item {
	position := make(map[string]int, len(tabs))
	for i, t := range tabs {
		position[t.ID] = i
	}
	parents := make([]int, len(tabs))
	for i, t := range tabs {
		parents[i] = NoParent
		if t.Parent == "" {
			continue
		}
		if idx, ok := position[t.Parent]; ok && idx < i {
			parents[i] = idx
		}
	}
	parents = CleanUp(parents, NoParent)

	items := make([]Item, len(tabs))
	for i, t := range tabs {
		collapsed := t.SubtreeCollapsed
		items[i] = Item{ID: t.ID, Parent: parents[i], Collapsed: &collapsed}
		if full {
			items[i].Title = t.Title
			items[i].URL = t.URL
			items[i].Pinned = t.Pinned
		}
	}
	return items
}

// CleanUp rewrites absolute parent indices into indices relative to the most
// recent root. Self references become roots, and values that end up below -1
// are replaced with def.
func CleanUp(parents []int, def int) []int {
	out := make([]int, len(parents))
	offset := 0
	for i, p := range parents {
		if p == i {
			p = NoParent
		}
		if p == NoParent {
			offset = i
		} else {
			p -= offset
		}
		if p < NoParent {
			p = def
		}
		out[i] = p
	}
	return out
}

// Validate reports the first item whose parent index cannot refer to an
// earlier member of its tree.
func Validate(items []Item) error {
	inTree := 0
	for i, item := range items {
		switch {
		case item.Parent < 0:
			inTree = 1
		case inTree == 0:
			return fmt.Errorf("%w: item %d has parent %d before any root", ErrMalformed, i, item.Parent)
		case item.Parent >= inTree:
			return fmt.Errorf("%w: item %d has parent %d outside its tree of %d", ErrMalformed, i, item.Parent, inTree)
		default:
			inTree++
		}
	}
	return nil
}

// Encode renders items as JSON.
func Encode(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	return json.Marshal(items)
}

// Decode parses a JSON structure array. Bare integers are accepted as the
// legacy form of an item that only records its parent.
func Decode(data []byte) ([]Item, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	items := make([]Item, 0, len(raw))
	for i, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) > 0 && (r[0] == '-' || (r[0] >= '0' && r[0] <= '9')) {
			var parent int
			if err := json.Unmarshal(r, &parent); err != nil {
				return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
			}
			items = append(items, Item{Parent: parent})
			continue
		}
		item := Item{Parent: NoParent}
		if err := json.Unmarshal(r, &item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
