package tree

import (
	"context"

	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/structure"
)

// CommandType names a broadcast tree command.
type CommandType string

const (
	CommandAttach          CommandType = "attach"
	CommandDetach          CommandType = "detach"
	CommandCollapseSubtree CommandType = "collapse-subtree"
	CommandCollapseTab     CommandType = "collapse-tab"
	CommandApplyStructure  CommandType = "apply-structure"
)

// Command is the message sent to peers when an operation runs with
// Broadcast.
type Command struct {
	Type         CommandType       `json:"type"`
	Window       registry.WindowID `json:"window"`
	Tab          registry.TabID    `json:"tab,omitempty"`
	Parent       registry.TabID    `json:"parent,omitempty"`
	InsertBefore registry.TabID    `json:"insertBefore,omitempty"`
	InsertAfter  registry.TabID    `json:"insertAfter,omitempty"`
	Collapsed    bool              `json:"collapsed,omitempty"`
	Manual       bool              `json:"manual,omitempty"`
	JustNow      bool              `json:"justNow,omitempty"`
	ByAncestor   bool              `json:"byAncestor,omitempty"`
	Tabs         []registry.TabID  `json:"tabs,omitempty"`
	Structure    []structure.Item  `json:"structure,omitempty"`
}

// Broadcaster publishes commands to peers.
type Broadcaster interface {
	Publish(ctx context.Context, cmd Command) error
}

// publish queues cmd for delivery once the lock is released. Delivery
// failures are logged and otherwise ignored.
func (e *Engine) publish(cmd Command) {
	if e.bus == nil {
		return
	}
	e.effects = append(e.effects, func() {
		if err := e.bus.Publish(context.Background(), cmd); err != nil {
			e.log.Debug("broadcast failed", "type", cmd.Type, "tab", cmd.Tab, "err", err)
		}
	})
}
