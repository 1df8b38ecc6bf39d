package tree

import "context"

// ApplyRemote replays a command received from a peer. It never broadcasts
// again and never moves tabs: the peer that sent the command owns the moves.
func (e *Engine) ApplyRemote(_ context.Context, cmd Command) Result {
	switch cmd.Type {
	case CommandAttach:
		return e.Attach(cmd.Tab, cmd.Parent, AttachOptions{
			InsertBefore: cmd.InsertBefore,
			InsertAfter:  cmd.InsertAfter,
			DontExpand:   true,
			JustNow:      cmd.JustNow,
		})
	case CommandDetach:
		return e.Detach(cmd.Tab, DetachOptions{})
	case CommandCollapseSubtree:
		opts := CollapseOptions{Collapsed: cmd.Collapsed, JustNow: cmd.JustNow}
		if cmd.Manual {
			return e.ManualCollapseExpandSubtree(cmd.Tab, opts)
		}
		return e.CollapseExpandSubtree(cmd.Tab, opts)
	case CommandCollapseTab:
		return e.CollapseExpandTab(cmd.Tab, CollapseOptions{Collapsed: cmd.Collapsed, JustNow: cmd.JustNow})
	case CommandApplyStructure:
		return e.ApplyStructure(cmd.Tabs, cmd.Structure, ApplyOptions{})
	}
	e.log.Debug("remote: unknown command", "type", cmd.Type)
	return RejectedInvalid
}
