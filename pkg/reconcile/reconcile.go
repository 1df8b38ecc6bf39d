// Package reconcile carries tabs and their trees across windows: moving or
// duplicating a set of tabs, opening a window from tabs, and completing a
// drag and drop.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tableflip.dev/tabtree/pkg/debug"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/tree"
)

// ErrNoTabs is returned when none of the requested tabs still exist.
var ErrNoTabs = errors.New("reconcile: no living tabs")

// Reconciler runs multi-step operations on top of an engine and its
// registry.
type Reconciler struct {
	engine *tree.Engine
	reg    registry.Registry
	log    *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New returns a Reconciler working on e and the registry e observes.
func New(e *tree.Engine, opts ...Option) *Reconciler {
	r := &Reconciler{engine: e, reg: e.Registry(), log: debug.Logger()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// MoveOptions tunes MoveTabs.
type MoveOptions struct {
	// DestinationWindow defaults to the window of the first tab.
	DestinationWindow registry.WindowID
	Duplicate         bool
	InsertBefore      registry.TabID
	InsertAfter       registry.TabID
}

// MoveTabs moves, or with Duplicate copies, the tabs into the destination
// window between the anchors, keeping the tree structure among them. It
// returns the tabs that ended up at the destination, in order. When the
// destination does not report the tabs within the policy's
// MaxDelayForDuplication the result is empty.
func (r *Reconciler) MoveTabs(ctx context.Context, ids []registry.TabID, opts MoveOptions) ([]registry.TabID, error) {
	ids = r.living(ids)
	if len(ids) == 0 {
		return nil, ErrNoTabs
	}
	source, _ := r.engine.WindowOf(ids[0])
	dest := opts.DestinationWindow
	if dest == 0 {
		dest = source
	}
	across := dest != source
	before, after := opts.InsertBefore, opts.InsertAfter
	r.log.Debug("move tabs", "tabs", ids, "from", source, "to", dest, "duplicate", opts.Duplicate)

	if !across && !opts.Duplicate {
		report := r.place(ctx, ids, dest, before, after)
		return r.living(ids), report.Err()
	}

	if after == "" {
		if tabs := r.reg.Tabs(dest); len(tabs) > 0 {
			after = tabs[len(tabs)-1].ID
		}
	}
	defer r.engine.Track(source, tree.CounterBusy)()
	items := r.engine.Structure(ids, false)

	var errs []error
	moved := ids
	if opts.Duplicate {
		release := r.engine.Track(source, tree.CounterDuplicating)
		var err error
		moved, err = r.fanOut(ctx, moved, source, func(ctx context.Context, id registry.TabID) (registry.TabID, error) {
			return r.reg.Duplicate(ctx, id)
		})
		release()
		if err != nil {
			errs = append(errs, err)
		}
	}
	if across && len(moved) > 0 {
		if !opts.Duplicate {
			for _, id := range moved {
				if tab, ok := r.reg.Get(id); ok && tab.Active {
					r.engine.MoveFocusFromClosing(ctx, id, moved)
					break
				}
			}
		}
		index := r.destinationIndex(dest, before, after)
		var err error
		moved, err = r.fanOut(ctx, moved, dest, func(ctx context.Context, id registry.TabID) (registry.TabID, error) {
			return r.reg.TransferToWindow(ctx, id, dest, index)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(moved) == 0 {
		return nil, errors.Join(errs...)
	}

	// The new tabs are put in order first so that the structure attaches
	// children in the order it recorded them.
	if report := r.place(ctx, moved, dest, before, after); report.Result == tree.Failed {
		errs = append(errs, report.Err())
	}
	if len(moved) == len(items) {
		r.engine.ApplyStructure(moved, items, tree.ApplyOptions{Broadcast: true})
	} else {
		r.log.Debug("move tabs: some tabs were lost, structure not applied", "want", len(items), "got", len(moved))
	}
	return r.living(moved), errors.Join(errs...)
}

// fanOut runs op for every tab in parallel and waits until the engine knows
// all resulting tabs in window. Tabs whose op failed are left out. On
// timeout the result is empty.
func (r *Reconciler) fanOut(ctx context.Context, ids []registry.TabID, window registry.WindowID, op func(context.Context, registry.TabID) (registry.TabID, error)) ([]registry.TabID, error) {
	results := make([]registry.TabID, len(ids))
	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			got, err := op(ctx, id)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("reconcile: %s: %w", id, err))
				mu.Unlock()
				return err
			}
			results[i] = got
			return nil
		})
	}
	_ = g.Wait()

	var expected []registry.TabID
	for _, id := range results {
		if id != "" {
			expected = append(expected, id)
		}
	}
	if len(expected) == 0 {
		return nil, errors.Join(errs...)
	}
	if !r.await(ctx, expected, window) {
		r.log.Debug("move tabs: timed out waiting for tabs", "tabs", expected, "window", window)
		return nil, errors.Join(errs...)
	}
	return expected, errors.Join(errs...)
}

// destinationIndex is the index in dest the transferred tabs are inserted at.
func (r *Reconciler) destinationIndex(dest registry.WindowID, before, after registry.TabID) int {
	if tab, ok := r.reg.Get(before); ok && tab.Window == dest {
		return tab.Index
	}
	if tab, ok := r.reg.Get(after); ok && tab.Window == dest {
		return tab.Index + 1
	}
	return len(r.reg.Tabs(dest))
}

// await polls until the engine knows every id in window, for at most the
// policy's MaxDelayForDuplication.
func (r *Reconciler) await(ctx context.Context, ids []registry.TabID, window registry.WindowID) bool {
	policy := r.engine.Policy()
	ready := func() bool {
		for _, id := range ids {
			if w, ok := r.engine.WindowOf(id); !ok || w != window {
				return false
			}
		}
		return true
	}
	if ready() {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, policy.MaxDelayForDuplication)
	defer cancel()
	interval := policy.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ready()
		case <-ticker.C:
			if ready() {
				return true
			}
		}
	}
}

// place moves the tabs, in order, next to the anchors that live in window.
func (r *Reconciler) place(ctx context.Context, ids []registry.TabID, window registry.WindowID, before, after registry.TabID) tree.MoveReport {
	if tab, ok := r.reg.Get(before); ok && tab.Window == window {
		return r.engine.MoveTabsBefore(ctx, ids, before)
	}
	if tab, ok := r.reg.Get(after); ok && tab.Window == window {
		return r.engine.MoveTabsAfter(ctx, ids, after)
	}
	return tree.MoveReport{Result: tree.Unchanged}
}

// living filters out tabs that no longer exist.
func (r *Reconciler) living(ids []registry.TabID) []registry.TabID {
	out := make([]registry.TabID, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.reg.Get(id); ok && r.engine.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// WindowOptions tunes OpenNewWindowFromTabs.
type WindowOptions struct {
	Duplicate bool
}

// OpenNewWindowFromTabs opens a window and moves, or copies, the tabs into
// it. The placeholder tab of the new window is closed afterwards.
func (r *Reconciler) OpenNewWindowFromTabs(ctx context.Context, ids []registry.TabID, opts WindowOptions) (registry.WindowID, []registry.TabID, error) {
	ids = r.living(ids)
	if len(ids) == 0 {
		return 0, nil, ErrNoTabs
	}
	window, placeholder, err := r.reg.CreateWindow(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("reconcile: open window: %w", err)
	}
	release := r.engine.Track(window, tree.CounterBusy)
	defer release()

	moved, err := r.MoveTabs(ctx, ids, MoveOptions{DestinationWindow: window, Duplicate: opts.Duplicate})
	keep := make(map[registry.TabID]bool, len(moved))
	for _, id := range moved {
		keep[id] = true
	}
	if len(moved) > 0 {
		for _, tab := range r.reg.Tabs(window) {
			if keep[tab.ID] {
				continue
			}
			if rmErr := r.reg.Remove(ctx, tab.ID); rmErr != nil && !errors.Is(rmErr, registry.ErrTabNotFound) {
				r.log.Debug("open window: closing tab failed", "tab", tab.ID, "err", rmErr)
			}
		}
	} else {
		r.log.Debug("open window: nothing arrived, keeping placeholder", "tab", placeholder)
	}
	return window, moved, err
}
