// Package tui is an interactive browser for the saved tab trees. Every edit
// is checked and saved right away, and changes written by other processes
// are picked up through the store watcher.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/muesli/reflow/truncate"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/debug"
	"tableflip.dev/tabtree/pkg/printers"
	"tableflip.dev/tabtree/pkg/reconcile"
	"tableflip.dev/tabtree/pkg/registry"
	"tableflip.dev/tabtree/pkg/store"
	"tableflip.dev/tabtree/pkg/tree"
)

const helpText = "j/k move · c collapse · enter activate · l indent · h detach · m move · x close · r reload · q quit"

type storeChangedMsg struct{}

type row struct {
	window string
	header bool
	count  int
	node   tree.NodeInfo
	tab    registry.Tab
}

// Model is the Bubble Tea model of the browser.
type Model struct {
	ctx     context.Context
	service *app.Service
	sess    *app.Session
	theme   Theme
	events  <-chan store.Event

	rows   []row
	cursor int
	offset int

	width  int
	height int

	status string
	err    error

	prompt    textinput.Model
	prompting bool

	ShowID bool
}

// New loads every saved window into a browser model.
func New(ctx context.Context, svc *app.Service) (*Model, error) {
	if svc == nil {
		return nil, errors.New("tui: no service")
	}
	prompt := textinput.New()
	prompt.Placeholder = "window"
	prompt.Prompt = ""
	prompt.Blur()

	m := &Model{
		ctx:     ctx,
		service: svc,
		theme:   DefaultTheme(),
		prompt:  prompt,
		width:   80,
		height:  24,
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// Run launches the browser in the alternate screen until the user quits.
func Run(ctx context.Context, svc *app.Service, showID bool) error {
	m, err := New(ctx, svc)
	if err != nil {
		return err
	}
	m.ShowID = showID
	if events, err := svc.Watch(ctx); err != nil {
		debug.Logger().Warn("tui: watch", "err", err)
	} else {
		m.events = events
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m *Model) waitForChange() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		if _, ok := <-events; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = v.Width
		m.height = v.Height
		m.prompt.SetWidth(max(v.Width-20, 10))
		m.scroll()
	case storeChangedMsg:
		if err := m.reload(); err != nil {
			m.fail(err)
		}
		return m, m.waitForChange()
	case tea.KeyPressMsg:
		if m.prompting {
			return m, m.handlePromptKey(v)
		}
		return m, m.handleKey(v)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q":
		return tea.Quit
	case "j", "down":
		m.move(1)
	case "k", "up":
		m.move(-1)
	case "r":
		if err := m.reload(); err != nil {
			m.fail(err)
		} else {
			m.setStatus("reloaded")
		}
	case "c", "space":
		m.edit(m.toggleCollapsed)
	case "enter", "a":
		m.edit(func(r row) (string, error) {
			return "activated", m.sess.Activate(m.ctx, r.node.ID)
		})
	case "l", "tab":
		m.edit(m.indent)
	case "h", "shift+tab":
		m.edit(func(r row) (string, error) {
			if r.node.Parent == "" {
				return "already a root", nil
			}
			return "detached", m.sess.Detach(m.ctx, r.node.ID)
		})
	case "x":
		m.edit(func(r row) (string, error) {
			closed, err := m.sess.Close(m.ctx, r.node.ID)
			return fmt.Sprintf("closed %d", len(closed)), err
		})
	case "m":
		if _, ok := m.selected(); ok {
			m.prompting = true
			m.prompt.SetValue("")
			return m.prompt.Focus()
		}
	}
	return nil
}

func (m *Model) handlePromptKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.endPrompt()
		m.setStatus("move cancelled")
		return nil
	case "enter":
		name := strings.TrimSpace(m.prompt.Value())
		m.endPrompt()
		if name == "" {
			m.setStatus("move cancelled")
			return nil
		}
		m.edit(func(r row) (string, error) {
			ids := append([]registry.TabID{r.node.ID}, m.sess.Engine.Descendants(r.node.ID)...)
			moved, err := m.sess.MoveTabs(m.ctx, ids, name, reconcile.MoveOptions{})
			if err == nil && len(moved) == 0 {
				err = fmt.Errorf("tabs did not arrive in %q", name)
			}
			return fmt.Sprintf("moved %d to %s", len(moved), name), err
		})
		return nil
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return cmd
}

func (m *Model) endPrompt() {
	m.prompting = false
	m.prompt.Blur()
}

func (m *Model) toggleCollapsed(r row) (string, error) {
	if !r.node.HasChildren() {
		return "no children", nil
	}
	collapse := !r.node.SubtreeCollapsed
	if err := m.sess.SetCollapsed(r.node.ID, collapse); err != nil {
		return "", err
	}
	if collapse {
		return "collapsed", nil
	}
	return "expanded", nil
}

// indent attaches the tab to its previous sibling.
func (m *Model) indent(r row) (string, error) {
	siblings := m.siblings(r)
	var prev registry.TabID
	for _, id := range siblings {
		if id == r.node.ID {
			break
		}
		prev = id
	}
	if prev == "" {
		return "no previous sibling", nil
	}
	if _, err := m.sess.Attach(m.ctx, r.node.ID, prev, tree.AttachOptions{Broadcast: true}); err != nil {
		return "", err
	}
	return "attached", nil
}

func (m *Model) siblings(r row) []registry.TabID {
	if r.node.Parent != "" {
		if p, ok := m.sess.Engine.Node(r.node.Parent); ok {
			return p.Children
		}
		return nil
	}
	return m.sess.Engine.Roots(r.node.Window)
}

// edit applies a change to the selected tab, then checks and saves the
// session. A failed change is dropped by reloading from the store.
func (m *Model) edit(change func(r row) (string, error)) {
	r, ok := m.selected()
	if !ok {
		return
	}
	status, err := change(r)
	if err == nil {
		err = m.sess.Validate()
	}
	if err == nil {
		err = m.sess.Save(m.ctx)
	}
	if err != nil {
		m.fail(err)
		if rerr := m.reload(); rerr != nil {
			debug.Logger().Warn("tui: reload", "err", rerr)
		}
		return
	}
	m.rebuild()
	m.setStatus(status)
}

func (m *Model) reload() error {
	sess, err := m.service.OpenAll(m.ctx)
	if err != nil {
		return err
	}
	m.sess = sess
	m.rebuild()
	return nil
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.err = nil
}

func (m *Model) fail(err error) {
	m.status = ""
	m.err = err
}

// rebuild lists the visible rows, keeping the selection on the same tab.
func (m *Model) rebuild() {
	var keep registry.TabID
	if r, ok := m.selected(); ok {
		keep = r.node.ID
	}
	m.rows = m.rows[:0]
	for _, name := range m.sess.Names() {
		w, err := m.sess.Window(name)
		if err != nil {
			continue
		}
		tabs := make(map[registry.TabID]registry.Tab)
		for _, t := range m.sess.Registry.Tabs(w) {
			tabs[t.ID] = t
		}
		m.rows = append(m.rows, row{window: name, header: true, count: len(tabs)})
		for _, n := range m.sess.Engine.Forest(w) {
			if n.Collapsed {
				continue
			}
			m.rows = append(m.rows, row{window: name, node: n, tab: tabs[n.ID]})
		}
	}

	m.cursor = min(m.cursor, len(m.rows)-1)
	for i, r := range m.rows {
		if !r.header && r.node.ID == keep && keep != "" {
			m.cursor = i
			break
		}
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if len(m.rows) > 0 && m.rows[m.cursor].header {
		m.move(1)
		if m.rows[m.cursor].header {
			m.move(-1)
		}
	}
	m.scroll()
}

func (m *Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) || m.rows[m.cursor].header {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// move steps the cursor over tab rows, skipping window headers.
func (m *Model) move(delta int) {
	for i := m.cursor + delta; i >= 0 && i < len(m.rows); i += delta {
		if !m.rows[i].header {
			m.cursor = i
			break
		}
	}
	m.scroll()
}

func (m *Model) bodyHeight() int {
	return max(m.height-2, 1)
}

func (m *Model) scroll() {
	h := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.cursor > 0 && m.cursor-1 < m.offset && m.rows[m.cursor-1].header {
		m.offset = m.cursor - 1
	}
}

// View renders the visible part of the forest and the footer.
func (m *Model) View() (string, *tea.Cursor) {
	var b strings.Builder
	end := min(m.offset+m.bodyHeight(), len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteByte('\n')
	}
	if len(m.rows) == 0 {
		b.WriteString(m.theme.Status.Render("no saved windows"))
		b.WriteByte('\n')
	}

	switch {
	case m.prompting:
		b.WriteString(m.theme.Prompt.Render("move to window: "))
		b.WriteString(m.prompt.View())
	case m.err != nil:
		b.WriteString(m.theme.Error.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(m.theme.Status.Render(m.status))
	}
	b.WriteByte('\n')
	b.WriteString(m.theme.Help.Render(truncate.StringWithTail(helpText, uint(max(m.width, 1)), "…")))
	return b.String(), nil
}

func (m *Model) renderRow(i int) string {
	r := m.rows[i]
	if r.header {
		noun := "tabs"
		if r.count == 1 {
			noun = "tab"
		}
		return m.theme.Window.Render(r.window) + m.theme.Count.Render(fmt.Sprintf(" - %d %s", r.count, noun))
	}

	var prefix string
	width := m.width
	if m.ShowID {
		id := printers.ShortID(r.node.ID)
		prefix = m.theme.ID.Render(id+strings.Repeat(" ", printers.IDWidth-len(id))) + "  "
		width -= printers.IDWidth + 2
	}
	label := r.tab.Title
	if label == "" {
		label = r.tab.URL
	}
	if label == "" {
		label = string(r.tab.ID)
	}
	line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", r.node.Level), printers.Glyph(r.node, r.tab), label)
	line = truncate.StringWithTail(line, uint(max(width, 1)), "…")

	style := m.theme.Tab
	if r.tab.Active {
		style = m.theme.Active
	}
	if i == m.cursor {
		style = style.Inherit(m.theme.Selected)
	}
	return prefix + style.Render(line)
}
