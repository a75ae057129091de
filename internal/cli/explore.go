package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	perrors "github.com/matzehuels/pipescope/pkg/errors"
	"github.com/matzehuels/pipescope/pkg/explorer"
	"github.com/matzehuels/pipescope/pkg/lineage"
	"github.com/matzehuels/pipescope/pkg/search"
	"github.com/matzehuels/pipescope/pkg/session"
	"github.com/matzehuels/pipescope/pkg/view"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listLineageStyle  = lipgloss.NewStyle().Foreground(colorGreen)
)

// =============================================================================
// Messages
// =============================================================================

// searchMsg carries a debounced query and its matches.
type searchMsg struct {
	query string
	nodes []lineage.Node
	err   error
}

// layoutMsg reports a layout written by the explorer.
type layoutMsg struct {
	path   string
	nodes  int
	cached bool
	err    error
}

// =============================================================================
// ExploreModel - Interactive lineage view
// =============================================================================

// ExploreModel is the bubbletea model for interactive lineage exploration.
// Every key press maps to one explorer action on State.
type ExploreModel struct {
	Runner *explorer.Runner
	State  view.State
	Cursor int
	Offset int
	Height int

	// Searching is true while the search prompt has focus.
	Searching bool
	Query     string
	Results   []lineage.Node
	ResultIdx int

	// LayoutPath is where "w" writes the composed layout.
	LayoutPath string
	Status     string

	ctx       context.Context
	debouncer *search.Debouncer
	queries   chan searchMsg
}

// NewExploreModel creates an explore model starting at state. delay is the
// quiet period before a typed query runs.
func NewExploreModel(ctx context.Context, runner *explorer.Runner, state view.State, delay time.Duration) ExploreModel {
	return ExploreModel{
		Runner:    runner,
		State:     state,
		Height:    15,
		ctx:       ctx,
		debouncer: search.NewDebouncer(delay),
		queries:   make(chan searchMsg, 1),
	}
}

// waitForSearch delivers the next debounced search result.
func (m ExploreModel) waitForSearch() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.queries:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m ExploreModel) Init() tea.Cmd {
	return m.waitForSearch()
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	case searchMsg:
		if msg.query == m.Query {
			m.Results, m.ResultIdx = msg.nodes, 0
			if msg.err != nil {
				m.Status = perrors.UserMessage(msg.err)
			}
		}
		return m, m.waitForSearch()
	case layoutMsg:
		if msg.err != nil {
			m.Status = "layout failed: " + perrors.UserMessage(msg.err)
		} else {
			status := "fresh"
			if msg.cached {
				status = "cached"
			}
			m.Status = fmt.Sprintf("wrote %s (%d nodes, %s)", msg.path, msg.nodes, status)
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// updateList handles keys while the node list has focus.
func (m ExploreModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.Status = ""
	switch msg.String() {
	case "q", "ctrl+c":
		m.debouncer.Cancel()
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.State.Visible.Nodes)-1 {
			m.Cursor++
		}
	case "enter":
		if id, ok := m.current(); ok {
			m.apply(explorer.Action{Kind: explorer.ActionSelect, Node: id})
		}
	case "esc":
		m.apply(explorer.Action{Kind: explorer.ActionClear})
	case "u", "d", "b":
		if id, ok := m.focusTarget(); ok {
			m.apply(explorer.Action{Kind: explorer.ActionFocus, Node: id, Direction: msg.String()})
			m.moveTo(id)
		}
	case "a":
		m.apply(explorer.Action{Kind: explorer.ActionShowAll})
	case "f":
		m.apply(explorer.Action{Kind: explorer.ActionFilter, Type: m.nextFilter()})
	case "m":
		m.apply(explorer.Action{Kind: explorer.ActionMode, Mode: m.nextMode()})
	case "/":
		m.Searching = true
		m.Query, m.Results, m.ResultIdx = "", nil, 0
	case "w":
		return m, m.writeLayout()
	}
	m.scroll()
	return m, nil
}

// updateSearch handles keys while the search prompt has focus.
func (m ExploreModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.debouncer.Cancel()
		return m, tea.Quit
	case tea.KeyEsc:
		m.debouncer.Cancel()
		m.Searching = false
	case tea.KeyUp:
		if m.ResultIdx > 0 {
			m.ResultIdx--
		}
	case tea.KeyDown:
		if m.ResultIdx < len(m.Results)-1 {
			m.ResultIdx++
		}
	case tea.KeyEnter:
		if m.debouncer.Flush() {
			return m, nil
		}
		if m.ResultIdx < len(m.Results) {
			id := m.Results[m.ResultIdx].ID
			m.apply(explorer.Action{Kind: explorer.ActionSelect, Node: id})
			m.moveTo(id)
			m.scroll()
		}
		m.Searching = false
	case tea.KeyBackspace:
		if r := []rune(m.Query); len(r) > 0 {
			m.Query = string(r[:len(r)-1])
			m.trigger()
		}
	case tea.KeySpace:
		m.Query += " "
		m.trigger()
	case tea.KeyRunes:
		m.Query += string(msg.Runes)
		m.trigger()
	}
	return m, nil
}

// trigger schedules a search for the current query.
func (m *ExploreModel) trigger() {
	runner, state, query, out := m.Runner, m.State, m.Query, m.queries
	m.debouncer.Trigger(func() {
		nodes, err := runner.Search(state, query)
		msg := searchMsg{query: query, nodes: nodes, err: err}
		select {
		case <-out:
		default:
		}
		select {
		case out <- msg:
		default:
		}
	})
}

// apply runs one action, keeping the state when it is rejected.
func (m *ExploreModel) apply(a explorer.Action) {
	state, err := m.Runner.Apply(m.State, a)
	if err != nil {
		m.Status = perrors.UserMessage(err)
		return
	}
	if state.Mode != m.State.Mode || !state.Visible.Equal(m.State.Visible) {
		m.Cursor, m.Offset = 0, 0
	}
	m.State = state
}

// writeLayout composes the current view and writes it to LayoutPath.
func (m ExploreModel) writeLayout() tea.Cmd {
	runner, state, path, ctx := m.Runner, m.State, m.LayoutPath, m.ctx
	return func() tea.Msg {
		if path == "" {
			return layoutMsg{err: errors.New("no output path")}
		}
		res, hit, err := runner.LayoutWithCacheInfo(ctx, state)
		if err != nil {
			return layoutMsg{err: err}
		}
		if err := res.WriteFile(path); err != nil {
			return layoutMsg{err: err}
		}
		return layoutMsg{path: path, nodes: len(res.Nodes), cached: hit}
	}
}

// current returns the node under the cursor.
func (m ExploreModel) current() (string, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.State.Visible.Nodes) {
		return "", false
	}
	return m.State.Visible.Nodes[m.Cursor], true
}

// focusTarget returns the selected node, or the node under the cursor when
// nothing is selected.
func (m ExploreModel) focusTarget() (string, bool) {
	if m.State.HasSelection() {
		return m.State.Selected, true
	}
	return m.current()
}

// moveTo places the cursor on id if it is visible.
func (m *ExploreModel) moveTo(id string) {
	if i := slices.Index(m.State.Visible.Nodes, id); i >= 0 {
		m.Cursor = i
	}
}

// scroll keeps the cursor inside the window.
func (m *ExploreModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

// nextMode returns the mode after the current one, wrapping around.
func (m ExploreModel) nextMode() string {
	modes := m.Runner.Store.Modes()
	i := slices.Index(modes, m.State.Mode)
	return modes[(i+1)%len(modes)]
}

// nextFilter cycles through the graph's types and back to no filter.
func (m ExploreModel) nextFilter() string {
	types := m.Runner.Graph(m.State).Types()
	if m.State.Filter == "" {
		if len(types) == 0 {
			return view.FilterAll
		}
		return types[0]
	}
	i := slices.Index(types, m.State.Filter)
	if i < 0 || i == len(types)-1 {
		return view.FilterAll
	}
	return types[i+1]
}

func (m ExploreModel) View() string {
	var b strings.Builder
	g := m.Runner.Graph(m.State)

	b.WriteString(StyleTitle.Render("Lineage") + " " + StyleHighlight.Render(m.State.Mode))
	switch {
	case m.State.Focus != nil:
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  focus %s (%s)", m.State.Focus.Node, m.State.Focus.Direction)))
	case m.State.Filter != "":
		b.WriteString(listDimStyle.Render("  filter " + m.State.Filter))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  u/d/b focus  a all  f filter  m mode  / search  w write  q quit"))
	b.WriteString("\n\n")

	if m.Searching {
		b.WriteString(m.searchView())
		return b.String()
	}

	if len(m.State.Visible.Nodes) == 0 {
		b.WriteString(listDimStyle.Render("  Nothing to show in this view"))
		b.WriteString("\n")
		return b.String()
	}

	highlight := make(map[string]bool)
	for _, id := range view.Highlight(g, m.State) {
		highlight[id] = true
	}

	end := min(m.Offset+m.Height, len(m.State.Visible.Nodes))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n, _ := g.Node(m.State.Visible.Nodes[i])
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := ""
		if n.ID == m.State.Selected {
			mark = "●"
		} else if highlight[n.ID] {
			mark = "•"
		}
		rows = append(rows, []string{cursor, mark, n.DisplayLabel(), n.TypeOrDefault(), pipelineCell(n)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("", "", "Node", "Type", "Pipeline").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			idx := m.Offset + row
			if idx >= len(m.State.Visible.Nodes) {
				return lipgloss.NewStyle()
			}
			id := m.State.Visible.Nodes[idx]
			base := lipgloss.NewStyle()
			if col >= 3 {
				base = base.Foreground(colorGray)
			}
			switch {
			case idx == m.Cursor:
				return base.Foreground(colorCyan).Bold(true)
			case highlight[id]:
				return listLineageStyle
			case m.State.HasSelection():
				return base.Foreground(colorDim)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.State.Visible.Nodes))))
	b.WriteString("\n")

	if m.State.HasSelection() {
		if d, err := m.Runner.Detail(m.State.Mode, m.State.Selected); err == nil {
			b.WriteString(fmt.Sprintf("\n%s %s  %s\n",
				listSelectedStyle.Render(d.Node.DisplayLabel()),
				listDimStyle.Render(d.Type),
				listDimStyle.Render(fmt.Sprintf("%d upstream · %d downstream", len(d.Upstream), len(d.Downstream)))))
		}
	}
	if m.Status != "" {
		b.WriteString("\n" + StyleWarning.Render(m.Status) + "\n")
	}
	return b.String()
}

// searchView renders the search prompt and its results.
func (m ExploreModel) searchView() string {
	var b strings.Builder
	b.WriteString(StyleHighlight.Render("/") + " " + m.Query + listDimStyle.Render("▏"))
	b.WriteString("\n\n")
	if len(m.Results) == 0 {
		if m.debouncer.Pending() {
			b.WriteString(listDimStyle.Render("  searching..."))
		} else if strings.TrimSpace(m.Query) != "" {
			b.WriteString(listDimStyle.Render("  no matches"))
		}
		b.WriteString("\n")
		return b.String()
	}
	for i, n := range m.Results {
		line := fmt.Sprintf("  %-30s %s", n.DisplayLabel(), listDimStyle.Render(n.TypeOrDefault()))
		if i == m.ResultIdx {
			line = listSelectedStyle.Render("▸ " + strings.TrimPrefix(line, "  "))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// =============================================================================
// Command
// =============================================================================

// exploreCommand creates the interactive explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		mode  string
		fresh bool
	)

	cmd := &cobra.Command{
		Use:   "explore [payload]",
		Short: "Explore a lineage payload interactively",
		Long: `Explore a lineage payload interactively.

Move through the visible nodes, select one to highlight its lineage, focus
on the selection's upstream (u), downstream (d) or both (b), filter by type (f), switch
view modes (m) and search (/). Press w to write the layout of the current
view next to the payload.

The view is remembered per payload and restored on the next run unless
--fresh is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], mode, fresh)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "start in this view mode")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the remembered view")

	return cmd
}

// runExplore runs the explorer UI and remembers the final view.
func (c *CLI) runExplore(ctx context.Context, input, mode string, fresh bool) error {
	store, err := c.loadPayload(ctx, input)
	if err != nil {
		return fmt.Errorf("load payload %s: %w", input, err)
	}
	runner, err := c.newRunner(ctx, store, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Cache.Close()

	resume := c.openResume()
	state := runner.Start(mode)
	if resume != nil && !fresh && mode == "" {
		if saved, err := resume.Load(ctx, input); err != nil {
			c.Logger.Warn("could not restore view", "err", err)
		} else if saved != nil && validResume(runner, *saved) {
			state = *saved
			c.Logger.Debug("restored view", "mode", state.Mode, "nodes", len(state.Visible.Nodes))
		}
	}

	m := NewExploreModel(ctx, runner, state, c.config().Search.Debounce)
	m.LayoutPath = defaultOutput(input, ".layout.json")

	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}

	if resume != nil {
		if em, ok := final.(ExploreModel); ok {
			if err := resume.Save(context.WithoutCancel(ctx), input, em.State); err != nil {
				c.Logger.Warn("could not remember view", "err", err)
			}
		}
	}
	return nil
}

// openResume opens the resume store, or returns nil when it is unavailable.
func (c *CLI) openResume() *session.CLIStore {
	dir, err := sessionDir()
	if err != nil {
		return nil
	}
	store, err := session.NewCLIStore(dir)
	if err != nil {
		c.Logger.Debug("resume disabled", "err", err)
		return nil
	}
	return store
}

// validResume reports whether a remembered state still fits the payload.
func validResume(r *explorer.Runner, s view.State) bool {
	if s.Mode != r.Store.Resolve(s.Mode) {
		return false
	}
	g := r.Graph(s)
	for _, id := range s.Visible.Nodes {
		if !g.Has(id) {
			return false
		}
	}
	for _, i := range s.Visible.Edges {
		if _, ok := g.Edge(i); !ok {
			return false
		}
	}
	return s.Selected == "" || g.Has(s.Selected)
}
