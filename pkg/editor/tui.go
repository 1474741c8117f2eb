package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"post-reorder-backend/pkg/models"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Indent   key.Binding
	Outdent  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MoveUp, k.MoveDown, k.Indent, k.Outdent, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.MoveUp, k.MoveDown},
		{k.Indent, k.Outdent},
		{k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "select previous")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "select next")),
		MoveUp:   key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up")),
		MoveDown: key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down")),
		Indent:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "nest")),
		Outdent:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "unnest")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	itemStyle     = lipgloss.NewStyle()
	orderStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).MarginTop(1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).MarginTop(1)
)

type loadedMsg struct {
	items []models.Item
	nonce string
	err   error
}

type submittedMsg SubmitResult

// Model is the terminal reorder editor for one post type. Every change is
// submitted immediately.
type Model struct {
	ctx       context.Context
	client    *Client
	postType  string
	heading   string
	maxLevels int
	nested    bool

	tree     *Tree
	nonce    string
	cursor   int
	inFlight int
	status   string
	err      error
	loading  bool

	keys keyMap
	help help.Model
}

// NewModel returns an editor that loads its items on Init.
func NewModel(ctx context.Context, client *Client, target models.ReorderTarget) Model {
	target = target.WithDefaults()
	return Model{
		ctx:       ctx,
		client:    client,
		postType:  target.PostType,
		heading:   target.Heading,
		maxLevels: target.MaxLevels,
		nested:    true,
		loading:   true,
		keys:      defaultKeyMap(),
		help:      help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	ctx, client, postType := m.ctx, m.client, m.postType
	return func() tea.Msg {
		items, err := client.FetchItems(ctx, postType)
		if err != nil {
			return loadedMsg{err: err}
		}
		nonce, err := client.FetchNonce(ctx, postType)
		return loadedMsg{items: items, nonce: nonce, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tree = NewTree(msg.items, m.maxLevels)
		m.nonce = msg.nonce
		m.status = fmt.Sprintf("%d items loaded", m.tree.Len())
		return m, nil

	case submittedMsg:
		m.inFlight--
		if msg.Err != nil {
			m.err = msg.Err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("saved: %s, %d/%d written", msg.Report.Outcome, msg.Report.Written, msg.Report.Submitted)
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if m.tree == nil {
		return m, nil
	}

	rows := m.tree.Rows()
	if len(rows) == 0 {
		return m, nil
	}
	selected := rows[m.cursor].Node.Item.ID

	var changed bool
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.MoveUp):
		changed = m.tree.MoveUp(selected)
	case key.Matches(msg, m.keys.MoveDown):
		changed = m.tree.MoveDown(selected)
	case key.Matches(msg, m.keys.Indent):
		changed = m.tree.Indent(selected)
	case key.Matches(msg, m.keys.Outdent):
		changed = m.tree.Outdent(selected)
	}
	if !changed {
		return m, nil
	}
	m.cursor = m.rowOf(selected)
	return m, m.submit()
}

func (m Model) rowOf(id int64) int {
	for i, row := range m.tree.Rows() {
		if row.Node.Item.ID == id {
			return i
		}
	}
	return 0
}

// submit fires the request straight away; the returned command only waits
// for its outcome.
func (m *Model) submit() tea.Cmd {
	order, err := m.tree.Encode(m.nested)
	if err != nil {
		m.err = err
		return nil
	}
	m.inFlight++
	m.status = "saving…"
	ch := m.client.SubmitAsync(m.ctx, Submission{PostType: m.postType, Nonce: m.nonce, Order: order})
	return func() tea.Msg {
		return submittedMsg(<-ch)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.heading + " · " + m.postType))
	b.WriteString("\n")

	switch {
	case m.loading:
		b.WriteString("loading…\n")
	case m.tree == nil || m.tree.Len() == 0:
		b.WriteString("nothing to reorder\n")
	default:
		rows := m.tree.Rows()
		n := len(rows)
		for i, row := range rows {
			indent := strings.Repeat("  ", row.Depth-1)
			line := fmt.Sprintf("%s%s", indent, row.Node.Item.Title)
			cursor := "  "
			style := itemStyle
			if i == m.cursor {
				cursor = "> "
				style = selectedStyle
			}
			b.WriteString(cursor + style.Render(line) + " " + orderStyle.Render(fmt.Sprintf("#%d", n-i)) + "\n")
		}
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
