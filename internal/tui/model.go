// Package tui is agent-device's read-only snapshot tree browser
// (`agent-device ui`): a bubbletea Model over one domain.Snapshot,
// letting a human operator navigate the same ref-addressed node list
// the CLI's selector engine resolves against. Grounded on the teacher's
// internal/tui/model.go (bubbles/viewport + textinput, a "/" search
// mode, a one-line footer help bar, a stats header), generalized here
// from a scrolling log stream to a static indented accessibility tree
// with a detail pane and a synthesized-selector "copy" action.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/agentdevice/agent-device/internal/domain"
	"github.com/agentdevice/agent-device/internal/output"
	"github.com/agentdevice/agent-device/internal/selector"
)

var (
	detailStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	highlightStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("230")).Bold(true)
)

// Model is the browser's state: the full node list, the rows currently
// visible after search filtering, and which row is selected.
type Model struct {
	session string
	device  string
	backend string
	nodes   []domain.Node

	filtered []int
	cursor   int

	viewport  viewport.Model
	textinput textinput.Model

	width, height int
	ready         bool
	searching     bool
	searchQuery   string
	showDetails   bool

	lastSelector string
	quitting     bool
}

// New builds a Model over one captured snapshot's nodes.
func New(session, device, backend string, nodes []domain.Node) Model {
	ti := textinput.New()
	ti.Placeholder = "Filter by label/text/identifier..."
	ti.CharLimit = 100
	ti.Width = 40

	m := Model{
		session:     session,
		device:      device,
		backend:     backend,
		nodes:       nodes,
		textinput:   ti,
		showDetails: true,
	}
	m.applyFilter()
	return m
}

// Init satisfies tea.Model; there's no background work to kick off.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key/window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			switch msg.String() {
			case "esc":
				m.searching = false
				m.textinput.Blur()
				m.searchQuery = ""
				m.applyFilter()
			case "enter":
				m.searching = false
				m.textinput.Blur()
				m.searchQuery = m.textinput.Value()
				m.applyFilter()
			default:
				m.textinput, cmd = m.textinput.Update(msg)
			}
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "/":
			m.searching = true
			m.textinput.Focus()
			return m, textinput.Blink
		case "esc":
			if m.searchQuery != "" {
				m.searchQuery = ""
				m.textinput.SetValue("")
				m.applyFilter()
			}
		case "d":
			m.showDetails = !m.showDetails
		case "y", "c":
			m.lastSelector = m.copySelectorForSelected()
		case "j", "down":
			m.moveCursor(1)
		case "k", "up":
			m.moveCursor(-1)
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			m.cursor = len(m.filtered) - 1
		case "ctrl+d", "pgdown":
			m.moveCursor(10)
		case "ctrl+u", "pgup":
			m.moveCursor(-10)
		}
		m.updateViewportContent()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight, footerHeight := 3, 2
		viewportHeight := m.height - headerHeight - footerHeight
		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()
	}

	if m.ready {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// View renders the header, tree viewport, and footer.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s", m.renderHeader(), m.viewport.View(), m.renderFooter())
}

// SelectedSelector returns the last selector chain copied with y/c, for
// the caller (cmd/agent-device) to print to stdout on exit.
func (m Model) SelectedSelector() string {
	return m.lastSelector
}

func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	if max := len(m.filtered) - 1; m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) applyFilter() {
	m.filtered = m.filtered[:0]
	query := strings.ToLower(m.searchQuery)
	for i, n := range m.nodes {
		if query == "" || nodeMatches(n, query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func nodeMatches(n domain.Node, query string) bool {
	return strings.Contains(strings.ToLower(n.Label), query) ||
		strings.Contains(strings.ToLower(n.Value), query) ||
		strings.Contains(strings.ToLower(n.Identifier), query) ||
		strings.Contains(strings.ToLower(n.Type), query)
}

func (m *Model) updateViewportContent() {
	if !m.ready {
		return
	}
	var b strings.Builder
	for row, idx := range m.filtered {
		n := m.nodes[idx]
		line := formatNodeLine(n)
		if row == m.cursor {
			line = highlightStyle.Render(line)
		}
		if row > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if m.showDetails && row == m.cursor {
			b.WriteByte('\n')
			b.WriteString(detailStyle.Render(formatNodeDetail(n)))
		}
	}
	m.viewport.SetContent(b.String())
}

func formatNodeLine(n domain.Node) string {
	indent := strings.Repeat("  ", n.Depth)
	label := n.Label
	if label == "" {
		label = n.Value
	}
	ref := output.Styles.Ref.Render(n.ExternalRef())
	return fmt.Sprintf("%s%s %s %q", indent, ref, n.Type, label)
}

func formatNodeDetail(n domain.Node) string {
	rect := "none"
	if n.Rect != nil {
		rect = fmt.Sprintf("%.0f,%.0f %.0fx%.0f", n.Rect.X, n.Rect.Y, n.Rect.Width, n.Rect.Height)
	}
	return fmt.Sprintf("    identifier=%q enabled=%v selected=%v hittable=%v rect=%s",
		n.Identifier, n.IsEnabled(), n.IsSelected(), n.IsHittable(), rect)
}

func (m Model) copySelectorForSelected() string {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return ""
	}
	node := m.nodes[m.filtered[m.cursor]]
	chain := selector.BuildSelectorChainForNode(node, m.nodes, false)
	return chain.Raw
}

func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		Background(lipgloss.Color("236")).
		Padding(0, 1).
		Width(m.width)
	title := fmt.Sprintf("agent-device ui: %s @ %s (%s, %d nodes)", m.session, m.device, m.backend, len(m.nodes))

	infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(m.width)
	info := fmt.Sprintf("showing %d/%d nodes", len(m.filtered), len(m.nodes))
	if m.searchQuery != "" {
		info += fmt.Sprintf(" | filter: %q", m.searchQuery)
	}
	if m.lastSelector != "" {
		info += fmt.Sprintf(" | copied: %s", m.lastSelector)
	}
	return titleStyle.Render(title) + "\n" + infoStyle.Render(info)
}

func (m Model) renderFooter() string {
	if m.searching {
		return m.textinput.View()
	}
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Width(m.width)
	help := "q:quit /:filter d:details y:copy-selector g/G:top/bottom j/k:scroll"
	return helpStyle.Render(help)
}
