package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"terabox-extractor/internal/registry"
	"terabox-extractor/pkg/models"
)

// Model represents the main application state
type Model struct {
	state     State
	resolver  models.Resolver
	urlInput  textinput.Model
	spinner   spinner.Model
	table     table.Model
	entries   []Entry
	resolving bool
	pending   string
	selected  int
	status    string
	width     int
	height    int
	styles    Styles
}

// State represents different screens/states of the TUI
type State int

const (
	MainMenu State = iota
	ResolveScreen
	History
	Detail
	Help
)

// Entry is one resolution made during this session
type Entry struct {
	URL      string
	Result   *models.VideoResult
	Duration time.Duration
}

// resolvedMsg carries a finished resolution back into Update
type resolvedMsg struct {
	entry Entry
}

// Styles holds all the styling for the TUI
type Styles struct {
	title     lipgloss.Style
	subtitle  lipgloss.Style
	menuItem  lipgloss.Style
	input     lipgloss.Style
	success   lipgloss.Style
	failure   lipgloss.Style
	label     lipgloss.Style
	statusBar lipgloss.Style
	table     lipgloss.Style
}

// InitialModel creates the initial model for the TUI
func InitialModel(resolver models.Resolver) Model {
	// Initialize text input
	ti := textinput.New()
	ti.Placeholder = "https://terabox.com/s/1xxxxx"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	// Initialize table
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Share", Width: 14},
		{Title: "Title", Width: 32},
		{Title: "Size", Width: 10},
		{Title: "Status", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	// Initialize styles
	styles := Styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			PaddingTop(1).
			PaddingBottom(1),
		subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			PaddingBottom(1),
		menuItem: lipgloss.NewStyle().
			PaddingLeft(2).
			PaddingRight(2).
			Margin(0, 1),
		input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#04B575")),
		failure: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F87")),
		label: lipgloss.NewStyle().
			Bold(true).
			Width(12),
		statusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1),
		table: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")),
	}

	return Model{
		state:    MainMenu,
		resolver: resolver,
		urlInput: ti,
		spinner:  sp,
		table:    t,
		entries:  []Entry{},
		styles:   styles,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Entries returns the resolutions made so far
func (m Model) Entries() []Entry {
	return m.entries
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case resolvedMsg:
		m.resolving = false
		m.pending = ""
		m.entries = append(m.entries, msg.entry)
		m.updateTable()
		m.selected = len(m.entries) - 1
		if msg.entry.Result.Playable() {
			m.status = fmt.Sprintf("Resolved in %s", msg.entry.Duration.Round(time.Millisecond))
		} else {
			m.status = "Resolution failed"
		}
		m.state = Detail
		return m, nil

	case spinner.TickMsg:
		if !m.resolving {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			// On the resolve screen q is typed into the input
			if m.state != ResolveScreen {
				return m, tea.Quit
			}

		case "esc":
			switch m.state {
			case Detail:
				m.state = History
				return m, nil
			case MainMenu:
			default:
				m.state = MainMenu
				return m, nil
			}

		case "1":
			if m.state == MainMenu {
				m.state = ResolveScreen
				return m, nil
			}

		case "2":
			if m.state == MainMenu {
				m.state = History
				return m, nil
			}

		case "3":
			if m.state == MainMenu {
				m.state = Help
				return m, nil
			}

		case "enter":
			switch m.state {
			case ResolveScreen:
				link := strings.TrimSpace(m.urlInput.Value())
				if link == "" || m.resolving {
					return m, nil
				}
				m.resolving = true
				m.pending = link
				m.status = ""
				m.urlInput.SetValue("")
				return m, tea.Batch(m.spinner.Tick, m.resolve(link))

			case History:
				if len(m.entries) > 0 {
					m.selected = m.table.Cursor()
					m.state = Detail
				}
				return m, nil
			}
		}
	}

	// Update components based on current state
	switch m.state {
	case ResolveScreen:
		m.urlInput, cmd = m.urlInput.Update(msg)
	case History:
		m.table, cmd = m.table.Update(msg)
	}

	return m, cmd
}

// resolve runs one resolution off the UI loop
func (m Model) resolve(link string) tea.Cmd {
	resolver := m.resolver
	return func() tea.Msg {
		start := time.Now()
		result := resolver.Resolve(context.Background(), link)
		if result == nil {
			result = models.FailedResult("", models.MsgAllStrategiesFailed)
		}
		return resolvedMsg{entry: Entry{URL: link, Result: result, Duration: time.Since(start)}}
	}
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case MainMenu:
		return m.renderMainMenu()
	case ResolveScreen:
		return m.renderResolveScreen()
	case History:
		return m.renderHistory()
	case Detail:
		return m.renderDetail()
	case Help:
		return m.renderHelp()
	default:
		return m.renderMainMenu()
	}
}

func (m Model) place(content string) string {
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderMainMenu() string {
	title := m.styles.title.Render("TeraBox Extractor")
	subtitle := m.styles.subtitle.Render("Turn TeraBox share links into direct video URLs")

	menu := []string{
		"1. Resolve a Link",
		fmt.Sprintf("2. History (%d)", len(m.entries)),
		"3. Help",
		"",
		"q. Quit",
	}

	var menuItems []string
	for _, item := range menu {
		if item == "" {
			menuItems = append(menuItems, "")
		} else {
			menuItems = append(menuItems, m.styles.menuItem.Render(item))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		"",
		strings.Join(menuItems, "\n"),
	)

	return m.place(content)
}

func (m Model) renderResolveScreen() string {
	title := m.styles.title.Render("Resolve a Link")

	input := m.styles.input.Render(m.urlInput.View())

	var progress string
	if m.resolving {
		progress = fmt.Sprintf("%s Extracting %s ...", m.spinner.View(), m.pending)
	}

	instructions := []string{
		"Supported hosts include " + strings.Join(registry.PrimaryDomains()[:4], ", ") + " and more.",
		"",
		"Enter to resolve • ESC to go back",
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		"Share link:",
		input,
		"",
		progress,
		"",
		strings.Join(instructions, "\n"),
	)

	return m.place(content)
}

func (m Model) renderHistory() string {
	title := m.styles.title.Render("History")

	body := "No links resolved yet."
	if len(m.entries) > 0 {
		body = m.styles.table.Render(m.table.View())
	}

	instructions := "↑/↓ to navigate • Enter for details • ESC to go back"

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		body,
		"",
		instructions,
	)

	return m.place(content)
}

func (m Model) renderDetail() string {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return m.renderHistory()
	}

	entry := m.entries[m.selected]
	result := entry.Result

	var heading string
	if result.Playable() {
		heading = m.styles.success.Render("Video Found")
	} else {
		heading = m.styles.failure.Render("Failed")
	}

	lines := []string{m.field("Link", entry.URL), m.field("Share", result.Surl)}
	if result.Playable() {
		lines = append(lines,
			m.field("Title", result.Title),
			m.field("Size", result.SizeStr),
			m.field("Share ID", result.ShareID),
			m.field("Stream", result.StreamURL),
		)
	} else {
		lines = append(lines, m.field("Error", result.Error))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.title.Render("Result"),
		heading,
		"",
		strings.Join(lines, "\n"),
		"",
		m.styles.statusBar.Render(m.status),
		"ESC for history • q to quit",
	)

	return m.place(content)
}

func (m Model) field(label, value string) string {
	if value == "" {
		value = "-"
	}
	return m.styles.label.Render(label+":") + " " + value
}

func (m Model) renderHelp() string {
	title := m.styles.title.Render("Help")

	helpText := []string{
		"Navigation:",
		"• Use number keys to select menu items",
		"• ESC to go back",
		"• q or Ctrl+C to quit (Ctrl+C while typing a link)",
		"",
		"Resolving:",
		"• Paste a TeraBox share link and press Enter",
		"• Results are kept for this session only",
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		strings.Join(helpText, "\n"),
		"",
		"ESC to go back",
	)

	return m.place(content)
}

func (m *Model) updateTable() {
	var rows []table.Row
	for i, entry := range m.entries {
		status := "ok"
		if !entry.Result.Playable() {
			status = "failed"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", i+1),
			entry.Result.Surl,
			entry.Result.Title,
			entry.Result.SizeStr,
			status,
		})
	}
	m.table.SetRows(rows)
}
