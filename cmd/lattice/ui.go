package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lattice/internal/core/app"
	"lattice/internal/engine/resolver"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	circularStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	report     *app.Report
	lastUpdate time.Time
}

type updateMsg struct {
	report *app.Report
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.report = msg.report
		m.lastUpdate = time.Now()

		items := []list.Item{}
		for i, d := range m.report.Diagnostics {
			desc := fmt.Sprintf("%s:%d:%d", d.File, d.Location.StartLine, d.Location.StartColumn)
			if d.Specifier != "" {
				desc += fmt.Sprintf(" (%s)", d.Specifier)
			}
			if hints := m.report.Suggestions[i]; len(hints) > 0 {
				desc += fmt.Sprintf(" did you mean %s?", hints[0])
			}
			items = append(items, item{
				title: fmt.Sprintf("%s: %s", d.Kind, d.Name),
				desc:  desc,
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var files int
	if m.report != nil {
		files = m.report.FilesScanned
	}
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files",
		m.lastUpdate.Format("15:04:05"), files))

	var summary string
	if m.report == nil || m.report.Clean() {
		summary = successStyle.Render("✅ All references resolved")
	} else {
		counts := m.report.Counts()
		summary = fmt.Sprintf("⚠️  %s | %s",
			unresolvedStyle.Render(fmt.Sprintf("%d Unresolved",
				counts[resolver.DiagUnresolvedReference]+counts[resolver.DiagUnresolvedImport])),
			circularStyle.Render(fmt.Sprintf("%d Circular",
				counts[resolver.DiagCircularReexport])))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Symbol Resolution Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Resolution Diagnostics"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

// runUI drives the terminal UI, feeding it the initial report and every
// watch-mode update until the user quits.
func runUI(session *app.WatchSession, first *app.Report) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		p.Send(updateMsg{report: first})
		for update := range session.Updates() {
			p.Send(updateMsg{report: update})
		}
	}()

	_, err := p.Run()
	return err
}
