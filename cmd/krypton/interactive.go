package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/unbound-force/krypton/internal/report"
)

// keyMap defines keybindings for the interactive TUI.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
	Help     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("^/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("v/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// Styles for the TUI.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	tuiHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	tuiBorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63"))
)

// summaryModel is the Bubble Tea model for browsing gate results.
type summaryModel struct {
	summary  report.Summary
	viewport viewport.Model
	help     help.Model
	keys     keyMap
	ready    bool
	content  string
}

func newSummaryModel(summary report.Summary) summaryModel {
	return summaryModel{
		summary: summary,
		help:    help.New(),
		keys:    defaultKeyMap,
		content: renderSummaryContent(summary),
	}
}

func renderSummaryContent(summary report.Summary) string {
	var sb strings.Builder
	styles := report.DefaultStyles()

	status := styles.Pass.Render("PASS")
	if !summary.Passed {
		status = styles.Fail.Render("FAIL")
	}
	sb.WriteString(titleStyle.Render(
		fmt.Sprintf("krypton: %d module(s), %d block(s), %d infraction(s)",
			len(summary.Modules), summary.Blocks, summary.Infractions)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Average complexity %.2f (%s)  %s\n\n",
		summary.Average,
		styles.GradeStyle(summary.AverageGrade).Render(summary.AverageGrade.String()),
		status))

	sb.WriteString(tuiHeaderStyle.Render("=== Violations ==="))
	sb.WriteString("\n")
	if len(summary.Violations) == 0 {
		sb.WriteString(statusStyle.Render("    No threshold violations."))
		sb.WriteString("\n\n")
	} else {
		rows := make([][]string, 0, len(summary.Violations))
		for _, v := range summary.Violations {
			rows = append(rows, []string{
				string(v.Scope),
				v.Grade.String(),
				fmt.Sprintf("%.2f", v.Value),
				report.Location(v),
			})
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(tuiBorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tuiHeaderStyle
				}
				if col == 1 && row >= 0 && row < len(summary.Violations) {
					return styles.GradeStyle(summary.Violations[row].Grade)
				}
				return lipgloss.NewStyle()
			}).
			Headers("SCOPE", "RANK", "VALUE", "SUBJECT").
			Rows(rows...)
		sb.WriteString(t.String())
		sb.WriteString("\n\n")
	}

	sb.WriteString(tuiHeaderStyle.Render("=== Modules ==="))
	sb.WriteString("\n")
	if len(summary.Modules) == 0 {
		sb.WriteString(statusStyle.Render("    No modules analyzed."))
		sb.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(summary.Modules))
		for _, m := range summary.Modules {
			rows = append(rows, []string{
				m.Grade.String(),
				fmt.Sprintf("%.2f", m.Average),
				fmt.Sprintf("%d", m.Blocks),
				m.Module,
			})
		}
		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(tuiBorderStyle).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return tuiHeaderStyle
				}
				if col == 0 && row >= 0 && row < len(summary.Modules) {
					return styles.GradeStyle(summary.Modules[row].Grade)
				}
				return lipgloss.NewStyle()
			}).
			Headers("RANK", "AVERAGE", "BLOCKS", "MODULE").
			Rows(rows...)
		sb.WriteString(t.String())
		sb.WriteString("\n")
	}

	for _, sk := range summary.Skipped {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("    skipped %s: %s", sk.Module, sk.Error)))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m summaryModel) Init() tea.Cmd {
	return nil
}

func (m summaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		footerHeight := 2

		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			m.viewport.SetContent(m.content)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - footerHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m summaryModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	footer := statusStyle.Render(
		fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)) +
		" " + m.help.View(m.keys)

	return m.viewport.View() + "\n" + footer
}

// runInteractiveSummary launches the Bubble Tea TUI for browsing gate
// results.
func runInteractiveSummary(summary report.Summary) error {
	model := newSummaryModel(summary)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
