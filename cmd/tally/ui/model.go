package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"linetally/internal/stats"
	"linetally/internal/watch"
)

// RenderFunc turns a project into the table shown under the status line.
type RenderFunc func(*stats.Project) string

type updateMsg watch.Update

type closedMsg struct{}

// Model shows the latest scan of a watched tree.
type Model struct {
	roots    []string
	updates  <-chan watch.Update
	render   RenderFunc
	styles   Styles
	spinner  spinner.Model
	scanning bool
	latest   *watch.Update
	done     bool
}

// New returns a Model reading from updates. It starts in the scanning state
// because the watcher scans once on start.
func New(roots []string, updates <-chan watch.Update, render RenderFunc, styles Styles) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner
	return Model{
		roots:    roots,
		updates:  updates,
		render:   render,
		styles:   styles,
		spinner:  s,
		scanning: true,
	}
}

func waitForUpdate(ch <-chan watch.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

// Init starts the spinner and the first wait for an update.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

// Update handles keys, watcher updates and spinner ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case updateMsg:
		u := watch.Update(msg)
		if u.Scanning {
			m.scanning = true
			return m, tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
		}
		m.scanning = false
		m.latest = &u
		return m, waitForUpdate(m.updates)

	case closedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the header, status line, table and key help.
func (m Model) View() string {
	if m.done {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Header.Render("tally watch: "+strings.Join(m.roots, ", ")) + "\n")

	switch {
	case m.scanning:
		sb.WriteString(m.spinner.View() + " " + m.styles.Status.Render("scanning...") + "\n")
	case m.latest != nil:
		sb.WriteString(m.styles.Status.Render(statusLine(m.latest)) + "\n")
	}

	if m.latest != nil {
		if m.latest.Err != nil {
			sb.WriteString(m.styles.Error.Render("scan failed: "+m.latest.Err.Error()) + "\n")
		} else if m.latest.Project != nil {
			sb.WriteString("\n" + m.render(m.latest.Project) + "\n")
		}
	}

	sb.WriteString(m.styles.Footer.Render("q quit"))
	return sb.String()
}

func statusLine(u *watch.Update) string {
	line := fmt.Sprintf("updated %s · %d files", u.At.Format(time.TimeOnly), u.Summary.Processed)
	if u.Summary.Skipped > 0 {
		line += fmt.Sprintf(" · %d skipped", u.Summary.Skipped)
	}
	return line
}
