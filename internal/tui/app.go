// Package tui implements a read-only terminal browser for evidence
// packages: open a package, walk its test cases, and inspect each case's
// evidence. All access goes through the engine's public facade.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/evipack/evipack/internal/pack"
)

// view represents the different screens in the TUI.
type view int

const (
	viewOpen view = iota
	viewList
	viewDetail
)

// openedMsg carries a successfully opened package into the model.
type openedMsg struct {
	pkg *pack.Package
}

// openErrMsg carries an open failure into the model.
type openErrMsg struct {
	err error
}

// Model is the main Bubble Tea model that orchestrates all views.
type Model struct {
	currentView view
	width       int
	height      int

	input  textinput.Model
	pkg    *pack.Package
	list   caseListModel
	detail caseDetailModel
	err    error
}

// Run starts the TUI. If path is non-empty the package is opened
// immediately; otherwise the user is prompted for one.
func Run(path string) error {
	p := tea.NewProgram(
		initialModel(path),
		tea.WithAltScreen(),
	)
	m, err := p.Run()
	if final, ok := m.(Model); ok && final.pkg != nil {
		final.pkg.Close()
	}
	return err
}

func initialModel(path string) Model {
	input := textinput.New()
	input.Placeholder = "path/to/package.evipack"
	input.Focus()
	input.SetValue(path)

	return Model{
		currentView: viewOpen,
		input:       input,
	}
}

// openPackage is a tea.Cmd that opens a package off the update loop.
func openPackage(path string) tea.Cmd {
	return func() tea.Msg {
		p, err := pack.Open(path, nil)
		if err != nil {
			return openErrMsg{err: err}
		}
		return openedMsg{pkg: p}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.input.Value() != "" {
		return openPackage(m.input.Value())
	}
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.setSize(msg.Width, msg.Height)
		m.detail.setSize(msg.Width, msg.Height)
		return m, nil

	case openedMsg:
		m.pkg = msg.pkg
		m.err = nil
		m.list = newCaseListModel(msg.pkg, m.width, m.height)
		m.currentView = viewList
		return m, nil

	case openErrMsg:
		m.err = msg.err
		m.currentView = viewOpen
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	switch m.currentView {
	case viewOpen:
		return m.updateOpen(msg)
	case viewList:
		return m.updateList(msg)
	default:
		return m.updateDetail(msg)
	}
}

func (m Model) updateOpen(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			if m.input.Value() != "" {
				return m, openPackage(m.input.Value())
			}
			return m, nil
		case "esc":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter":
			if tc, ok := m.list.selected(); ok {
				m.detail = newCaseDetailModel(m.pkg, tc, m.width, m.height)
				m.currentView = viewDetail
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.update(msg)
	return m, cmd
}

func (m Model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q":
			return m, tea.Quit
		case "esc":
			m.currentView = viewList
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	switch m.currentView {
	case viewList:
		return m.list.view()
	case viewDetail:
		return m.detail.view()
	default:
		s := titleStyle.Render("evipack") + "\n"
		s += "Open a package:\n\n"
		s += m.input.View() + "\n\n"
		if m.err != nil {
			s += errorStyle.Render(m.err.Error()) + "\n\n"
		}
		s += subtleStyle.Render("enter: open • esc: quit")
		return s
	}
}
