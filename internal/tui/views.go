package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/evipack/evipack/internal/pack"
)

// caseListModel renders the package's test cases in execution-time order,
// matching the positions the CLI's case references use.
type caseListModel struct {
	pkg    *pack.Package
	cases  []*pack.TestCase
	cursor int
	width  int
	height int
}

func newCaseListModel(p *pack.Package, width, height int) caseListModel {
	return caseListModel{
		pkg:    p,
		cases:  p.CasesByExecutionTime(),
		width:  width,
		height: height,
	}
}

func (m *caseListModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

func (m caseListModel) selected() (*pack.TestCase, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cases) {
		return nil, false
	}
	return m.cases[m.cursor], true
}

func (m caseListModel) update(msg tea.Msg) (caseListModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.cases)-1 {
				m.cursor++
			}
		}
	}
	return m, nil
}

func (m caseListModel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.pkg.Title()) + "\n")
	if desc := m.pkg.Description(); desc != "" {
		b.WriteString(subtleStyle.Render(desc) + "\n")
	}
	b.WriteString("\n")

	if len(m.cases) == 0 {
		b.WriteString(subtleStyle.Render("No test cases.") + "\n")
	}
	for i, tc := range m.cases {
		line := fmt.Sprintf("%s %s", statusGlyph(tc.Status), tc.Title)
		if i == m.cursor {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + subtleStyle.Render("↑/↓: move • enter: inspect • q: quit"))
	return b.String()
}

func statusGlyph(s pack.Status) string {
	switch s {
	case pack.StatusPassed:
		return passedStyle.Render("✓")
	case pack.StatusFailed:
		return failedStyle.Render("✗")
	default:
		return subtleStyle.Render("·")
	}
}

// caseDetailModel renders a single test case and its evidence inside a
// scrollable viewport.
type caseDetailModel struct {
	tc *pack.TestCase
	vp viewport.Model
}

func newCaseDetailModel(p *pack.Package, tc *pack.TestCase, width, height int) caseDetailModel {
	vp := viewport.New(width, height-2)
	vp.SetContent(renderCase(p, tc))
	return caseDetailModel{tc: tc, vp: vp}
}

func (m *caseDetailModel) setSize(width, height int) {
	m.vp.Width = width
	m.vp.Height = height - 2
}

func (m caseDetailModel) update(msg tea.Msg) (caseDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m caseDetailModel) view() string {
	footer := subtleStyle.Render("↑/↓: scroll • esc: back • q: quit")
	return m.vp.View() + "\n" + footer
}

func renderCase(p *pack.Package, tc *pack.TestCase) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(tc.Title) + "\n")
	b.WriteString(fmt.Sprintf("%s %s", statusGlyph(tc.Status), statusText(tc.Status)))
	if !tc.ExecutedAt.IsZero() {
		b.WriteString(subtleStyle.Render("  executed " + tc.ExecutedAt.Format("2006-01-02 15:04")))
	}
	b.WriteString("\n")

	if len(tc.Fields) > 0 {
		b.WriteString("\n")
		for name, value := range tc.Fields {
			b.WriteString(fmt.Sprintf("%s: %s\n", subtleStyle.Render(name), value))
		}
	}

	if len(tc.Evidence) == 0 {
		b.WriteString("\n" + subtleStyle.Render("No evidence recorded."))
		return b.String()
	}

	for i, ev := range tc.Evidence {
		b.WriteString("\n" + subtleStyle.Render(fmt.Sprintf("── evidence %d (%s) ──", i+1, ev.Kind)) + "\n")
		if ev.Caption != "" {
			b.WriteString(ev.Caption + "\n")
		}
		b.WriteString(renderEvidence(p, ev))
	}
	return b.String()
}

func renderEvidence(p *pack.Package, ev pack.Evidence) string {
	data, err := p.EvidenceData(ev)
	if err != nil {
		return errorStyle.Render("unavailable: "+err.Error()) + "\n"
	}
	switch ev.Kind {
	case pack.EvidenceImage:
		mime := "image"
		if hash, ok := ev.Value.MediaHash(); ok {
			for _, entry := range p.MediaEntries() {
				if entry.Hash == hash {
					mime = entry.Mime
					break
				}
			}
		}
		return subtleStyle.Render(fmt.Sprintf("[%s, %d bytes]", mime, len(data))) + "\n"
	case pack.EvidenceFile:
		return subtleStyle.Render(fmt.Sprintf("[file %s, %d bytes]", ev.Filename, len(data))) + "\n"
	default:
		return string(data) + "\n"
	}
}

func statusText(s pack.Status) string {
	switch s {
	case pack.StatusPassed:
		return "passed"
	case pack.StatusFailed:
		return "failed"
	default:
		return "not run"
	}
}
