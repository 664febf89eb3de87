package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/crateship/crateship/pkg/workspace"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// PackageListModel - Interactive package selection
// =============================================================================

// PackageListModel is the bubbletea model for choosing which workspace
// packages to release. All packages start checked.
type PackageListModel struct {
	Packages  []*workspace.Package
	Checked   map[int]bool
	Cursor    int
	Confirmed bool
	Height    int
	Offset    int
}

// NewPackageListModel creates a package list model with every package checked.
func NewPackageListModel(pkgs []*workspace.Package) PackageListModel {
	checked := make(map[int]bool, len(pkgs))
	for i := range pkgs {
		checked[i] = true
	}
	return PackageListModel{
		Packages: pkgs,
		Checked:  checked,
		Height:   15,
	}
}

func (m PackageListModel) Init() tea.Cmd {
	return nil
}

func (m PackageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case " ":
			m.Checked[m.Cursor] = !m.Checked[m.Cursor]
		case "a":
			for i := range m.Packages {
				m.Checked[i] = true
			}
		case "n":
			for i := range m.Packages {
				m.Checked[i] = false
			}
		case "enter":
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m PackageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Packages"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ␣ toggle  a all  n none  ⏎ confirm  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Packages) {
		end = len(m.Packages)
	}

	for i := m.Offset; i < end; i++ {
		p := m.Packages[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		check := "[ ]"
		if m.Checked[i] {
			check = "[x]"
		}

		line := fmt.Sprintf("%s%s %s %s", cursor, check, p.Name, StyleDim.Render(p.Version))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else if m.Checked[i] {
			b.WriteString(listNormalStyle.Render(line))
		} else {
			b.WriteString(listDimStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d selected]", m.countChecked(), len(m.Packages))))

	return b.String()
}

func (m PackageListModel) countChecked() int {
	n := 0
	for _, v := range m.Checked {
		if v {
			n++
		}
	}
	return n
}

// Selection returns the checked packages in their original order.
func (m PackageListModel) Selection() []*workspace.Package {
	out := make([]*workspace.Package, 0, len(m.Packages))
	for i, p := range m.Packages {
		if m.Checked[i] {
			out = append(out, p)
		}
	}
	return out
}

// selectPackages runs the interactive package picker. It returns nil (and no
// error) when the user aborts without confirming.
func selectPackages(pkgs []*workspace.Package) ([]*workspace.Package, error) {
	prog := tea.NewProgram(NewPackageListModel(pkgs))
	final, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("interactive selection failed: %w", err)
	}
	model, ok := final.(PackageListModel)
	if !ok || !model.Confirmed {
		return nil, nil
	}
	return model.Selection(), nil
}
