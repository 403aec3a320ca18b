package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dlgforge/dlgforge/pkg/dlg"
	apperrors "github.com/dlgforge/dlgforge/pkg/errors"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// NodePickerModel - Interactive node selection
// =============================================================================

// nodeItem is one selectable row. A nil node is allowed for sentinel rows
// such as "attach as conversation start".
type nodeItem struct {
	node  *dlg.Node
	label string
}

// NodePickerModel is the bubbletea model for interactive node selection.
type NodePickerModel struct {
	Title    string
	Items    []nodeItem
	Cursor   int
	Selected *nodeItem
}

// NewNodePickerModel creates a new node picker model.
func NewNodePickerModel(title string, items []nodeItem) NodePickerModel {
	return NodePickerModel{Title: title, Items: items}
}

func (m NodePickerModel) Init() tea.Cmd {
	return nil
}

func (m NodePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.Items)-1 {
				m.Cursor++
			}
		case "enter":
			m.Selected = &m.Items[m.Cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m NodePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("arrows: navigate  enter: select  q: quit"))
	b.WriteString("\n\n")

	for i, it := range m.Items {
		cursor := "  "
		if i == m.Cursor {
			cursor = "> "
		}
		line := cursor + it.label
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// pickItem runs the picker and returns the chosen row. Quitting without
// choosing is reported as a cancellation.
func pickItem(title string, items []nodeItem) (*nodeItem, error) {
	res, err := tea.NewProgram(NewNodePickerModel(title, items)).Run()
	if err != nil {
		return nil, fmt.Errorf("run picker: %w", err)
	}
	final, ok := res.(NodePickerModel)
	if !ok || final.Selected == nil {
		return nil, apperrors.New(apperrors.ErrCodeCancelled, "selection cancelled")
	}
	return final.Selected, nil
}

// =============================================================================
// Labels
// =============================================================================

// nodeLabel renders one row: stable address plus display text.
func nodeLabel(c *dlg.Conversation, n *dlg.Node) string {
	return fmt.Sprintf("%-9s %s", nodeRef(c, n), nodeText(n))
}

// nodeRef renders n's address as kind:index. Collection position is how
// the binary format itself addresses nodes, so a ref printed by one
// invocation stays valid for the next as long as the file is unchanged.
func nodeRef(c *dlg.Conversation, n *dlg.Node) string {
	list := c.Entries
	if n.Kind == dlg.KindReply {
		list = c.Replies
	}
	if i := slices.Index(list, n); i >= 0 {
		return fmt.Sprintf("%s:%d", n.Kind, i)
	}
	return n.ID.String()[:8]
}

const labelTextMax = 40

// nodeText resolves display text with rune-safe truncation, falling back
// to the string-table reference for nodes with no embedded text.
func nodeText(n *dlg.Node) string {
	s, ok := n.Text.Resolve(0)
	if !ok {
		if n.Text.StrRef != dlg.NoStrRef {
			return fmt.Sprintf("[strref %d]", n.Text.StrRef)
		}
		return "[no text]"
	}
	if r := []rune(s); len(r) > labelTextMax {
		return string(r[:labelTextMax-1]) + "…"
	}
	return s
}
