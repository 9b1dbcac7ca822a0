// Package picker is the interactive theme selector started by running
// themeplane without arguments.
package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"themeplane/model"
	"themeplane/theme"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
)

// ApplyFunc activates a theme.
type ApplyFunc func(ctx context.Context, id string) (*model.Activation, error)

// Item is one theme in the list.
type Item struct {
	Theme    theme.Theme
	Active   bool
	LastUsed time.Time
}

func (i Item) FilterValue() string { return i.Theme.Name + " " + i.Theme.ID }

func (i Item) Title() string {
	if i.Active {
		return "● " + i.Theme.Name
	}
	return "  " + i.Theme.Name
}

func (i Item) Description() string {
	parts := []string{i.Theme.ID}
	if i.Theme.Description != "" {
		parts = append(parts, i.Theme.Description)
	}
	if !i.LastUsed.IsZero() {
		parts = append(parts, "used "+humanize.Time(i.LastUsed))
	}
	return "  " + strings.Join(parts, " • ")
}

type appliedMsg struct {
	id  string
	rec *model.Activation
	err error
}

// Model is the bubbletea model of the picker.
type Model struct {
	ctx      context.Context
	list     list.Model
	apply    ApplyFunc
	applying string
	status   string
	err      error
	applied  *model.Activation
	quitting bool
}

// New builds a picker over themes. active is the identifier of the active
// theme and lastUsed maps identifiers to their last activation.
func New(ctx context.Context, themes []theme.Theme, active string, lastUsed map[string]time.Time, apply ApplyFunc) Model {
	items := make([]list.Item, len(themes))
	selected := 0
	for i, t := range themes {
		items[i] = Item{Theme: t, Active: t.ID == active, LastUsed: lastUsed[t.ID]}
		if t.ID == active {
			selected = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select theme"
	l.Styles.Title = titleStyle
	l.SetFilteringEnabled(true)
	l.SetShowStatusBar(true)
	l.Select(selected)

	return Model{ctx: ctx, list: l, apply: apply}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-1)
		return m, nil

	case appliedMsg:
		m.applying = ""
		m.applied = msg.rec
		m.err = msg.err
		if msg.err != nil && (msg.rec == nil || !msg.rec.Succeeded()) {
			return m, nil
		}
		m.markActive(msg.id)
		m.status = fmt.Sprintf("Applied %s", msg.id)
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		if m.applying != "" {
			if msg.String() == "ctrl+c" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			item, ok := m.list.SelectedItem().(Item)
			if !ok {
				return m, nil
			}
			m.applying = item.Theme.ID
			m.err = nil
			m.status = fmt.Sprintf("Applying %s...", item.Theme.Name)
			return m, m.applyCmd(item.Theme.ID)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) applyCmd(id string) tea.Cmd {
	ctx := m.ctx
	apply := m.apply
	return func() tea.Msg {
		rec, err := apply(ctx, id)
		return appliedMsg{id: id, rec: rec, err: err}
	}
}

func (m *Model) markActive(id string) {
	items := m.list.Items()
	for i, it := range items {
		item, ok := it.(Item)
		if !ok {
			continue
		}
		item.Active = item.Theme.ID == id
		if item.Active {
			item.LastUsed = time.Now()
		}
		m.list.SetItem(i, item)
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	return docStyle.Render(b.String())
}

// Applied returns the activation performed by the picker, if any.
func (m Model) Applied() (*model.Activation, error) {
	return m.applied, m.err
}

// Run shows the picker until a theme is applied or the user quits.
func Run(ctx context.Context, m Model) (*model.Activation, error) {
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return nil, fmt.Errorf("run picker: %w", err)
	}
	return final.(Model).Applied()
}
