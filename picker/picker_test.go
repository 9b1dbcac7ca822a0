package picker

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"themeplane/model"
	"themeplane/theme"
)

func testThemes() []theme.Theme {
	return []theme.Theme{
		{ID: "gruvbox", Name: "Gruvbox"},
		{ID: "nord", Name: "Nord", Description: "Arctic, north-bluish"},
	}
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestItemText(t *testing.T) {
	item := Item{Theme: testThemes()[1], Active: true, LastUsed: time.Now().Add(-2 * time.Hour)}

	assert.Equal(t, "● Nord", item.Title())
	assert.Contains(t, item.Description(), "Arctic, north-bluish")
	assert.Contains(t, item.Description(), "2 hours ago")
	assert.Contains(t, item.FilterValue(), "nord")
}

func TestEnterAppliesSelectedTheme(t *testing.T) {
	var applied []string
	apply := func(_ context.Context, id string) (*model.Activation, error) {
		applied = append(applied, id)
		return &model.Activation{Theme: id, Outcome: model.OutcomeApplied}, nil
	}
	m := sized(t, New(context.Background(), testThemes(), "nord", nil, apply))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, "nord", m.applying)

	next, cmd = m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, []string{"nord"}, applied)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	rec, err := m.Applied()
	require.NoError(t, err)
	assert.Equal(t, "nord", rec.Theme)
}

func TestFailedApplyKeepsPickerOpen(t *testing.T) {
	apply := func(_ context.Context, id string) (*model.Activation, error) {
		return &model.Activation{Theme: id, Outcome: model.OutcomeFailed}, errors.New("theme not found")
	}
	m := sized(t, New(context.Background(), testThemes(), "", nil, apply))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	next, cmd = m.Update(cmd())
	m = next.(Model)

	assert.Nil(t, cmd)
	assert.False(t, m.quitting)
	assert.Contains(t, m.View(), "theme not found")
}

func TestKeysIgnoredWhileApplying(t *testing.T) {
	calls := 0
	apply := func(_ context.Context, id string) (*model.Activation, error) {
		calls++
		return &model.Activation{Theme: id, Outcome: model.OutcomeApplied}, nil
	}
	m := sized(t, New(context.Background(), testThemes(), "", nil, apply))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Zero(t, calls)
}

func TestQuit(t *testing.T) {
	m := sized(t, New(context.Background(), testThemes(), "", nil, nil))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
	rec, err := next.(Model).Applied()
	assert.Nil(t, rec)
	assert.NoError(t, err)
}
