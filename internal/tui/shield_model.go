// Package tui renders the live shield countdown in a terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/goodtune/kfocus/internal/bridge"
	"github.com/goodtune/kfocus/internal/clock"
	"github.com/goodtune/kfocus/internal/shield"
)

const (
	colorMuted = "#7F8C8D"
	colorText  = "#ECF0F1"
	barWidth   = 40
)

// Source is the shared state the countdown reads. *bridge.Bridge satisfies it.
type Source interface {
	ReadSnapshot(ctx context.Context) (*bridge.Snapshot, bool)
	ReadDisplayHints(ctx context.Context) (*bridge.DisplayHints, bool)
	SetFlag(ctx context.Context, flag bridge.Flag) error
}

// tickMsg re-projects the snapshot
type tickMsg struct{}

// ShieldModel is the bubbletea model of the shield countdown. It owns no
// session state; every tick re-reads the snapshot and projects it locally.
type ShieldModel struct {
	source Source
	clock  clock.Clock

	width  int
	config shield.Config
	active bool

	endRequested bool
	status       string
}

// NewShieldModel creates the countdown model.
func NewShieldModel(source Source, clk clock.Clock) ShieldModel {
	m := ShieldModel{source: source, clock: clk}
	return m.refresh()
}

// EndRequested reports whether the user asked to end the session.
func (m ShieldModel) EndRequested() bool {
	return m.endRequested
}

// Init starts the one second ticker
func (m ShieldModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Update handles messages
func (m ShieldModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m.refresh(), tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "e", "E":
			if !m.config.ShowEndEarly {
				m.status = "This session cannot be ended early"
				return m, nil
			}
			if err := m.source.SetFlag(context.Background(), bridge.FlagEndRequested); err != nil {
				m.status = fmt.Sprintf("Failed to request end: %v", err)
				return m, nil
			}
			m.endRequested = true
			m.status = "End requested"
			return m, tea.Quit
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m ShieldModel) refresh() ShieldModel {
	ctx := context.Background()
	snap, ok := m.source.ReadSnapshot(ctx)
	if !ok {
		m.active = false
		m.config = shield.Idle()
		return m
	}

	var target string
	if hints, ok := m.source.ReadDisplayHints(ctx); ok && hints.SessionID == snap.ID {
		target = hints.BlockedTargetName
	}
	m.active = true
	m.config = shield.Project(*snap, target, m.clock.Now())
	return m
}

// View renders the countdown
func (m ShieldModel) View() string {
	accent := lipgloss.Color(m.config.Accent)

	titleStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorText))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted))
	timerStyle := lipgloss.NewStyle().Foreground(accent).Bold(true).MarginTop(1).MarginBottom(1)

	lines := []string{
		titleStyle.Render(strings.ToUpper(m.config.Title)),
		subtitleStyle.Render(m.config.Subtitle),
	}
	if m.active {
		lines = append(lines,
			timerStyle.Render(shield.FormatRemaining(m.config.TimeRemaining)),
			renderBar(m.config.Progress, accent),
		)
		if m.config.Message != "" {
			lines = append(lines, "", mutedStyle.Italic(true).Render(m.config.Message))
		}
	}
	if m.status != "" {
		lines = append(lines, "", mutedStyle.Render(m.status))
	}

	help := "q quit"
	if m.config.ShowEndEarly {
		help = "e " + strings.ToLower(m.config.SecondaryButtonLabel) + " • " + help
	}
	lines = append(lines, "", mutedStyle.Render(help))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 3)
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderBar(progress float64, accent lipgloss.Color) string {
	filled := int(progress * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	done := lipgloss.NewStyle().Foreground(accent).Render(strings.Repeat("█", filled))
	rest := lipgloss.NewStyle().Foreground(lipgloss.Color(colorMuted)).Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s%s %3.0f%%", done, rest, progress*100)
}

// RunShield runs the countdown until the user quits or requests an end.
func RunShield(source Source, clk clock.Clock) (bool, error) {
	p := tea.NewProgram(NewShieldModel(source, clk), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	if m, ok := final.(ShieldModel); ok {
		return m.EndRequested(), nil
	}
	return false, nil
}
