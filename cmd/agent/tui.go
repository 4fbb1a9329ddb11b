package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brensch/kickoff/agent"
)

var (
	styleTitle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleHeader = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Bold(true)

	stylePlaying = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	styleStopped = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	styleHint = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

type statusModel struct {
	team      string
	stats     func() []agent.Stats
	rows      []agent.Stats
	startTime time.Time
	width     int
}

func newStatusModel(team string, stats func() []agent.Stats) statusModel {
	return statusModel{
		team:      team,
		stats:     stats,
		rows:      stats(),
		startTime: time.Now(),
		width:     80,
	}
}

func (m statusModel) Init() tea.Cmd {
	return tickCmd()
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case TickMsg:
		m.rows = m.stats()
		return m, tickCmd()
	}
	return m, nil
}

func (m statusModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf(" %s | %d players | up %s ", m.team, len(m.rows), time.Since(m.startTime).Round(time.Second))
	b.WriteString(styleTitle.Width(m.width).Render(title))
	b.WriteString("\n\n")

	b.WriteString(styleHeader.Render(fmt.Sprintf("%-3s %-13s %-5s %-4s %-22s %6s %9s %7s %6s %7s",
		"#", "state", "side", "unum", "play mode", "time", "datagrams", "thinks", "sent", "dropped")))
	b.WriteString("\n")
	for i, st := range m.rows {
		line := fmt.Sprintf("%-3d %-13s %-5s %-4d %-22s %6d %9d %7d %6d %7d",
			i+1, st.State, string(st.Side), st.Unum, string(st.PlayMode), st.Time,
			st.Datagrams, st.Thinks, st.Commands.Sent, st.Commands.Dropped)
		if st.State == agent.Playing.String() {
			line = stylePlaying.Render(line)
		} else {
			line = styleStopped.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styleHint.Render("Press q to quit."))
	b.WriteString("\n")
	return b.String()
}

// runTUI shows the status table until the user quits, the context ends or
// every player has stopped.
func runTUI(ctx context.Context, t *team) error {
	p := tea.NewProgram(newStatusModel(t.teamName(), t.stats), tea.WithAltScreen())
	go func() {
		select {
		case <-ctx.Done():
		case <-t.allDone():
		}
		p.Quit()
	}()
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("status view: %w", err)
	}
	return nil
}
