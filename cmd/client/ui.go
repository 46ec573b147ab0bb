package main

import (
	"encoding/json"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tablesmith/holdemserver/pkg/dispatcher"
	"github.com/tablesmith/holdemserver/pkg/transport"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).MarginLeft(2)
	gameInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("140")).MarginTop(1)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model renders the event stream for one table as it arrives. It has no
// menus and sends no commands; joining, starting hands, and acting are
// pokerctl's job.
type Model struct {
	tableID string
	userID  string

	lastKind    string
	lastPayload string
	history     []string
	err         error
}

func newModel(tableID, userID string) Model {
	return Model{tableID: tableID, userID: userID}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case inboundMsg:
		m = m.applyInbound(msg.Message)
	case connectionClosedMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) applyInbound(msg transport.Message) Model {
	switch msg.Type {
	case transport.MessageEvent:
		var event dispatcher.Event
		if err := json.Unmarshal(msg.Data, &event); err == nil && event.Kind != "" {
			m.lastKind = string(event.Kind)
			m.lastPayload = fmt.Sprintf("%+v", event.Payload)
			m.history = appendCapped(m.history, fmt.Sprintf("#%d %s %v", event.SequenceNumber, event.Kind, event.Payload), 20)
		}
	case transport.MessageError:
		var body map[string]string
		if err := json.Unmarshal(msg.Data, &body); err == nil {
			m.history = appendCapped(m.history, "error: "+body["reason"], 20)
		}
	}
	return m
}

func appendCapped(lines []string, line string, max int) []string {
	lines = append(lines, line)
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Spectating table %s as %s", m.tableID, m.userID)))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("connection closed: %v", m.err)))
		b.WriteString("\n")
	}
	b.WriteString(gameInfoStyle.Render(fmt.Sprintf("last event: %s %s", m.lastKind, m.lastPayload)))
	b.WriteString("\n\n")
	for _, line := range m.history {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("q/ctrl+c to quit"))
	return b.String()
}
