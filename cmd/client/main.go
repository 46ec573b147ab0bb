// Command client is a read-only spectator TUI: it connects to a
// pokersrv websocket endpoint, subscribes to one table, and renders the
// event stream as it arrives.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/tablesmith/holdemserver/pkg/transport"
)

var CLI struct {
	URL    string `short:"u" long:"url" default:"ws://127.0.0.1:8080/ws" help:"pokersrv websocket endpoint"`
	Table  string `short:"t" long:"table" required:"" help:"table ID to spectate"`
	AsUser string `short:"i" long:"as" default:"spectator" help:"user ID to subscribe as"`
}

func main() {
	kong.Parse(&CLI)

	conn, _, err := websocket.DefaultDialer.Dial(CLI.URL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", CLI.URL, err)
		os.Exit(1)
	}
	defer conn.Close()

	model := newModel(CLI.Table, CLI.AsUser)
	program := tea.NewProgram(model, tea.WithAltScreen())

	go pump(conn, program)
	go sendJoinAsSpectator(conn, CLI.Table, CLI.AsUser)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}

// pump forwards every inbound websocket frame into the bubbletea program
// as a tea.Msg; Update owns all model mutation, keeping this goroutine a
// pure relay.
func pump(conn *websocket.Conn, program *tea.Program) {
	for {
		var msg transport.Message
		if err := conn.ReadJSON(&msg); err != nil {
			program.Send(connectionClosedMsg{err: err})
			return
		}
		program.Send(inboundMsg{msg})
	}
}

type inboundMsg struct{ transport.Message }
type connectionClosedMsg struct{ err error }

func sendJoinAsSpectator(conn *websocket.Conn, tableID, userID string) {
	data, err := json.Marshal(transport.SubscribeRequest{TableID: tableID, UserID: userID})
	if err != nil {
		return
	}
	conn.WriteJSON(transport.Message{Type: transport.MessageSubscribe, Data: data})
}
