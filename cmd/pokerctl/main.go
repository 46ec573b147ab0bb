// Command pokerctl is an operator CLI for driving a pokersrv instance
// over its websocket endpoint: create tables, seat players, and submit
// actions from a terminal instead of a game client.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"

	"github.com/tablesmith/holdemserver/pkg/dispatcher"
	"github.com/tablesmith/holdemserver/pkg/poker"
	"github.com/tablesmith/holdemserver/pkg/transport"
)

var CLI struct {
	URL string `short:"u" long:"url" default:"ws://127.0.0.1:8080/ws" help:"pokersrv websocket endpoint"`

	CreateTable struct {
		ID         string `arg:"" help:"table ID"`
		MaxPlayers int    `default:"6"`
		SmallBlind int64  `default:"10"`
		BigBlind   int64  `default:"20"`
	} `cmd:"" help:"create a table"`

	Join struct {
		Table string `arg:"" help:"table ID"`
		User  string `arg:"" help:"user ID"`
		BuyIn int64  `default:"1000"`
	} `cmd:"" help:"seat a player at a table"`

	Start struct {
		Table string `arg:"" help:"table ID"`
		User  string `arg:"" help:"requesting user ID"`
	} `cmd:"" help:"start a hand"`

	Act struct {
		Table  string `arg:"" help:"table ID"`
		User   string `arg:"" help:"acting user ID"`
		Kind   string `arg:"" help:"fold|check|call|raise|allin"`
		Amount int64  `default:"0"`
	} `cmd:"" help:"submit a player action"`

	Ready struct {
		Table string `arg:"" help:"table ID"`
		User  string `arg:"" help:"user ID"`
		Ready bool   `default:"true" help:"ready state to set"`
	} `cmd:"" help:"mark a seated player ready (or not) for auto-start"`
}

func main() {
	ctx := kong.Parse(&CLI)

	conn, _, err := websocket.DefaultDialer.Dial(CLI.URL, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", CLI.URL, err)
		os.Exit(1)
	}
	defer conn.Close()

	var cmd dispatcher.Command
	switch ctx.Command() {
	case "create-table <id>":
		cmd = dispatcher.Command{
			Kind: dispatcher.CmdCreateTable, TableID: CLI.CreateTable.ID,
			MaxPlayers: CLI.CreateTable.MaxPlayers, SmallBlind: CLI.CreateTable.SmallBlind, BigBlind: CLI.CreateTable.BigBlind,
		}
	case "join <table> <user>":
		cmd = dispatcher.Command{Kind: dispatcher.CmdJoinTable, TableID: CLI.Join.Table, UserID: CLI.Join.User, BuyIn: CLI.Join.BuyIn}
	case "start <table> <user>":
		cmd = dispatcher.Command{Kind: dispatcher.CmdStartHand, TableID: CLI.Start.Table, ByUserID: CLI.Start.User}
	case "act <table> <user> <kind>":
		cmd = dispatcher.Command{
			Kind: dispatcher.CmdPlayerAction, TableID: CLI.Act.Table, UserID: CLI.Act.User,
			ActionKind: actionKind(CLI.Act.Kind), Amount: CLI.Act.Amount,
		}
	case "ready <table> <user>":
		cmd = dispatcher.Command{Kind: dispatcher.CmdPlayerReady, TableID: CLI.Ready.Table, UserID: CLI.Ready.User, Ready: CLI.Ready.Ready}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", ctx.Command())
		os.Exit(2)
	}

	sendCommand(conn, cmd)
	printReplies(conn)
}

func actionKind(s string) poker.ActionKind {
	switch s {
	case "fold":
		return poker.ActionFold
	case "check":
		return poker.ActionCheck
	case "call":
		return poker.ActionCall
	case "raise":
		return poker.ActionRaise
	case "allin":
		return poker.ActionAllIn
	default:
		return poker.ActionKind(s)
	}
}

func sendCommand(conn *websocket.Conn, cmd dispatcher.Command) {
	data, err := json.Marshal(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal command: %v\n", err)
		os.Exit(1)
	}
	msg := transport.Message{Type: transport.MessageCommand, Data: data}
	if err := conn.WriteJSON(msg); err != nil {
		fmt.Fprintf(os.Stderr, "send command: %v\n", err)
		os.Exit(1)
	}
}

// printReplies prints every reply received within a short window: the
// command's own Ack plus any events already queued for the session
// (e.g. StartHand's cascade of deal/blind events).
func printReplies(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg transport.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		fmt.Printf("%s: %s\n", msg.Type, string(msg.Data))
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	}
}
