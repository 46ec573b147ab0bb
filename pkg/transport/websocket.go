// Package transport adapts the dispatcher's Command/Event contract to a
// websocket wire format, following the connection/send-channel/pump
// pattern used across the example corpus's websocket servers.
package transport

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"

	"github.com/tablesmith/holdemserver/pkg/dispatcher"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// MessageType identifies the shape of an inbound or outbound websocket
// frame.
type MessageType string

const (
	MessageCommand   MessageType = "command"
	MessageSubscribe MessageType = "subscribe"
	MessageEvent     MessageType = "event"
	MessageError     MessageType = "error"
)

// SubscribeRequest is the MessageSubscribe payload: a read-only
// subscription that bypasses Submit entirely, for spectators who never
// occupy a seat.
type SubscribeRequest struct {
	TableID       string `json:"tableId"`
	UserID        string `json:"userId"`
	SinceSequence int64  `json:"sinceSequence"`
}

// Message is the wire envelope: Data holds either a dispatcher.Command
// (inbound) or, outbound, a dispatcher.Event, a dispatcher.Ack (sent as
// MessageEvent) or an error object {"reason": ...}; it stays opaque JSON
// until the handler for Type unmarshals it.
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Connection is one client's websocket session: a readPump decoding
// inbound commands and a writePump draining a buffered send channel, so a
// slow client never blocks command application upstream.
type Connection struct {
	conn     *websocket.Conn
	send     chan Message
	registry *dispatcher.Registry
	log      slog.Logger

	userID  string
	tableID string

	unsubscribe func()

	closeOnce sync.Once
}

// NewConnection wraps an upgraded websocket connection.
func NewConnection(conn *websocket.Conn, registry *dispatcher.Registry, log slog.Logger) *Connection {
	return &Connection{
		conn:     conn,
		send:     make(chan Message, 256),
		registry: registry,
		log:      log,
	}
}

// Serve upgrades an HTTP request and runs the connection's pumps until it
// closes. Intended as an http.HandlerFunc.
func Serve(registry *dispatcher.Registry, log slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Errorf("websocket upgrade failed: %v", err)
			return
		}
		c := NewConnection(conn, registry, log)
		go c.writePump()
		c.readPump()
	}
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.unsubscribe != nil {
			c.unsubscribe()
		}
		close(c.send)
		c.conn.Close()
	})
}

func (c *Connection) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Debugf("websocket read error: %v", err)
			}
			return
		}
		c.handleInbound(msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.Debugf("websocket write error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleInbound(msg Message) {
	switch msg.Type {
	case MessageCommand:
		var cmd dispatcher.Command
		if err := json.Unmarshal(msg.Data, &cmd); err != nil {
			c.sendError("invalid command payload")
			return
		}
		if cmd.Kind == dispatcher.CmdJoinTable || cmd.Kind == dispatcher.CmdPlayerAction || cmd.Kind == dispatcher.CmdLeaveTable || cmd.Kind == dispatcher.CmdPlayerReady {
			c.userID = cmd.UserID
			c.tableID = cmd.TableID
		}
		ack, err := c.registry.Submit(cmd)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.sendJSON(MessageEvent, ack)

		if cmd.Kind == dispatcher.CmdJoinTable && c.unsubscribe == nil {
			c.subscribeToTable(cmd.TableID, cmd.UserID, 0)
		}
	case MessageSubscribe:
		var req SubscribeRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError("invalid subscribe payload")
			return
		}
		c.userID, c.tableID = req.UserID, req.TableID
		c.subscribeToTable(req.TableID, req.UserID, req.SinceSequence)
	default:
		c.sendError("unknown message type")
	}
}

func (c *Connection) subscribeToTable(tableID, userID string, sinceSequence int64) {
	actor, ok := c.registry.Lookup(tableID)
	if !ok {
		c.sendError("table not found")
		return
	}
	events, cancel, err := actor.Subscribe(userID, sinceSequence)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.unsubscribe = cancel

	go func() {
		for e := range events {
			c.sendJSON(MessageEvent, e)
		}
	}()
}

func (c *Connection) sendJSON(t MessageType, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Errorf("marshal outbound message: %v", err)
		return
	}
	select {
	case c.send <- Message{Type: t, Data: data}:
	default:
		c.log.Warnf("send buffer full for user %s, dropping message", c.userID)
	}
}

func (c *Connection) sendError(reason string) {
	c.sendJSON(MessageError, map[string]string{"reason": reason})
}
