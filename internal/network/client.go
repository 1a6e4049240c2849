package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Time allowed for one player action, saves included.
	actionTimeout = 5 * time.Second
)

// Client action types.
const (
	ActionClick = "CLICK"
	ActionBuy   = "BUY"
	ActionSave  = "SAVE"
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type      string `json:"type"`                // CLICK, BUY, SAVE
	Generator int    `json:"generator,omitempty"` // BUY only
	Count     int    `json:"count,omitempty"`     // BUY only; 0 means 1
	Max       bool   `json:"max,omitempty"`       // BUY only; buy as many as affordable
}

// Client is one websocket connection.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

// NewClient creates a new WebSocket client allowing perSecond actions with the given burst.
// A non-positive rate disables limiting.
func NewClient(hub *Hub, conn *websocket.Conn, perSecond float64, burst int) *Client {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, hub.sendBuffer),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ReadPump pumps actions from the websocket connection to the manager.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(bytes.TrimSpace(message), &action); err != nil {
			c.hub.Send(c, ServerMessage{Type: MessageError, Error: "malformed action"})
			continue
		}
		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	if !c.limiter.Allow() {
		c.hub.metrics.RecordRateLimited()
		c.hub.Send(c, ServerMessage{Type: MessageError, Error: "rate limit exceeded"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()
	m := c.hub.manager

	switch action.Type {
	case ActionClick:
		m.Click()
	case ActionBuy:
		var p engine.Purchase
		var err error
		switch {
		case action.Max:
			p, err = m.BuyMaxGenerators(ctx, action.Generator)
		case action.Count == 0:
			p, err = m.BuyGenerator(ctx, action.Generator)
		default:
			p, err = m.BuyGenerators(ctx, action.Generator, action.Count)
		}
		if err != nil {
			c.hub.Send(c, ServerMessage{Type: MessageError, Error: err.Error()})
			return
		}
		c.hub.Send(c, ServerMessage{Type: MessagePurchase, Purchase: &p})
	case ActionSave:
		if err := m.Save(ctx); err != nil {
			c.hub.Send(c, ServerMessage{Type: MessageError, Error: "save failed"})
			return
		}
		c.hub.Send(c, ServerMessage{Type: MessageSaved})
	default:
		c.hub.logger.Warn("Unknown PlayerAction type", zap.String("type", action.Type))
		c.hub.Send(c, ServerMessage{Type: MessageError, Error: "unknown action " + action.Type})
	}
}

// WritePump pumps messages from the hub to the websocket connection.
// Each message is its own frame so clients can decode them one by one.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.hub.metrics.RecordWSError()
				}
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
