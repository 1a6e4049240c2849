package network

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/engine"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/metrics"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/optimization"
)

// DefaultBroadcastInterval is the shortest gap between two state pushes.
const DefaultBroadcastInterval = 250 * time.Millisecond

// Server message types.
const (
	MessageState    = "state"
	MessageError    = "error"
	MessagePurchase = "purchase"
	MessageSaved    = "saved"
)

// ServerMessage is every frame the server writes to a websocket.
type ServerMessage struct {
	Type     string           `json:"type"`
	State    *engine.Snapshot `json:"state,omitempty"`
	Purchase *engine.Purchase `json:"purchase,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Register errors.
var (
	ErrHubFull    = errors.New("too many clients")
	ErrHubStopped = errors.New("hub stopped")
)

type registration struct {
	client *Client
	result chan error
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub maintains the set of active clients and pushes manager state to them.
// Changes are coalesced: at most one state message per interval.
type Hub struct {
	clients    map[*Client]bool
	register   chan registration
	unregister chan *Client
	direct     chan directMessage
	dirty      chan struct{}
	done       chan struct{}
	mu         sync.Mutex

	manager    *engine.Manager
	interval   time.Duration
	sendBuffer int
	maxClients int
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes a new WebSocket Hub. A non-positive interval uses DefaultBroadcastInterval.
func NewHub(m *engine.Manager, interval time.Duration, log *logger.Logger, mc *metrics.Collector) *Hub {
	if interval <= 0 {
		interval = DefaultBroadcastInterval
	}
	if log == nil {
		log = logger.NewNop()
	}
	if mc == nil {
		mc = metrics.Get()
	}
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan registration),
		unregister: make(chan *Client),
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		manager:    m,
		interval:   interval,
		logger:     log,
		metrics:    mc,
	}
	return h.WithTuning(optimization.DefaultConfig())
}

// WithTuning applies buffer sizes and the client limit. Call it before Run.
func (h *Hub) WithTuning(t *optimization.Config) *Hub {
	direct := t.DirectBuffer
	if direct <= 0 {
		direct = optimization.DefaultConfig().DirectBuffer
	}
	h.direct = make(chan directMessage, direct)
	h.sendBuffer = t.ClientSendBuffer
	if h.sendBuffer <= 0 {
		h.sendBuffer = optimization.DefaultConfig().ClientSendBuffer
	}
	h.maxClients = t.MaxClients
	return h
}

// Run starts the Hub's main loop. It returns when ctx is done, closing every client.
func (h *Hub) Run(ctx context.Context) {
	unsubscribe := h.manager.Subscribe(func(engine.Snapshot) { h.markDirty() })
	defer unsubscribe()
	defer close(h.done)

	flush := time.NewTicker(h.interval)
	defer flush.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub shutting down")
			return
		case reg := <-h.register:
			h.mu.Lock()
			full := h.maxClients > 0 && len(h.clients) >= h.maxClients
			if !full {
				h.clients[reg.client] = true
			}
			h.mu.Unlock()
			if full {
				h.metrics.RecordWSRejected()
				h.logger.Warn("WebSocket client rejected, hub is full", zap.Int("max_clients", h.maxClients))
				reg.result <- ErrHubFull
				continue
			}
			reg.result <- nil
			h.metrics.RecordWSConnection(1)
			h.logger.Info("WebSocket client connected")
			if payload, err := h.stateMessage(); err == nil {
				h.deliver(reg.client, payload)
			}
		case client := <-h.unregister:
			h.drop(client)
		case msg := <-h.direct:
			h.deliver(msg.client, msg.payload)
		case <-h.dirty:
			pending = true
		case <-flush.C:
			if !pending {
				continue
			}
			pending = false
			payload, err := h.stateMessage()
			if err != nil {
				h.logger.Error("Failed to serialize state for broadcast", zap.Error(err))
				continue
			}
			h.mu.Lock()
			targets := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				targets = append(targets, client)
			}
			h.mu.Unlock()
			for _, client := range targets {
				h.deliver(client, payload)
			}
		}
	}
}

func (h *Hub) markDirty() {
	select {
	case h.dirty <- struct{}{}:
	default:
	}
}

func (h *Hub) stateMessage() ([]byte, error) {
	s := h.manager.Snapshot()
	return json.Marshal(ServerMessage{Type: MessageState, State: &s})
}

// deliver queues payload for client, dropping clients whose buffer is full.
// Only the Run goroutine calls it.
func (h *Hub) deliver(client *Client, payload []byte) {
	h.mu.Lock()
	_, ok := h.clients[client]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case client.send <- payload:
		h.metrics.RecordWSMessage(false)
	default:
		h.logger.Warn("WebSocket client too slow, dropping it")
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("WebSocket client disconnected")
	}
}

// Register adds a client. It fails with ErrHubFull when the client limit is
// reached and with ErrHubStopped once Run has returned.
func (h *Hub) Register(c *Client) error {
	reg := registration{client: c, result: make(chan error, 1)}
	select {
	case h.register <- reg:
		return <-reg.result
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Send queues a message for a single client.
func (h *Hub) Send(c *Client, msg ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to serialize message", zap.Error(err))
		return
	}
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

// Full reports whether the client limit is reached. Register enforces the limit;
// Full only lets callers refuse early.
func (h *Hub) Full() bool {
	return h.maxClients > 0 && h.ClientCount() >= h.maxClients
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
