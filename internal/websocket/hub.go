package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
	"github.com/DefoxxAnalytics/Etn-Quarterly/pkg/contracts/events"
)

const broadcastBuffer = 64

type envelope struct {
	msgType events.MessageType
	payload []byte
}

// Hub fans dataset events out to dashboard clients. The last dataset event
// is kept and replayed to clients that connect later, so a dashboard opened
// after a load still learns the active fingerprint.
type Hub struct {
	clients     map[*Client]bool
	lastDataset []byte
	mu          sync.RWMutex

	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client

	logger  *slog.Logger
	metrics *HubMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64

	quit     chan struct{}
	done     chan struct{}
	running  bool
	stopOnce sync.Once
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithHubMetrics records connection and broadcast metrics
func WithHubMetrics(m *HubMetrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub creates a stopped hub; call Start to begin serving
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Start starts the hub loop once
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the hub and disconnects every client. It is safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})

	h.mu.RLock()
	running := h.running
	h.mu.RUnlock()
	if running {
		<-h.done
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "normal")

		case env := <-h.broadcast:
			h.fanOut(env)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	replay := h.lastDataset
	h.mu.Unlock()
	h.totalConnections.Add(1)

	ctx := client.context()
	h.metrics.RecordConnection(ctx)
	h.logger.InfoContext(ctx, "client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	payload, err := newMessage(ctx, events.MessageTypeConnect, map[string]string{
		"status":    "connected",
		"client_id": client.id,
	})
	if err != nil {
		return
	}
	for _, msg := range [][]byte{payload, replay} {
		if msg == nil {
			continue
		}
		select {
		case client.send <- msg:
		default:
			h.logger.WarnContext(ctx, "client buffer full on connect",
				slog.String("client_id", client.id))
			return
		}
	}
}

func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.RecordDisconnection(ctx, time.Since(client.connectedAt), reason)
	h.logger.InfoContext(ctx, "client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) fanOut(env envelope) {
	h.mu.Lock()
	if env.msgType.IsDataset() {
		h.lastDataset = env.payload
	}
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	ctx := context.Background()
	failCount := 0
	for _, client := range clients {
		select {
		case client.send <- env.payload:
			h.messagesSent.Add(1)
		default:
			failCount++
			h.metrics.RecordDroppedMessage(ctx, "buffer_full")
			h.removeClient(client, "buffer_full")
		}
	}

	h.metrics.RecordBroadcast(ctx, string(env.msgType), failCount)
	h.logger.Debug("broadcast",
		slog.String("type", string(env.msgType)),
		slog.Int("client_count", len(clients)),
		slog.Int("fail_count", failCount),
		slog.Int("message_size", len(env.payload)))
}

// Register adds a client. It is a no-op once the hub is stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Broadcast queues a typed message for every connected client. The message
// is dropped when the hub is stopped or its queue is full.
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data interface{}) {
	payload, err := newMessage(ctx, msgType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "error marshaling message",
			slog.String("message_type", string(msgType)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case <-h.quit:
		h.metrics.RecordDroppedMessage(ctx, "stopped")
		return
	default:
	}

	select {
	case h.broadcast <- envelope{msgType: msgType, payload: payload}:
	default:
		h.metrics.RecordDroppedMessage(ctx, "queue_full")
		h.logger.WarnContext(ctx, "broadcast queue full, message dropped",
			slog.String("message_type", string(msgType)))
	}
}

// PublishDatasetEvent broadcasts a dataset lifecycle event
func (h *Hub) PublishDatasetEvent(ctx context.Context, msgType events.MessageType, event events.DatasetEvent) {
	h.Broadcast(ctx, msgType, event)
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for the stats endpoint
func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_connections": h.ClientCount(),
		"total_connections":  h.totalConnections.Load(),
		"messages_sent":      h.messagesSent.Load(),
	}
}

func newMessage(ctx context.Context, msgType events.MessageType, data interface{}) ([]byte, error) {
	traceID := infrastructure.GetTraceID(ctx)
	if traceID == "" {
		traceID = infrastructure.TraceIDFromContext(ctx)
	}
	return json.Marshal(events.WebSocketMessage{
		BaseMessage: events.BaseMessage{
			ID:        uuid.New().String(),
			Type:      msgType,
			Timestamp: time.Now().UTC(),
			TraceID:   traceID,
		},
		Data: data,
	})
}
