package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/config"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/infrastructure"
)

const (
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second

	// Dashboards only send heartbeats
	maxMessageSize = 512

	defaultSendQueue = 32
)

// Client is one dashboard connection. The hub owns the send channel and
// closes it on unregister; WritePump then sends a close frame and exits.
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	pingPeriod time.Duration
	pongWait   time.Duration

	logger *slog.Logger

	// Owned by the pump goroutines
	messagesSent     int64
	bytesSent        int64
	messagesReceived int64
}

// NewClient creates a client for conn. traceID is the upgrade request's ID
// and is attached to every message the hub sends this client.
func NewClient(hub *Hub, conn Connection, cfg config.WebSocketConfig, traceID string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	ping, pong := pumpTiming(cfg)
	queue := cfg.SendQueueSize
	if queue <= 0 {
		queue = defaultSendQueue
	}

	id := uuid.New().String()
	logger = infrastructure.WithComponent(logger, "websocket.client").With(slog.String("client_id", id))

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, queue),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		pingPeriod:  ping,
		pongWait:    pong,
		logger:      logger,
	}
}

// pumpTiming returns the ping period and pong wait. The ping period must be
// shorter than the pong wait; otherwise it becomes 90% of it.
func pumpTiming(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	pong = cfg.PongWait
	if pong <= 0 {
		pong = defaultPongWait
	}
	ping = cfg.PingPeriod
	if ping <= 0 || ping >= pong {
		ping = pong * 9 / 10
	}
	return ping, pong
}

// ID returns the client identifier sent in the connect message
func (c *Client) ID() string {
	return c.id
}

func (c *Client) context() context.Context {
	if c.traceID == "" {
		return context.Background()
	}
	return infrastructure.WithTraceID(context.Background(), c.traceID)
}

// ReadPump consumes inbound frames until the peer goes away, then
// unregisters the client. Pongs and {"type":"heartbeat"} messages extend the
// read deadline; other messages are counted and ignored.
func (c *Client) ReadPump() {
	ctx := c.context()
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		c.logger.InfoContext(ctx, "websocket client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
	}()

	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	}
	c.conn.SetReadLimit(maxMessageSize)
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.ErrorContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}
		c.messagesReceived++

		if isHeartbeat(data) {
			extend("")
		}
	}
}

func isHeartbeat(data []byte) bool {
	var msg struct {
		Type string `json:"type"`
	}
	return json.Unmarshal(data, &msg) == nil && msg.Type == "heartbeat"
}

// WritePump forwards queued messages to the connection and pings the peer
// every ping period.
func (c *Client) WritePump() {
	ctx := c.context()
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.InfoContext(ctx, "websocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent),
			slog.Int64("bytes_sent", c.bytesSent))
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.writeFrame(websocket.TextMessage, msg); err != nil {
				c.logger.ErrorContext(ctx, "error writing message to websocket", slog.String("error", err.Error()))
				return
			}
			c.messagesSent++
			c.bytesSent += int64(len(msg))
			c.hub.metrics.RecordMessageSent(ctx, len(msg))

		case <-ticker.C:
			if err := c.writeFrame(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "failed to send ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func (c *Client) writeFrame(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// ServeWS registers a client for an upgraded connection and starts its pumps
func ServeWS(hub *Hub, conn Connection, cfg config.WebSocketConfig, traceID string, logger *slog.Logger) *Client {
	client := NewClient(hub, conn, cfg, traceID, logger)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
	return client
}
