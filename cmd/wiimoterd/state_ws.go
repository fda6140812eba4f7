package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// Event stream WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// Watch targets fire their events into the daemon's broadcast queue; the
// broadcaster marshals them and the hub fans them out to every client.
//
//   - One slow client never blocks the others: its send queue is bounded and
//     it is disconnected when the queue fills.
//   - The daemon state is never touched from here. The initial status on
//     connect is requested through the daemon loop (RequestStatus).
//   - Messages are JSON text frames with an envelope: {type, ts, data}.
//
// ============================================================================

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// wsSessionData is the `data` payload for session_started / session_stopped.
type wsSessionData struct {
	Session string `json:"session"`
	Target  string `json:"target"`
	Reason  string `json:"reason,omitempty"`
	Polls   int    `json:"polls,omitempty"`
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	// done is closed when Run returns.
	done chan struct{}

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size. Zero picks a default.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size. Zero picks a default.
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 64
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 256
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		c.closeSend()
		delete(h.clients, c)
	}
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	// Closing send signals writePump to exit.
	c.closeSend()
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

// addClient hands c to the hub. It reports false if the hub has stopped.
func (h *Hub) addClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// dropClient asks the hub to disconnect c. It never blocks after the hub
// has stopped; by then every client is already closed.
func (h *Hub) dropClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	// mu guards closed so that trySend never races closeSend.
	mu     sync.Mutex
	closed bool

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 64
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues msg without blocking. It reports false if the client is
// already closed or its queue is full.
func (c *Client) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// closeStatus extracts a websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting (error)", "remote_addr", c.remoteAddr, "error", err)
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump reads and discards incoming messages to detect disconnects and
// handle control frames. It exits on read error, then unregisters the client.
func (c *Client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			if c.hub != nil {
				c.hub.dropClient(c)
			}
			return
		}
	}
}

// ============================================================================
// HTTP Handler
// ============================================================================

type StreamServer struct {
	logger *slog.Logger
	hub    *Hub

	// Used to request the initial status through the daemon loop.
	events chan<- Event
}

// NewStreamServer constructs the WS stream server components. Register it on
// a mux and start hub.Run(ctx) and RunBroadcaster.
func NewStreamServer(logger *slog.Logger, events chan<- Event, cfg HubConfig) *StreamServer {
	return &StreamServer{
		logger: logger,
		hub:    NewHub(logger, cfg),
		events: events,
	}
}

func (s *StreamServer) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided mux.
func (s *StreamServer) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStream)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades and registers a client, then sends status_init.
func (s *StreamServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	if !s.hub.addClient(client) {
		_ = conn.Close()
		return
	}

	// The pumps must outlive the handler: net/http cancels r.Context() when
	// the handler returns. Their lifetime is managed by the hub.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	if s.events == nil {
		return
	}

	reply := make(chan SessionSnapshot, 1)
	select {
	case <-r.Context().Done():
		return
	case s.events <- RequestStatus{Reply: reply}:
	}

	waitCtx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	select {
	case <-waitCtx.Done():
		if !errors.Is(waitCtx.Err(), context.Canceled) {
			s.logger.Warn("ws status request failed", "error", waitCtx.Err())
		}
	case snap := <-reply:
		now := time.Now().UTC()
		msg, err := json.Marshal(envelope{Type: "status_init", Ts: &now, Data: snap})
		if err != nil {
			s.logger.Warn("ws status marshal failed", "error", err)
			return
		}
		// The client may have disconnected while the status was in flight.
		if !client.trySend(msg) {
			s.hub.dropClient(client)
		}
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads daemon broadcasts, marshals them and fans them out to
// all hub clients. Intended to run as a single goroutine.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StreamBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case b, ok := <-src:
			if !ok {
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			msg, ok, err := encodeBroadcast(b)
			if err != nil {
				logger.Warn("ws broadcaster marshal failed", "error", err)
				continue
			}
			if !ok {
				// Unknown broadcasts are dropped.
				continue
			}
			hub.BroadcastBytes(msg)
		}
	}
}

// encodeBroadcast converts a daemon broadcast into a WS frame.
func encodeBroadcast(b StreamBroadcast) ([]byte, bool, error) {
	var env envelope

	switch ev := b.(type) {
	case WiiEvent:
		env.Type = "wii_event"
		env.Data = ev
		env.Ts = timestamp(ev.At)

	case SessionNotice:
		env.Type = "session_stopped"
		if ev.Started {
			env.Type = "session_started"
		}
		env.Data = wsSessionData{Session: ev.Session, Target: ev.Target, Reason: ev.Reason, Polls: ev.Polls}
		env.Ts = timestamp(ev.At)

	default:
		return nil, false, nil
	}

	msg, err := json.Marshal(env)
	if err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

// timestamp returns t in UTC, or now when t is zero.
func timestamp(t time.Time) *time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	return &t
}
