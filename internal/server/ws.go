package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/config"
	apperrors "github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/errors"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/fight"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/perspective"
	"github.com/Vap0r1ze/inscrybe-with-friends-sub000/internal/game/rules"
)

// Message types on the WebSocket.
const (
	MessageSync     = "sync"
	MessagePacket   = "packet"
	MessageError    = "error"
	MessageAction   = "action"
	MessageResponse = "response"
)

const sendBuffer = 64

// ClientMessage is what a player sends: an action or a response.
type ClientMessage struct {
	Type     string          `json:"type"`
	Action   *game.Action    `json:"action,omitempty"`
	Response *rules.Response `json:"response,omitempty"`
}

// ServerMessage is what the hub sends: the initial sync view, packets and
// rejections.
type ServerMessage struct {
	Type   string            `json:"type"`
	View   *perspective.View `json:"view,omitempty"`
	Packet *game.Packet      `json:"packet,omitempty"`
	Error  *WireError        `json:"error,omitempty"`
}

// WireError is a rejected command.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Connection is one player socket bound to a battle side. send is only written
// while the hub lock is held and only closed under the write lock.
type Connection struct {
	ws       *websocket.Conn
	send     chan []byte
	battleID string
	side     fight.Side
	once     sync.Once
}

func (c *Connection) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub routes engine packets to the sockets watching each battle side.
type Hub struct {
	engine   *game.Engine
	cfg      config.WebSocketConfig
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	battles map[string]map[*Connection]struct{}
}

// NewHub creates a hub and installs it as the engine's packet handler.
func NewHub(engine *game.Engine, cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		engine:  engine,
		cfg:     cfg,
		logger:  logger,
		battles: make(map[string]map[*Connection]struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	engine.SetPacketHandler(h.Publish)
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// Publish queues a packet for every connection on its battle side. A connection
// whose buffer is full is dropped rather than blocking the engine.
func (h *Hub) Publish(p game.Packet) {
	data, err := json.Marshal(ServerMessage{Type: MessagePacket, Packet: &p})
	if err != nil {
		h.logger.Error("failed to encode packet", zap.String("battle_id", p.BattleID), zap.Error(err))
		return
	}

	h.mu.RLock()
	var slow []*Connection
	for c := range h.battles[p.BattleID] {
		if c.side != p.Side {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow connection",
			zap.String("battle_id", c.battleID),
			zap.Stringer("side", c.side))
		h.unregister(c)
	}
}

// Connections counts the sockets watching a battle.
func (h *Hub) Connections(battleID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.battles[battleID])
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.battles[c.battleID]
	if !ok {
		conns = make(map[*Connection]struct{})
		h.battles[c.battleID] = conns
	}
	conns[c] = struct{}{}
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.battles[c.battleID]
	if _, ok := conns[c]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.battles, c.battleID)
		}
	}
	c.close()
}

// ServeHTTP upgrades /ws?battle=<id>&side=<0|1> and serves the socket.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	battleID := r.URL.Query().Get("battle")
	side, err := strconv.Atoi(r.URL.Query().Get("side"))
	if battleID == "" || err != nil || !fight.Side(side).Valid() {
		http.Error(w, "battle and side (0 or 1) are required", http.StatusBadRequest)
		return
	}
	if _, err := h.engine.View(r.Context(), battleID, fight.Side(side)); err != nil {
		if errors.Is(err, game.ErrHostNotFound) {
			http.Error(w, "battle not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load battle", http.StatusInternalServerError)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Connection{
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		battleID: battleID,
		side:     fight.Side(side),
	}
	h.register(c)
	h.logger.Info("player connected",
		zap.String("battle_id", battleID),
		zap.Int("side", side),
		zap.String("remote", r.RemoteAddr))

	// Registered before the view is read so no packet falls between the two.
	view, err := h.engine.View(context.Background(), battleID, c.side)
	if err != nil {
		h.unregister(c)
		ws.Close()
		return
	}
	h.enqueue(c, ServerMessage{Type: MessageSync, View: &view})

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) enqueue(c *Connection, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}

	h.mu.RLock()
	_, live := h.battles[c.battleID][c]
	full := false
	if live {
		select {
		case c.send <- data:
		default:
			full = true
		}
	}
	h.mu.RUnlock()
	if full {
		h.unregister(c)
	}
}

// readLoop routes client messages to the engine until the socket closes.
func (h *Hub) readLoop(c *Connection) {
	defer func() {
		h.unregister(c)
		c.ws.Close()
		h.logger.Info("player disconnected",
			zap.String("battle_id", c.battleID),
			zap.Stringer("side", c.side))
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.enqueue(c, errorMessage(apperrors.InvalidAction("malformed message: %v", err)))
			continue
		}

		ctx := context.Background()
		switch {
		case msg.Type == MessageAction && msg.Action != nil:
			_, err = h.engine.Apply(ctx, c.battleID, c.side, *msg.Action)
		case msg.Type == MessageResponse && msg.Response != nil:
			_, err = h.engine.Respond(ctx, c.battleID, c.side, *msg.Response)
		default:
			err = apperrors.InvalidAction("unknown message type %q", msg.Type)
		}
		if err != nil {
			h.enqueue(c, errorMessage(err))
		}
	}
}

// writeLoop drains the send buffer and keeps the socket alive with pings.
func (h *Hub) writeLoop(c *Connection) {
	interval := h.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			h.deadline(c)
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			h.deadline(c)
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) deadline(c *Connection) {
	if h.cfg.WriteTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	}
}

func errorMessage(err error) ServerMessage {
	kind := "INTERNAL"
	message := "internal error"
	var e *apperrors.Error
	switch {
	case errors.As(err, &e) && !e.Kind.Fatal():
		kind, message = string(e.Kind), e.Message
	case errors.As(err, &e):
		kind, message = string(e.Kind), "battle engine failure"
	case errors.Is(err, game.ErrHostNotFound):
		kind, message = "NOT_FOUND", err.Error()
	}
	return ServerMessage{Type: MessageError, Error: &WireError{Kind: kind, Message: message}}
}

// NewHTTPServer serves the hub on the configured path.
func NewHTTPServer(cfg config.WebSocketConfig, hub *Hub) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.Handle(path, hub)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
