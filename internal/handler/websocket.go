package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/middleware"
	"github.com/vyrodovalexey/doglist-api/internal/model"
)

// WebSocket configuration constants.
const (
	defaultWriteWait = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 512
	outboxSize       = 16
)

// FeedHandler streams the visible dog list over WebSocket. Each client gets
// the current list on connect and a fresh one after every change. A client
// narrows its list by sending {"type":"search","query":"..."}.
type FeedHandler struct {
	upgrader   websocket.Upgrader
	collection *dogs.Collection
	logger     *zap.Logger
	writeWait  time.Duration
	mu         sync.RWMutex
	clients    map[*websocket.Conn]context.CancelFunc
}

// NewFeedHandler creates a new FeedHandler instance.
func NewFeedHandler(collection *dogs.Collection, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		collection: collection,
		logger:     logger,
		writeWait:  defaultWriteWait,
		clients:    make(map[*websocket.Conn]context.CancelFunc),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *FeedHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and starts its pumps. The initial
// search text may be given as ?q=.
//
//nolint:contextcheck // WebSocket connections outlive the HTTP request context
func (h *FeedHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())

	h.mu.Lock()
	h.clients[conn] = cancel
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.String("remote_addr", conn.RemoteAddr().String()),
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)

	snapshots, unsubscribe := h.collection.Subscribe()
	outbox := make(chan model.WebSocketMessage, outboxSize)

	go h.writePump(ctx, cancel, conn, snapshots, unsubscribe, outbox, r.URL.Query().Get("q"))
	go h.readPump(ctx, conn, cancel, outbox)
}

// readPump decodes client messages and hands replies to the write pump.
func (h *FeedHandler) readPump(
	ctx context.Context,
	conn *websocket.Conn,
	cancel context.CancelFunc,
	outbox chan<- model.WebSocketMessage,
) {
	defer func() {
		cancel()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		reply := h.handleClientMessage(data)
		select {
		case outbox <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// handleClientMessage turns one client frame into the message the write
// pump acts on. Search requests are forwarded as-is.
func (h *FeedHandler) handleClientMessage(data []byte) model.WebSocketMessage {
	var msg model.WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Debug("malformed websocket message", zap.Error(err))
		return model.NewErrorMessage("malformed message")
	}

	switch msg.Type {
	case model.WSMessageTypeSearch:
		return msg
	case model.WSMessageTypePing:
		return model.NewPongMessage()
	default:
		return model.NewErrorMessage("unknown message type: " + msg.Type)
	}
}

// writePump is the only writer of conn. It keeps the client's search text
// and renders every published snapshot against it. When it stops, it
// cancels the client and closes conn so the read pump never waits on a
// full outbox.
func (h *FeedHandler) writePump(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	snapshots <-chan dogs.Snapshot,
	unsubscribe func(),
	outbox <-chan model.WebSocketMessage,
	query string,
) {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		cancel()
		unsubscribe()
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	// Searches before the first published snapshot render the current list.
	last := h.collection.Snapshot()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if snap.Version < last.Version {
				continue
			}
			last = snap
			if err := h.send(conn, model.NewSnapshotMessage(dogs.ListFromSnapshot(snap, query))); err != nil {
				h.logger.Debug("failed to send snapshot", zap.Error(err))
				return
			}
		case msg := <-outbox:
			if msg.Type == model.WSMessageTypeSearch {
				query = msg.Query
				msg = model.NewSnapshotMessage(dogs.ListFromSnapshot(last, query))
			}
			if err := h.send(conn, msg); err != nil {
				h.logger.Debug("failed to send reply", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// send writes one JSON message to the connection.
func (h *FeedHandler) send(conn *websocket.Conn, msg model.WebSocketMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

// sendPing sends a ping message to the connection.
func (h *FeedHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *FeedHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *FeedHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cancel, exists := h.clients[conn]; exists {
		cancel()
		delete(h.clients, conn)
		h.logger.Info("websocket client disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// ClientCount returns the number of connected feed clients.
func (h *FeedHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAllConnections closes all active WebSocket connections.
func (h *FeedHandler) CloseAllConnections() {
	h.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(h.clients))
	for _, cancel := range h.clients {
		cancels = append(cancels, cancel)
	}
	h.mu.Unlock()

	// Cancelling makes each write pump send a close frame.
	for _, cancel := range cancels {
		cancel()
	}

	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}
