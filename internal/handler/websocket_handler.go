package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"github.com/Baaaki/foodgram/internal/broker"
	"github.com/Baaaki/foodgram/internal/service"
	"github.com/Baaaki/foodgram/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second // Time allowed to write a message to the peer
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize = 512                 // clients only send control frames
)

// NotificationHandler streams a user's notifications over a websocket.
// The stream is one-way; anything the client sends is discarded.
type NotificationHandler struct {
	notifier *service.NotificationService
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*wsClient
	mu       sync.RWMutex
}

type wsClient struct {
	conn        *websocket.Conn
	userID      uint
	connectedAt time.Time
}

// NewNotificationHandler accepts connections from allowedOrigins; an empty
// list or "*" accepts any origin.
func NewNotificationHandler(notifier *service.NotificationService, allowedOrigins []string) *NotificationHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}

	return &NotificationHandler{
		notifier: notifier,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(origins) == 0 || origins["*"] || origins[origin]
			},
		},
		clients: make(map[*websocket.Conn]*wsClient),
	}
}

// HandleWebSocket upgrades the connection and forwards notifications.
// GET /ws/notifications
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID := viewerID(c)
	if userID == 0 {
		apperrors.Respond(c, apperrors.ErrAuthRequired)
		return
	}

	// Subscribe before upgrading so a broker failure is still a plain HTTP error
	sub, err := h.notifier.Subscribe(c.Request.Context(), userID)
	if err != nil {
		logger.Log.Error("Failed to open notification stream",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		apperrors.Respond(c, apperrors.Internal(err))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		_ = sub.Close()
		logger.Log.Warn("Failed to upgrade connection",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		return
	}

	client := &wsClient{
		conn:        conn,
		userID:      userID,
		connectedAt: time.Now(),
	}
	h.addClient(client)
	defer h.removeClient(conn)

	done := make(chan struct{})
	go h.writePump(client, sub, done)

	h.readPump(client)
	close(done)
	_ = sub.Close()
}

// readPump keeps the read deadline fresh and returns when the peer goes away.
func (h *NotificationHandler) readPump(client *wsClient) {
	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket error",
					zap.Uint("user_id", client.userID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writePump is the only writer on the connection.
func (h *NotificationHandler) writePump(client *wsClient, sub *broker.Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-sub.C:
			if !ok {
				_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream closed"))
				return
			}

			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(n); err != nil {
				logger.Log.Warn("Failed to deliver notification",
					zap.Uint("user_id", client.userID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func (h *NotificationHandler) addClient(client *wsClient) {
	h.mu.Lock()
	h.clients[client.conn] = client
	total := len(h.clients)
	h.mu.Unlock()

	logger.Log.Info("Notification stream opened",
		zap.Uint("user_id", client.userID),
		zap.Int("total", total),
	)
}

func (h *NotificationHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, exists := h.clients[conn]
	if !exists {
		return
	}
	delete(h.clients, conn)
	_ = conn.Close()

	logger.Log.Info("Notification stream closed",
		zap.Uint("user_id", client.userID),
		zap.Duration("session", time.Since(client.connectedAt).Round(time.Second)),
		zap.Int("remaining", len(h.clients)),
	)
}

// Connected returns the number of open streams.
func (h *NotificationHandler) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
