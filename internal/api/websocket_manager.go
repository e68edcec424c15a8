package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
)

var errHubStopped = errors.New("websocket hub stopped")

// Event types pushed to clients
const (
	EventConnectionStatusChanged = "connection_status_changed"
)

// WSEvent is the envelope of every server push
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ConnectionEvent tells a user that their status with PeerID changed
type ConnectionEvent struct {
	PeerID    string `json:"peer_id"`
	RequestID string `json:"request_id"`
	Action    string `json:"action"`
	ChatID    string `json:"chat_id,omitempty"`
}

// EventPublisher pushes events to a user's open sockets
type EventPublisher interface {
	SendToUser(userID string, event WSEvent)
}

type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// WebSocketManager tracks open sockets per user (one user may have several devices)
type WebSocketManager struct {
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	userClients map[string]map[*Client]struct{}
	mu          sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewWebSocketManager(allowedOrigins []string, logger *zap.Logger) *WebSocketManager {
	return &WebSocketManager{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		userClients: make(map[string]map[*Client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // native clients send no Origin
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run owns registration until ctx is cancelled, then closes every socket.
func (m *WebSocketManager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			if _, ok := m.userClients[client.UserID]; !ok {
				m.userClients[client.UserID] = make(map[*Client]struct{})
			}
			m.userClients[client.UserID][client] = struct{}{}
			m.mu.Unlock()
			m.logger.Debug("Client registered", zap.String("user_id", client.UserID), zap.String("client_id", client.ID))

		case client := <-m.unregister:
			m.remove(client)

		case <-ctx.Done():
			m.mu.Lock()
			for userID, clients := range m.userClients {
				for c := range clients {
					close(c.Send)
				}
				delete(m.userClients, userID)
			}
			m.mu.Unlock()
			return
		}
	}
}

func (m *WebSocketManager) remove(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients, ok := m.userClients[client.UserID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(m.userClients, client.UserID)
	}
	close(client.Send)
	m.logger.Debug("Client unregistered", zap.String("user_id", client.UserID), zap.String("client_id", client.ID))
}

// SendToUser delivers event to every socket of userID. Slow sockets drop the event.
func (m *WebSocketManager) SendToUser(userID string, event WSEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients, ok := m.userClients[userID]
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to marshal event", zap.Error(err))
		return
	}

	for client := range clients {
		select {
		case client.Send <- msg:
		default:
			m.logger.Warn("Dropping event for slow client", zap.String("user_id", userID), zap.String("type", event.Type))
		}
	}
}

// ConnectedUsers returns the number of users with at least one open socket
func (m *WebSocketManager) ConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.userClients)
}

// Serve upgrades the request and starts the client pumps
func (m *WebSocketManager) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBufferSize),
	}
	select {
	case m.register <- client:
	case <-m.done:
		conn.Close()
		return errHubStopped
	}

	go client.writePump()
	go client.readPump(m)
	return nil
}

// readPump only handles control frames; clients never send data over this socket.
func (c *Client) readPump(m *WebSocketManager) {
	defer func() {
		select {
		case m.unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("WebSocket closed unexpectedly", zap.String("user_id", c.UserID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
