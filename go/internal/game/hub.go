package game

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mdahlke/jeoparty/go/internal/models"
)

// EventType identifies what a game event describes.
type EventType string

const (
	EventScoreUpdated     EventType = "score_updated"
	EventQuestionAnswered EventType = "question_answered"
	EventAnswerRevealed   EventType = "answer_revealed"
)

// Event is pushed to every screen watching a game session whenever its
// state changes (a team scored, a question was closed without points).
type Event struct {
	Type       EventType     `json:"type"`
	SessionID  uuid.UUID     `json:"session_id"`
	QuestionID string        `json:"question_id,omitempty"`
	Teams      []models.Team `json:"teams"`
	Timestamp  time.Time     `json:"timestamp"`
}

// HubConfig holds WebSocket connection tuning.
type HubConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultHubConfig returns the default WebSocket configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

type broadcastMessage struct {
	sessionID uuid.UUID
	event     *Event
}

// Hub fans game events out to the WebSocket connections subscribed to a
// session (the board screen, the host screen, spectators).
type Hub struct {
	sessionConns map[uuid.UUID]map[*connection]bool
	mu           sync.RWMutex

	upgrader    websocket.Upgrader
	config      HubConfig
	broadcastCh chan broadcastMessage
}

type connection struct {
	id        string
	sessionID uuid.UUID
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
}

// NewHub creates a game event hub.
func NewHub(config HubConfig) *Hub {
	return &Hub{
		sessionConns: make(map[uuid.UUID]map[*connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcastMessage, 256),
	}
}

// Start processes broadcasts until ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	log.Info().Msg("game hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("game hub shutting down")
			return
		case message := <-h.broadcastCh:
			h.handleBroadcast(message)
		}
	}
}

// Broadcast queues an event for every connection watching the session.
func (h *Hub) Broadcast(sessionID uuid.UUID, event *Event) {
	select {
	case h.broadcastCh <- broadcastMessage{sessionID: sessionID, event: event}:
	default:
		log.Warn().Str("session_id", sessionID.String()).
			Msg("broadcast channel full, dropping event")
	}
}

// Subscribe upgrades an HTTP request to a WebSocket subscribed to the
// given session.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &connection{
		id:        uuid.New().String(),
		sessionID: sessionID,
		conn:      ws,
		send:      make(chan []byte, 64),
		hub:       h,
	}
	h.register(c)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Str("session_id", sessionID.String()).
		Msg("game screen connected")
	return nil
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessionConns[c.sessionID] == nil {
		h.sessionConns[c.sessionID] = make(map[*connection]bool)
	}
	h.sessionConns[c.sessionID][c] = true
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.sessionConns[c.sessionID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.sessionConns, c.sessionID)
	}
}

func (h *Hub) handleBroadcast(message broadcastMessage) {
	data, err := json.Marshal(message.event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal game event")
		return
	}

	// Sends happen under the read lock: unregister only closes a send
	// channel under the write lock, so a connection cannot be torn down
	// mid-broadcast. The sends never block, a full buffer marks the
	// connection for dropping instead.
	h.mu.RLock()
	var slow []*connection
	for c := range h.sessionConns[message.sessionID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		// Slow or dead screen, drop it.
		log.Warn().Str("connection_id", c.id).
			Msg("send buffer full, closing connection")
		h.unregister(c)
		c.conn.Close()
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(c.hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.hub.unregister(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.id).
					Msg("failed to write game event")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.hub.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
		return nil
	})

	// Game screens are read-only subscribers; incoming payloads are
	// drained and ignored.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.id).
					Msg("unexpected WebSocket close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.ReadTimeout))
	}
}
