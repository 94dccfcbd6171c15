package ws

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Admin feed message types
const (
	MsgResponseUpdated        MessageType = "response_updated"
	MsgQuestionnaireCompleted MessageType = "questionnaire_completed"
	MsgConnected              MessageType = "connected"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Connection represents an admin WebSocket connection
type Connection struct {
	ID    string
	Email string
	Send  chan []byte
	Hub   *Hub
}

// Hub fans admin feed events out to connected admins
type Hub struct {
	admins map[string]*Connection
	mu     sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *Message
	done       chan struct{}

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		admins:     make(map[string]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.admins[conn.ID] = conn
			h.mu.Unlock()
			h.logger.Info("admin connected", zap.String("connId", conn.ID), zap.String("email", conn.Email))

		case conn := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.admins[conn.ID]; ok && existing == conn {
				delete(h.admins, conn.ID)
				close(conn.Send)
				h.logger.Info("admin disconnected", zap.String("connId", conn.ID))
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to encode feed message", zap.Error(err))
				continue
			}
			h.mu.RLock()
			for _, conn := range h.admins {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for id, conn := range h.admins {
				close(conn.Send)
				delete(h.admins, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Close stops the hub and closes every connection's send channel
func (h *Hub) Close() {
	close(h.done)
}

// AdminCount is the number of connected admins
func (h *Hub) AdminCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.admins)
}

// BroadcastToAdmins queues an event for every admin (implements service.Broadcaster).
// It never blocks; events are dropped when the queue is full.
func (h *Hub) BroadcastToAdmins(msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode feed payload", zap.String("type", msgType), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- &Message{Type: MessageType(msgType), Payload: data}:
	default:
		h.logger.Warn("admin feed queue full, dropping event", zap.String("type", msgType))
	}
}

func encodeMessage(msgType MessageType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&Message{Type: msgType, Payload: data})
}
