package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NotificationType names the event a notification reports
type NotificationType string

const (
	NotificationUpvote   NotificationType = "upvote"
	NotificationDownvote NotificationType = "downvote"
	NotificationComment  NotificationType = "comment"
	NotificationFollow   NotificationType = "follow"
	NotificationReport   NotificationType = "report"
)

// Notification is pushed to every open connection of its recipient
type Notification struct {
	Type       NotificationType `json:"type"`
	ActorID    int64            `json:"actorId"`
	ActorName  string           `json:"actorName,omitempty"`
	ResourceID int64            `json:"resourceId,omitempty"`
	Message    string           `json:"message"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Notifier delivers notifications to users
type Notifier interface {
	Notify(userID int64, n Notification)
}

type envelope struct {
	userID int64
	n      Notification
}

// Hub maintains the set of active clients and routes notifications to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[int64]map[*Client]bool

	notify     chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		notify:     make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles registrations and deliveries until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case env := <-h.notify:
			h.deliver(env)
		}
	}
}

// Notify queues n for userID. It never blocks; when the queue is full the
// notification is dropped.
func (h *Hub) Notify(userID int64, n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	select {
	case h.notify <- envelope{userID: userID, n: n}:
	default:
		h.logger.Warn().Int64("userID", userID).Str("type", string(n.Type)).Msg("Notification queue full, dropping")
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug().Int64("userID", client.userID).Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	close(client.send)
	if len(conns) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Debug().Int64("userID", client.userID).Msg("Client unregistered")
}

func (h *Hub) deliver(env envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.clients[env.userID]
	if !ok {
		return
	}

	data, err := json.Marshal(env.n)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", env.userID).Msg("Failed to marshal notification")
		return
	}

	for client := range conns {
		select {
		case client.send <- data:
		default:
			// slow client; it keeps its connection but misses this one
			h.logger.Debug().Int64("userID", env.userID).Msg("Client buffer full, notification dropped")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conns := range h.clients {
		for client := range conns {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}

// ConnectedClients returns the number of open connections for a user
func (h *Hub) ConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
