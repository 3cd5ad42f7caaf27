package ws

import (
	"log"
	"sync"
	"time"

	"github.com/backuo/backuo-backend/internal/metrics"
	"github.com/gofiber/websocket/v2"
)

// ClientConnection wraps a WebSocket connection with metadata. All writes go
// through WriteJSON so hub publishes and reader-goroutine replies never
// interleave on the wire.
type ClientConnection struct {
	Conn       *websocket.Conn
	UserID     uint
	LastPong   time.Time
	PingTicker *time.Ticker
	CloseChan  chan struct{}

	writeMu sync.Mutex
}

func (cc *ClientConnection) WriteJSON(v interface{}) error {
	cc.writeMu.Lock()
	defer cc.writeMu.Unlock()
	_ = cc.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return cc.Conn.WriteJSON(v)
}

type typingKey struct {
	ConversationID uint
	UserID         uint
}

// Hub is the connection registry for the live channel: one connection per
// user, per-conversation rooms, per-user private channels, typing expiry.
// It is constructed once in main and passed into handlers explicitly.
//
// Delivery through the hub is advisory and at-least-once at best: a failed
// write is logged and dropped, never retried — clients repair gaps through
// cursor pagination against the durable store.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]*ClientConnection
	rooms   map[uint]map[uint]struct{} // conversation id -> joined user ids
	joined  map[uint]map[uint]struct{} // user id -> joined conversation ids

	typingMu sync.Mutex
	typing   map[typingKey]*time.Timer

	typingTTL    time.Duration
	pingInterval time.Duration
	pongTimeout  time.Duration
}

func NewHub() *Hub {
	hub := &Hub{
		clients:      make(map[uint]*ClientConnection),
		rooms:        make(map[uint]map[uint]struct{}),
		joined:       make(map[uint]map[uint]struct{}),
		typing:       make(map[typingKey]*time.Timer),
		typingTTL:    1200 * time.Millisecond,
		pingInterval: 30 * time.Second,
		pongTimeout:  90 * time.Second,
	}

	go hub.connectionHealthChecker()

	return hub
}

// Register adds a client connection with health monitoring.
func (h *Hub) Register(userID uint, conn *websocket.Conn) *ClientConnection {
	client := &ClientConnection{
		Conn:       conn,
		UserID:     userID,
		LastPong:   time.Now(),
		PingTicker: time.NewTicker(h.pingInterval),
		CloseChan:  make(chan struct{}),
	}

	conn.SetPongHandler(func(appData string) error {
		h.mu.Lock()
		if c, exists := h.clients[userID]; exists {
			c.LastPong = time.Now()
		}
		h.mu.Unlock()
		_ = conn.SetReadDeadline(time.Now().Add(h.pongTimeout))
		return nil
	})
	_ = conn.SetReadDeadline(time.Now().Add(h.pongTimeout))

	h.mu.Lock()
	h.clients[userID] = client
	count := len(h.clients)
	h.mu.Unlock()

	metrics.LiveConnections.Inc()
	go h.pingRoutine(client)

	log.Printf("User %d connected to hub (total: %d)", userID, count)
	return client
}

// Unregister removes a client connection and clears its room memberships and
// typing timers.
func (h *Hub) Unregister(userID uint) {
	h.mu.Lock()
	client, exists := h.clients[userID]
	if exists {
		if client.PingTicker != nil {
			client.PingTicker.Stop()
		}
		close(client.CloseChan)
		delete(h.clients, userID)
	}
	for convID := range h.joined[userID] {
		delete(h.rooms[convID], userID)
		if len(h.rooms[convID]) == 0 {
			delete(h.rooms, convID)
		}
	}
	delete(h.joined, userID)
	count := len(h.clients)
	h.mu.Unlock()

	if exists {
		metrics.LiveConnections.Dec()
		h.stopTypingTimers(userID)
		log.Printf("User %d disconnected from hub (total: %d)", userID, count)
	}
}

// JoinRoom subscribes a connected user to a conversation room. Membership
// validation is the caller's job; the room itself is not an authorization
// boundary.
func (h *Hub) JoinRoom(conversationID, userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, online := h.clients[userID]; !online {
		return
	}
	if h.rooms[conversationID] == nil {
		h.rooms[conversationID] = make(map[uint]struct{})
	}
	h.rooms[conversationID][userID] = struct{}{}
	if h.joined[userID] == nil {
		h.joined[userID] = make(map[uint]struct{})
	}
	h.joined[userID][conversationID] = struct{}{}
	metrics.RoomJoins.Inc()
}

// LeaveRoom unsubscribes a user from a conversation room.
func (h *Hub) LeaveRoom(conversationID, userID uint) {
	h.mu.Lock()
	delete(h.rooms[conversationID], userID)
	if len(h.rooms[conversationID]) == 0 {
		delete(h.rooms, conversationID)
	}
	delete(h.joined[userID], conversationID)
	h.mu.Unlock()

	h.stopTypingTimer(typingKey{ConversationID: conversationID, UserID: userID})
}

// InRoom reports whether the user currently subscribes to the room.
func (h *Hub) InRoom(conversationID, userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[conversationID][userID]
	return ok
}

// IsOnline checks if a user is connected.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.clients[userID]
	return exists
}

// PublishToConversation sends an event to every user joined to the room,
// except excludeUserID (0 excludes nobody). Failed writes drop the
// connection; the event is not retried.
func (h *Hub) PublishToConversation(conversationID uint, excludeUserID uint, event Event) {
	h.mu.RLock()
	targets := make([]*ClientConnection, 0, len(h.rooms[conversationID]))
	for userID := range h.rooms[conversationID] {
		if userID == excludeUserID {
			continue
		}
		if client, ok := h.clients[userID]; ok {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	for _, client := range targets {
		h.writeOrDrop(client, event)
	}
}

// SendToUser delivers an event on the user's private channel. Returns false
// when the user is offline; the caller must not treat that as an error, the
// durable record is the source of truth.
func (h *Hub) SendToUser(userID uint, event Event) bool {
	h.mu.RLock()
	client, exists := h.clients[userID]
	h.mu.RUnlock()
	if !exists {
		return false
	}

	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	return h.writeOrDrop(client, event)
}

// NotifyConversation fans a conversation event out to its members: joined
// members get it through the room, the rest of memberIDs get it on their
// private channel if online.
func (h *Hub) NotifyConversation(conversationID uint, memberIDs []uint, excludeUserID uint, event Event) {
	h.PublishToConversation(conversationID, excludeUserID, event)
	for _, userID := range memberIDs {
		if userID == excludeUserID || h.InRoom(conversationID, userID) {
			continue
		}
		h.SendToUser(userID, event)
	}
}

// Broadcast sends an event to all connected users.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	targets := make([]*ClientConnection, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	metrics.EventsPublished.WithLabelValues(event.Type).Inc()
	for _, client := range targets {
		h.writeOrDrop(client, event)
	}
}

func (h *Hub) writeOrDrop(client *ClientConnection, event Event) bool {
	if err := client.WriteJSON(event); err != nil {
		log.Printf("Error sending %s to user %d: %v", event.Type, client.UserID, err)
		metrics.DeliveryFailures.Inc()
		h.Unregister(client.UserID)
		return false
	}
	return true
}

// SetTyping relays the typing state to the room and arms the expiry: without
// a refresh within typingTTL, the hub emits is_typing=false on the user's
// behalf. Never persisted.
func (h *Hub) SetTyping(conversationID, userID uint, isTyping bool) {
	if !h.InRoom(conversationID, userID) {
		return
	}

	h.PublishToConversation(conversationID, userID, NewTypingEvent(conversationID, userID, isTyping))

	key := typingKey{ConversationID: conversationID, UserID: userID}
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	if timer, ok := h.typing[key]; ok {
		timer.Stop()
		delete(h.typing, key)
	}
	if isTyping {
		h.typing[key] = time.AfterFunc(h.typingTTL, func() {
			h.typingMu.Lock()
			delete(h.typing, key)
			h.typingMu.Unlock()
			h.PublishToConversation(conversationID, userID, NewTypingEvent(conversationID, userID, false))
		})
	}
}

func (h *Hub) stopTypingTimer(key typingKey) {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	if timer, ok := h.typing[key]; ok {
		timer.Stop()
		delete(h.typing, key)
	}
}

func (h *Hub) stopTypingTimers(userID uint) {
	h.typingMu.Lock()
	defer h.typingMu.Unlock()
	for key, timer := range h.typing {
		if key.UserID == userID {
			timer.Stop()
			delete(h.typing, key)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// pingRoutine sends periodic ping frames to keep the connection alive.
func (h *Hub) pingRoutine(client *ClientConnection) {
	for {
		select {
		case <-client.CloseChan:
			return
		case <-client.PingTicker.C:
			client.writeMu.Lock()
			err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second))
			client.writeMu.Unlock()
			if err != nil {
				log.Printf("Ping failed for user %d: %v", client.UserID, err)
				h.Unregister(client.UserID)
				return
			}
		}
	}
}

// connectionHealthChecker reaps connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		h.mu.RLock()
		dead := make([]uint, 0)
		for userID, client := range h.clients {
			if now.Sub(client.LastPong) > h.pongTimeout {
				dead = append(dead, userID)
			}
		}
		h.mu.RUnlock()

		for _, userID := range dead {
			log.Printf("Removing dead connection for user %d (no pong received)", userID)
			h.Unregister(userID)
		}
	}
}
