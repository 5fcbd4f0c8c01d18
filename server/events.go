package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"unframe/cache"
	"unframe/core/auth"
	"unframe/core/player"
	"unframe/logger"
	"unframe/model"

	"github.com/gorilla/websocket"
)

// EventType tags a WebSocket message.
type EventType string

const (
	// Server → client pushes.
	EventCatalogChanged EventType = "catalog_changed"
	EventProfileUpdated EventType = "profile"
	EventRewardUnlocked EventType = "reward_unlocked"
	EventLikeChanged    EventType = "like_changed"
	EventSession        EventType = "session"
	EventError          EventType = "error"

	// Bidirectional.
	EventPing EventType = "ping"
	EventPong EventType = "pong"
)

// WSMessage is the WebSocket envelope.
type WSMessage struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func newMessage(event EventType, payload interface{}) (*WSMessage, error) {
	msg := &WSMessage{Type: event, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = data
	}
	return msg, nil
}

// playbackSnapshot projects a controller snapshot onto the wire shape
// carried by session events, so the two cannot silently drift apart.
func playbackSnapshot(s player.Snapshot) model.PlaybackSnapshot {
	return model.PlaybackSnapshot{
		TrackIndex:      s.Index,
		TrackID:         s.TrackID,
		IsPlaying:       s.IsPlaying,
		PositionSeconds: s.Position,
		DurationSeconds: s.Duration,
		Volume:          s.Volume,
		Muted:           s.Muted,
		Buffering:       s.State == player.StateBuffering,
		UpdatedAt:       time.Now().UnixMilli(),
	}
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin in development; the token
	// is the gate, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	hub    *EventsHub
	conn   *websocket.Conn
	userID int64
	send   chan []byte
}

// EventsHub fans server-side changes out to connected sessions. It is
// the push half of the catalog/profile subscription surface: each
// connected session receives catalog updates, its own counter
// updates, and reward unlocks, without polling.
type EventsHub struct {
	mu       sync.RWMutex
	clients  map[*wsClient]struct{}
	byUser   map[int64]map[*wsClient]struct{}
	sessions *cache.SessionCache
}

// NewEventsHub creates an EventsHub. sessions may be nil to disable
// snapshot persistence.
func NewEventsHub(sessions *cache.SessionCache) *EventsHub {
	return &EventsHub{
		clients:  make(map[*wsClient]struct{}),
		byUser:   make(map[int64]map[*wsClient]struct{}),
		sessions: sessions,
	}
}

func (hub *EventsHub) register(c *wsClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.clients[c] = struct{}{}
	if hub.byUser[c.userID] == nil {
		hub.byUser[c.userID] = make(map[*wsClient]struct{})
	}
	hub.byUser[c.userID][c] = struct{}{}
}

func (hub *EventsHub) unregister(c *wsClient) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[c]; !ok {
		return
	}
	delete(hub.clients, c)
	if peers := hub.byUser[c.userID]; peers != nil {
		delete(peers, c)
		if len(peers) == 0 {
			delete(hub.byUser, c.userID)
		}
	}
	close(c.send)
}

// Broadcast sends an event to every connected session.
func (hub *EventsHub) Broadcast(event EventType, payload interface{}) {
	msg, err := newMessage(event, payload)
	if err != nil {
		logger.Error("[Events] Failed to build broadcast", logger.ErrorField(err))
		return
	}
	raw, _ := json.Marshal(msg)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.clients {
		select {
		case c.send <- raw:
		default:
			// Slow consumer; drop the message rather than the hub.
		}
	}
}

// BroadcastCatalogChanged tells every session to re-fetch the catalog.
func (hub *EventsHub) BroadcastCatalogChanged() {
	hub.Broadcast(EventCatalogChanged, nil)
}

// SendToUser sends an event to every session of one user.
func (hub *EventsHub) SendToUser(userID int64, event EventType, payload interface{}) {
	msg, err := newMessage(event, payload)
	if err != nil {
		logger.Error("[Events] Failed to build message", logger.ErrorField(err))
		return
	}
	raw, _ := json.Marshal(msg)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.byUser[userID] {
		select {
		case c.send <- raw:
		default:
		}
	}
}

// HandleWS upgrades the connection. The token travels as a query
// parameter because browser WebSocket clients cannot set headers.
func (hub *EventsHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Token is required")
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[Events] Upgrade failed", logger.ErrorField(err))
		return
	}

	c := &wsClient{
		hub:    hub,
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan []byte, 64),
	}
	hub.register(c)
	logger.Debug("[Events] Session connected", logger.Int64("userId", c.userID))

	// A reconnecting session resumes from the last snapshot. Only the
	// new session gets the replay; the others already have it.
	if hub.sessions != nil {
		if snap, err := hub.sessions.GetSnapshot(r.Context(), c.userID); err == nil && snap != nil {
			hub.sendDirect(c, EventSession, snap)
		}
	}

	go c.writePump()
	go c.readPump()
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		logger.Debug("[Events] Session disconnected", logger.Int64("userId", c.userID))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case EventPing:
			c.hub.sendDirect(c, EventPong, nil)
		case EventSession:
			// Client reports its playback snapshot: cache it and
			// mirror it to the user's other sessions.
			var snap model.PlaybackSnapshot
			if err := json.Unmarshal(msg.Data, &snap); err != nil {
				continue
			}
			snap.UpdatedAt = time.Now().UnixMilli()
			if c.hub.sessions != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := c.hub.sessions.SaveSnapshot(ctx, c.userID, &snap); err != nil {
					logger.Warn("[Events] Failed to cache snapshot", logger.ErrorField(err))
				}
				cancel()
			}
			c.hub.sendToUserExcept(c, EventSession, &snap)
		}
	}
}

// sendDirect queues an event on one session only.
func (hub *EventsHub) sendDirect(c *wsClient, event EventType, payload interface{}) {
	msg, err := newMessage(event, payload)
	if err != nil {
		return
	}
	raw, _ := json.Marshal(msg)
	select {
	case c.send <- raw:
	default:
	}
}

// sendToUserExcept mirrors an event to the user's other sessions.
func (hub *EventsHub) sendToUserExcept(origin *wsClient, event EventType, payload interface{}) {
	msg, err := newMessage(event, payload)
	if err != nil {
		return
	}
	raw, _ := json.Marshal(msg)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.byUser[origin.userID] {
		if c == origin {
			continue
		}
		select {
		case c.send <- raw:
		default:
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
