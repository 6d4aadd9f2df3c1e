package session

import (
	"encoding/json"
	"sync"

	"github.com/basekick-labs/linkview/internal/metrics"
	"github.com/rs/zerolog"
)

// StreamMessage is pushed to stream subscribers on every republished
// selection.
type StreamMessage struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	IDs     []int  `json:"ids"`
}

// Client is one stream subscriber of a session.
type Client struct {
	session string
	send    chan []byte
}

// Session returns the session the client follows.
func (c *Client) Session() string { return c.session }

// Messages delivers encoded StreamMessages. It is closed when the client is
// unregistered or its session goes away.
func (c *Client) Messages() <-chan []byte { return c.send }

// Hub fans selections out to the stream clients of each session. A client
// that cannot keep up loses messages rather than stalling the workspace.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	buffer  int
	closed  bool
	logger  zerolog.Logger
}

// NewHub creates a hub whose clients buffer up to buffer messages.
func NewHub(buffer int, logger zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		buffer:  buffer,
		logger:  logger.With().Str("component", "stream-hub").Logger(),
	}
}

// Register adds a client for sessionID. On a closed hub the returned
// client's channel is already closed.
func (h *Hub) Register(sessionID string) *Client {
	c := &Client{session: sessionID, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c.send)
		return c
	}
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	metrics.Get().IncStreamClients()
	h.logger.Debug().Str("session", sessionID).Int("clients", len(set)).Msg("Stream client registered")
	return c
}

// Unregister removes c and closes its channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.session]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	metrics.Get().DecStreamClients()
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
}

// Drop disconnects every client of sessionID.
func (h *Hub) Drop(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sessionID)
}

func (h *Hub) dropLocked(sessionID string) {
	m := metrics.Get()
	for c := range h.clients[sessionID] {
		close(c.send)
		m.DecStreamClients()
	}
	delete(h.clients, sessionID)
}

// Publish sends ids to every client of sessionID without blocking.
func (h *Hub) Publish(sessionID string, ids []int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	set := h.clients[sessionID]
	if len(set) == 0 {
		return
	}

	if ids == nil {
		ids = []int{}
	}
	msg, err := json.Marshal(StreamMessage{Type: "selection", Session: sessionID, IDs: ids})
	if err != nil {
		h.logger.Error().Err(err).Str("session", sessionID).Msg("Failed to encode stream message")
		return
	}

	m := metrics.Get()
	for c := range set {
		select {
		case c.send <- msg:
			m.IncStreamSent()
		default:
			m.IncStreamDropped()
			h.logger.Warn().Str("session", sessionID).Msg("Stream client too slow, dropping message")
		}
	}
}

// Clients returns the number of clients following sessionID.
func (h *Hub) Clients(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id := range h.clients {
		h.dropLocked(id)
	}
	h.logger.Info().Msg("Stream hub closed")
	return nil
}
