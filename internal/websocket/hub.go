// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	registryimport "github.com/tomtom215/registrar/internal/import"
	"github.com/tomtom215/registrar/internal/logging"
	"github.com/tomtom215/registrar/internal/metrics"
)

// Message types for WebSocket communication
const (
	MessageTypeImportProgress = "import_progress"
	MessageTypeImportEvent    = "import_event"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ImportEventData is the payload of an import_event message.
type ImportEventData struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId"`
	File      string `json:"file,omitempty"`
	Batch     int    `json:"batch,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	latestMu sync.RWMutex
	latest   *Message
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub until ctx is done, then closes every client.
// It implements suture.Service.
//
// Client lifecycle events are drained before broadcasts so a client
// registered just before a broadcast receives it.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) String() string { return "websocket-hub" }

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client connected")

	h.latestMu.RLock()
	latest := h.latest
	h.latestMu.RUnlock()
	if latest != nil {
		select {
		case client.send <- *latest:
		default:
		}
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	n := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(0)
	logging.Info().Str("component", "websocket-hub").Int("clients_closed", n).Msg("websocket hub stopped")
}

// broadcastToClients sends a message to every client in ID order.
// Clients whose buffers are full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WebSocketConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped", len(toRemove)).Msg("dropped slow websocket clients")
	}
}

// BroadcastJSON sends a message to all connected clients.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastProgress is a registryimport.ProgressSink.
func (h *Hub) BroadcastProgress(p registryimport.Progress) {
	msg := Message{Type: MessageTypeImportProgress, Data: p}

	h.latestMu.Lock()
	h.latest = &msg
	h.latestMu.Unlock()

	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Msg("broadcast channel full, dropping import_progress message")
	}
}

// BroadcastEvent is a driver observer. Per-batch acknowledgements are
// left to progress updates.
func (h *Hub) BroadcastEvent(ev registryimport.Event) {
	if ev.Session == nil || ev.Type == registryimport.EventBatchAcknowledged {
		return
	}
	data := ImportEventData{
		Event:     string(ev.Type),
		SessionID: ev.Session.ID,
		File:      ev.File,
		Batch:     ev.Batch,
		Status:    string(ev.Session.Status),
		Timestamp: ev.At.UTC().Format(time.RFC3339),
	}
	if ev.Err != nil {
		data.Error = ev.Err.Error()
	}
	h.BroadcastJSON(MessageTypeImportEvent, data)
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
