// Hydrolog - Autonomous Buoy Telemetry Logger
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydrolog

package websocket

import (
	"context"
	"sync"

	"github.com/tomtom215/hydrolog/internal/logging"
	"github.com/tomtom215/hydrolog/internal/metrics"
	"github.com/tomtom215/hydrolog/internal/models"
)

// Message types pushed to live admin clients.
const (
	MessageTypeObservation = "observation"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Message is one frame on the live stream.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of connected live-stream clients and fans each
// accepted observation out to them. A slow client never blocks the
// recorder: a full send buffer drops the client, not the broadcast.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub. Run it under the supervision tree.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Serve implements suture.Service: handle client lifecycle and
// broadcasts until the context ends.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return ctx.Err()

		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			metrics.WSConnect()
			logging.Info().Int("clients", total).Msg("Live stream client connected")

		case client := <-h.Unregister:
			h.drop(client)

		case msg := <-h.broadcast:
			h.send(msg)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (h *Hub) String() string {
	return "live-hub"
}

// BroadcastObservation queues one accepted observation for every
// connected client. Non-blocking: with no room in the hub queue the
// frame is dropped, because the recorder must never wait on the UI.
func (h *Hub) BroadcastObservation(o models.Observation) {
	select {
	case h.broadcast <- Message{Type: MessageTypeObservation, Data: o}:
	default:
		logging.Debug().Msg("Live stream broadcast queue full, frame dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// send delivers one frame to every client, dropping clients whose
// buffers are full.
func (h *Hub) send(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- msg:
			metrics.RecordWSMessage()
		default:
			close(client.send)
			delete(h.clients, client)
			metrics.WSDisconnect()
			logging.Debug().Msg("Live stream client too slow, dropped")
		}
	}
}

// drop unregisters one client.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.WSDisconnect()
		logging.Info().Int("clients", len(h.clients)).Msg("Live stream client disconnected")
	}
}

// closeAll disconnects every client during shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WSDisconnect()
	}
	logging.Info().Msg("Live stream hub stopped")
}
