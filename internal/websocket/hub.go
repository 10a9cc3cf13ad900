package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"climex/internal/infrastructure"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 54 * time.Second
	defaultSendBuffer   = 256
)

// HubOptions tunes the hub's client handling.
type HubOptions struct {
	// WriteTimeout bounds each outbound frame write.
	WriteTimeout time.Duration
	// PingInterval is the keepalive cadence. The read deadline extends a
	// little past it so a single lost ping does not drop the client.
	PingInterval time.Duration
	// SendBuffer is the per-client outbound queue length. A client whose
	// queue fills is disconnected.
	SendBuffer int
}

// DefaultHubOptions returns the conventional gorilla timings.
func DefaultHubOptions() HubOptions {
	return HubOptions{
		WriteTimeout: defaultWriteTimeout,
		PingInterval: defaultPingInterval,
		SendBuffer:   defaultSendBuffer,
	}
}

func (o HubOptions) withDefaults() HubOptions {
	d := DefaultHubOptions()
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = d.WriteTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = d.PingInterval
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = d.SendBuffer
	}
	return o
}

// pongWait derives the read deadline from the ping cadence.
func (o HubOptions) pongWait() time.Duration {
	return o.PingInterval * 10 / 9
}

// Hub maintains the set of active clients and broadcasts run events to
// them. All client-set mutation happens in the Run loop.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	opts    HubOptions
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	mu               sync.RWMutex
	running          bool
	totalConnections int64
	messagesSent     int64
	dropped          int64

	quit chan struct{}
}

// NewHub creates a hub with default options. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	return NewHubWithOptions(logger, metrics, DefaultHubOptions())
}

// NewHubWithOptions creates a hub with explicit timings.
func NewHubWithOptions(logger *slog.Logger, metrics *infrastructure.BusinessMetrics, opts HubOptions) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		opts:       opts.withDefaults(),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
		quit:       make(chan struct{}),
	}
}

// Start launches the run loop once.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.Run()
}

// Stop terminates the run loop and disconnects every client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
}

// Run is the hub's main loop. Most callers use Start instead.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))
			h.metrics.RecordWebSocketClients(context.Background(), 1)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				count := len(h.clients)
				h.mu.Unlock()

				h.logger.Info("client unregistered",
					slog.Int("total_clients", count),
					slog.String("client_id", client.id),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
				h.metrics.RecordWebSocketClients(context.Background(), -1)
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
					h.mu.Lock()
					h.messagesSent++
					h.mu.Unlock()
				default:
					// A full queue means the client stopped reading.
					h.mu.Lock()
					if _, ok := h.clients[client]; ok {
						close(client.send)
						delete(h.clients, client)
					}
					h.dropped++
					h.mu.Unlock()

					h.logger.Warn("client send buffer full, disconnecting",
						slog.String("client_id", client.id))
					h.metrics.RecordWebSocketClients(context.Background(), -1)
				}
			}
		}
	}
}

// PublishRun broadcasts a run progress event to every client.
func (h *Hub) PublishRun(event RunEvent) {
	if event.TS.IsZero() {
		event.TS = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal run event",
			slog.String("run_id", event.RunID),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns lifetime connection and message counters.
func (h *Hub) Stats() (totalConnections, messagesSent, dropped int64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConnections, h.messagesSent, h.dropped
}
