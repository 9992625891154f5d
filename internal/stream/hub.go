// Package stream pushes live service events to operator websocket clients.
package stream

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

const broadcastBuffer = 256

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and broadcasts events to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("Stream client registered: %s", client.conn.RemoteAddr())

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					log.Printf("Stream client %s is not keeping up, removing", client.conn.RemoteAddr())
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		log.Printf("Stream client unregistered: %s", client.conn.RemoteAddr())
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues an event for every client. Events are dropped when the
// hub is backed up so that callers never block.
func (h *Hub) Broadcast(eventType string, payload interface{}) {
	message, err := protocol.EncodeStreamEvent(eventType, payload)
	if err != nil {
		log.Printf("Error encoding %s event: %v", eventType, err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		log.Printf("Stream backlog full, dropping %s event", eventType)
	}
}

// OnHeartbeat broadcasts the stored status.
func (h *Hub) OnHeartbeat(_ context.Context, status protocol.LiveStatus) {
	h.Broadcast(protocol.StreamEventStatus, status)
}

// OnAlert broadcasts a new alert.
func (h *Hub) OnAlert(_ context.Context, rec protocol.AlertRecord) {
	h.Broadcast(protocol.StreamEventAlert, rec)
}

// Notify broadcasts a hotspot transition.
func (h *Hub) Notify(_ context.Context, n *protocol.HotspotNotification) error {
	h.Broadcast(protocol.StreamEventHotspot, n)
	return nil
}

// OnLost broadcasts the derived status of a robot that stopped reporting.
func (h *Hub) OnLost(status protocol.LiveStatus) {
	h.Broadcast(protocol.StreamEventLost, status)
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Stream upgrade error: %v", err)
		return
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, broadcastBuffer)}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
