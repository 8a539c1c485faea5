package ws

import (
	"encoding/json"
	"sync"

	"github.com/merenda/planning-api/internal/enum"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// routeEvent is an internal struct for routing events to one delivery route
type routeEvent struct {
	RouteID int64
	Event   Event
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Logistics dashboards subscribe per delivery route and are told when a
// requisition on that route is released or deleted.
type Hub struct {
	// Registered clients by route ID
	rooms map[int64]map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan *routeEvent

	// Mutex for thread-safe room access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *routeEvent, 256),
	}
}

// Run starts the hub's main loop
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.routeID] == nil {
				h.rooms[client.routeID] = make(map[*Client]bool)
			}
			h.rooms[client.routeID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.routeID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					// Clean up empty rooms
					if len(clients) == 0 {
						delete(h.rooms, client.routeID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[event.RouteID]

			// Marshal event to JSON once
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			// Send to all clients in this route's room
			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.rooms[event.RouteID], client)
					if len(h.rooms[event.RouteID]) == 0 {
						delete(h.rooms, event.RouteID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoute sends an event to all clients subscribed to a route
func (h *Hub) BroadcastToRoute(routeID int64, event Event) {
	h.broadcast <- &routeEvent{
		RouteID: routeID,
		Event:   event,
	}
}

type requisitionPayload struct {
	RequisitionID int64 `json:"requisition_id"`
}

// RequisitionReleased tells the route's dashboards a requisition finished
// coordination and is available for logistics.
func (h *Hub) RequisitionReleased(routeID, requisitionID int64) {
	payload, _ := json.Marshal(requisitionPayload{RequisitionID: requisitionID})
	h.BroadcastToRoute(routeID, Event{Type: enum.EventRequisitionReleased, Payload: payload})
}

// RequisitionDeleted tells the route's dashboards a requisition was removed
// through the administrative path.
func (h *Hub) RequisitionDeleted(routeID, requisitionID int64) {
	payload, _ := json.Marshal(requisitionPayload{RequisitionID: requisitionID})
	h.BroadcastToRoute(routeID, Event{Type: enum.EventRequisitionDeleted, Payload: payload})
}
