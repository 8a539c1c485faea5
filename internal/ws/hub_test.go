package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/merenda/planning-api/internal/enum"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, routeID int64) *Client {
	return &Client{
		hub:     hub,
		routeID: routeID,
		send:    make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, 7)

	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[7] == nil {
		t.Fatal("route room not created")
	}
	if !hub.rooms[7][client] {
		t.Fatal("client not registered in route room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, 7)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[7] != nil {
		t.Fatal("route room not cleaned up after last client unregistered")
	}
}

func TestReleaseReachesOnlySubscribedRoute(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, 1)
	client2 := mockClient(hub, 2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.RequisitionReleased(1, 42)

	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != enum.EventRequisitionReleased {
			t.Errorf("expected type %q, got %q", enum.EventRequisitionReleased, received.Type)
		}
		var payload requisitionPayload
		if err := json.Unmarshal(received.Payload, &payload); err != nil {
			t.Fatalf("failed to unmarshal payload: %v", err)
		}
		if payload.RequisitionID != 42 {
			t.Errorf("requisition id: got %d, want 42", payload.RequisitionID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("route 1 client did not receive release")
	}

	select {
	case <-client2.send:
		t.Fatal("route 2 client should not have received release for route 1")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestDeletionBroadcastToWholeRoute(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, 3)
	client2 := mockClient(hub, 3)
	client3 := mockClient(hub, 3)

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	hub.RequisitionDeleted(3, 11)

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != enum.EventRequisitionDeleted {
				t.Errorf("client%d: expected type %q, got %q", i+1, enum.EventRequisitionDeleted, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive deletion event", i+1)
		}
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, 5)
	client2 := mockClient(hub, 5)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[5]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[5]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[5]) != 1 {
		t.Fatalf("expected 1 client after first unregister, got %d", len(hub.rooms[5]))
	}
	hub.mu.RUnlock()

	hub.unregister <- client2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if hub.rooms[5] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
	hub.mu.RUnlock()
}

func TestBroadcastToRouteWithNoSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, 1)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	// Nobody subscribed to route 99; nothing should reach route 1.
	hub.RequisitionReleased(99, 42)

	select {
	case <-client.send:
		t.Fatal("client should not receive events for another route")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}
