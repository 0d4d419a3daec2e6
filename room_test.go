package main

import (
	"testing"
	"time"
)

func roomClient(connID string) *Client {
	return &Client{
		connID: connID,
		send:   make(chan []byte, 10),
		rooms:  make(map[string]struct{}),
	}
}

func TestRoom_AddRemove(t *testing.T) {
	room := NewRoom("test-room")

	c1 := roomClient("conn-1")
	c2 := roomClient("conn-2")

	room.Add(c1)
	if room.ClientCount() != 1 {
		t.Errorf("expected 1 client, got %d", room.ClientCount())
	}
	if !room.Has("conn-1") {
		t.Error("expected room to contain conn-1")
	}

	room.Add(c2)
	if room.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", room.ClientCount())
	}

	// Adding the same connection again is idempotent.
	room.Add(c1)
	if room.ClientCount() != 2 {
		t.Errorf("expected 2 clients after re-add, got %d", room.ClientCount())
	}

	room.Remove(c1)
	if room.ClientCount() != 1 {
		t.Errorf("expected 1 client after remove, got %d", room.ClientCount())
	}
	if room.Has("conn-1") {
		t.Error("conn-1 should be gone")
	}

	room.Remove(c2)
	if room.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", room.ClientCount())
	}
}

func TestRoom_Broadcast(t *testing.T) {
	room := NewRoom("test-room")

	c1 := roomClient("conn-1")
	c2 := roomClient("conn-2")
	c3 := roomClient("conn-3")

	room.Add(c1)
	room.Add(c2)
	room.Add(c3)

	// Broadcast from c1 — should reach c2 and c3 but not c1
	room.Broadcast("conn-1", []byte("hello"))

	for _, c := range []*Client{c2, c3} {
		select {
		case msg := <-c.send:
			if string(msg) != "hello" {
				t.Errorf("%s got %q, want %q", c.connID, msg, "hello")
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s did not receive message", c.connID)
		}
	}

	// Verify c1 did NOT receive (sender excluded)
	select {
	case <-c1.send:
		t.Error("sender c1 should not receive own broadcast")
	case <-time.After(50 * time.Millisecond):
		// OK — no message for sender
	}
}

func TestRoom_BroadcastFullBufferDropsFrame(t *testing.T) {
	room := NewRoom("test-room")

	slow := &Client{connID: "slow", send: make(chan []byte, 1), rooms: make(map[string]struct{})}
	room.Add(slow)

	room.Broadcast("other", []byte("one"))
	room.Broadcast("other", []byte("two")) // buffer full, dropped

	if got := <-slow.send; string(got) != "one" {
		t.Errorf("got %q, want %q", got, "one")
	}
	select {
	case got := <-slow.send:
		t.Errorf("dropped frame was delivered: %q", got)
	default:
	}
}

func TestRoom_ClientsSnapshot(t *testing.T) {
	room := NewRoom("test-room")
	room.Add(roomClient("conn-1"))
	room.Add(roomClient("conn-2"))

	clients := room.Clients()
	if len(clients) != 2 {
		t.Fatalf("snapshot has %d clients, want 2", len(clients))
	}

	seen := map[string]bool{}
	for _, c := range clients {
		seen[c.connID] = true
	}
	if !seen["conn-1"] || !seen["conn-2"] {
		t.Errorf("snapshot missing members: %v", seen)
	}
}
