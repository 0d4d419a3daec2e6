package main

import (
	"sync"
)

// Room tracks the connections currently joined to one room ID. The room
// exists exactly while this set is non-empty; the hub drops it from the
// directory once the last member leaves.
type Room struct {
	id      string
	mu      sync.RWMutex
	clients map[string]*Client
}

func NewRoom(id string) *Room {
	return &Room{
		id:      id,
		clients: make(map[string]*Client),
	}
}

func (r *Room) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.connID] = c
}

func (r *Room) Remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c.connID)
}

func (r *Room) Has(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[connID]
	return ok
}

func (r *Room) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Clients returns a snapshot of the current members. Order is not stable
// across calls.
func (r *Room) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast queues data for every member except the sender. A member whose
// send buffer is full misses the frame; delivery is at-most-once.
func (r *Room) Broadcast(senderConnID string, data []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.clients {
		if c.connID == senderConnID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client's send buffer full — drop message
		}
	}
}

func (r *Room) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.clients {
		c.Close()
	}
}
