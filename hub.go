package main

import (
	"context"
	"log"
	"sync"

	"github.com/samber/lo"
)

// Hub is the synchronization engine. A single Run goroutine drains the
// register, unregister, and event channels, so every store mutation and
// broadcast happens in event-arrival order. The presence, code, and canvas
// stores are touched only from that goroutine; the room directory carries
// its own lock because HTTP handlers read counts from it.
type Hub struct {
	cfg *Config

	mu    sync.RWMutex
	rooms map[string]*Room
	conns map[string]*Client // connID → live connection

	presence *Presence
	code     *CodeStore
	canvas   *CanvasStore

	registerCh   chan *Client
	unregisterCh chan *Client
	eventCh      chan inbound
}

// inbound pairs a decoded event with the connection that sent it.
type inbound struct {
	sender *Client
	event  Event
}

func NewHub(cfg *Config) *Hub {
	return &Hub{
		cfg:          cfg,
		rooms:        make(map[string]*Room),
		conns:        make(map[string]*Client),
		presence:     NewPresence(),
		code:         NewCodeStore(),
		canvas:       NewCanvasStore(),
		registerCh:   make(chan *Client, 64),
		unregisterCh: make(chan *Client, 64),
		eventCh:      make(chan inbound, 2048),
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.registerCh:
			h.addClient(client)

		case client := <-h.unregisterCh:
			h.removeClient(client)

		case in := <-h.eventCh:
			h.handleEvent(in.sender, in.event)
		}
	}
}

func (h *Hub) Register(c *Client) {
	h.registerCh <- c
}

func (h *Hub) Unregister(c *Client) {
	h.unregisterCh <- c
}

// Dispatch queues a decoded event for the run loop.
func (h *Hub) Dispatch(c *Client, e Event) {
	h.eventCh <- inbound{sender: c, event: e}
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if room, ok := h.rooms[roomID]; ok {
		return room.ClientCount()
	}
	return 0
}

func (h *Hub) room(roomID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID]
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.conns[c.connID] = c
	h.mu.Unlock()

	log.Printf("conn %s connected (ip=%s)", short(c.connID), c.ip)

	go c.ReadPump()
	go c.WritePump()
}

// removeClient runs the disconnecting lifecycle: notify every room the
// connection was in, recount, and discard a room's collaborative state
// once occupancy falls to the abandon threshold.
func (h *Hub) removeClient(c *Client) {
	username := h.presence.Lookup(c.connID)

	for roomID := range c.rooms {
		room := h.room(roomID)
		if room == nil {
			continue
		}

		h.broadcastEvent(room, c.connID, evDisconnected, &disconnectedPayload{
			SocketID: c.connID,
			Username: username,
		})

		room.Remove(c)
		remaining := room.ClientCount()

		if remaining == 0 {
			h.mu.Lock()
			delete(h.rooms, roomID)
			h.mu.Unlock()
			log.Printf("room %s destroyed (no clients)", roomID)
		}

		// A single-occupant room keeps no collaborative state either:
		// the next joiner starts from a clean document and canvas.
		if remaining <= h.cfg.RoomAbandonThreshold {
			h.code.Clear(roomID)
			h.canvas.Clear(roomID)
		}
	}

	h.presence.Unbind(c.connID)
	h.mu.Lock()
	delete(h.conns, c.connID)
	h.mu.Unlock()
	c.Close()

	log.Printf("conn %s (%s) disconnected", short(c.connID), username)
}

func (h *Hub) handleEvent(c *Client, e Event) {
	switch ev := e.(type) {
	case *JoinEvent:
		h.handleJoin(c, ev)
	case *CodeChangeEvent:
		h.handleCodeChange(c, ev)
	case *SyncCodeEvent:
		h.handleSyncCode(ev)
	case *CanvasDrawEvent:
		h.handleCanvasDraw(c, ev)
	case *CanvasStateEvent:
		h.handleCanvasState(c, ev)
	case *CanvasClearEvent:
		h.handleCanvasClear(c, ev)
	}
}

func (h *Hub) handleJoin(c *Client, ev *JoinEvent) {
	h.mu.Lock()
	room, ok := h.rooms[ev.RoomID]
	switch {
	case !ok && len(h.rooms) >= h.cfg.MaxRooms:
		h.mu.Unlock()
		log.Printf("join refused: max rooms reached (room=%s)", ev.RoomID)
		return
	case ok && !room.Has(c.connID) && room.ClientCount() >= h.cfg.MaxClientsPerRoom:
		h.mu.Unlock()
		log.Printf("join refused: room %s full", ev.RoomID)
		return
	case !ok:
		room = NewRoom(ev.RoomID)
		h.rooms[ev.RoomID] = room
	}
	h.mu.Unlock()

	// Re-joining the same room just refreshes the name binding.
	h.presence.Bind(c.connID, ev.Username)
	room.Add(c)
	c.rooms[ev.RoomID] = struct{}{}

	// Hydrate the newcomer before anyone hears about the join.
	if code, ok := h.code.Get(ev.RoomID); ok {
		c.Emit(evCodeChange, &codePayload{Code: code})
	}
	if st, ok := h.canvas.Get(ev.RoomID); ok {
		c.Emit(evCanvasState, &canvasStatePayload{History: st.History, Step: st.Step, Kind: "state"})
	}

	payload := &joinedPayload{
		Clients:  h.roster(room),
		Username: ev.Username,
		SocketID: c.connID,
	}
	h.broadcastEvent(room, c.connID, evJoined, payload)
	c.Emit(evJoined, payload)

	log.Printf("%s (conn=%s) joined room %s (%d members)", ev.Username, short(c.connID), ev.RoomID, len(payload.Clients))
}

func (h *Hub) handleCodeChange(c *Client, ev *CodeChangeEvent) {
	h.code.Set(ev.RoomID, ev.Code)
	if room := h.room(ev.RoomID); room != nil {
		h.broadcastEvent(room, c.connID, evCodeChange, &codePayload{Code: ev.Code})
	}
}

// handleSyncCode pushes content directly to one peer, bypassing the store.
// An unknown target is a no-op.
func (h *Hub) handleSyncCode(ev *SyncCodeEvent) {
	h.mu.RLock()
	target := h.conns[ev.SocketID]
	h.mu.RUnlock()
	if target == nil {
		return
	}
	target.Emit(evCodeChange, &codePayload{Code: ev.Code})
}

func (h *Hub) handleCanvasDraw(c *Client, ev *CanvasDrawEvent) {
	if room := h.room(ev.RoomID); room != nil {
		h.broadcastEvent(room, c.connID, evCanvasDraw, ev.Data)
	}
}

func (h *Hub) handleCanvasState(c *Client, ev *CanvasStateEvent) {
	room := h.room(ev.RoomID)

	switch ev.Shape {
	case ShapeFullState:
		h.canvas.Replace(ev.RoomID, ev.History, ev.Step)
		if room != nil {
			h.broadcastEvent(room, c.connID, evCanvasState, &canvasStatePayload{
				History: ev.History,
				Step:    ev.Step,
				Kind:    ev.Kind,
			})
		}
	case ShapeSnapshot:
		h.canvas.Append(ev.RoomID, ev.Snapshot)
		// Delta broadcast: peers get the bare snapshot, not the whole
		// history. Late joiners rebuild from the store at join time.
		if room != nil {
			h.broadcastEvent(room, c.connID, evCanvasState, ev.Snapshot)
		}
	}
}

func (h *Hub) handleCanvasClear(c *Client, ev *CanvasClearEvent) {
	h.canvas.Clear(ev.RoomID)
	if room := h.room(ev.RoomID); room != nil {
		h.broadcastEvent(room, c.connID, evCanvasClear, nil)
	}
}

// roster derives the {socketId, username} list for a room's current members.
func (h *Hub) roster(room *Room) []Member {
	return lo.Map(room.Clients(), func(c *Client, _ int) Member {
		return Member{SocketID: c.connID, Username: h.presence.Lookup(c.connID)}
	})
}

func (h *Hub) broadcastEvent(room *Room, senderConnID, event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("encode %s: %v", event, err)
		return
	}
	room.Broadcast(senderConnID, frame)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		room.CloseAll()
	}
	h.rooms = make(map[string]*Room)
	h.conns = make(map[string]*Client)
}
