package main

// CanvasState is one room's drawing history: an ordered list of snapshots
// plus a cursor marking the currently visible one. Step is -1 while the
// history is empty or fully undone, otherwise it indexes History.
type CanvasState struct {
	History []string
	Step    int
}

// CanvasStore keeps per-room drawing histories. It is owned by the hub's
// run loop; nothing else mutates it.
type CanvasStore struct {
	states map[string]*CanvasState
}

func NewCanvasStore() *CanvasStore {
	return &CanvasStore{states: make(map[string]*CanvasState)}
}

// Get returns a copy of the room's state so callers never alias the
// stored history slice.
func (s *CanvasStore) Get(roomID string) (CanvasState, bool) {
	st, ok := s.states[roomID]
	if !ok {
		return CanvasState{}, false
	}
	out := CanvasState{History: make([]string, len(st.History)), Step: st.Step}
	copy(out.History, st.History)
	return out, true
}

// Replace stores a fully-formed history and cursor, e.g. after a client
// performed several local undo/redo steps. The history is copied, and a
// cursor outside [-1, len-1] is clamped so it always points at a valid
// snapshot.
func (s *CanvasStore) Replace(roomID string, history []string, step int) {
	h := make([]string, len(history))
	copy(h, history)
	if step < -1 {
		step = -1
	}
	if step > len(h)-1 {
		step = len(h) - 1
	}
	s.states[roomID] = &CanvasState{History: h, Step: step}
}

// Append records a new snapshot under the linear-undo contract: truncate
// the history past the cursor, append, and move the cursor to the new end.
// A new action after an undo therefore discards the redo tail.
func (s *CanvasStore) Append(roomID, snapshot string) {
	prev, ok := s.states[roomID]
	if !ok {
		prev = &CanvasState{Step: -1}
	}
	h := make([]string, 0, prev.Step+2)
	h = append(h, prev.History[:prev.Step+1]...)
	h = append(h, snapshot)
	s.states[roomID] = &CanvasState{History: h, Step: len(h) - 1}
}

// Clear drops the room's history entirely.
func (s *CanvasStore) Clear(roomID string) {
	delete(s.states, roomID)
}
