package main

// Presence maps a connection ID to the display name bound at join time.
// A connection has at most one name; re-joining with a new name replaces
// the binding. Names are not unique within a room.
type Presence struct {
	names map[string]string
}

func NewPresence() *Presence {
	return &Presence{names: make(map[string]string)}
}

func (p *Presence) Bind(connID, username string) {
	p.names[connID] = username
}

// Lookup returns the bound name, or "" if the connection never joined.
func (p *Presence) Lookup(connID string) string {
	return p.names[connID]
}

func (p *Presence) Unbind(connID string) {
	delete(p.names, connID)
}
