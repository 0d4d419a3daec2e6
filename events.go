package main

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names accepted from clients.
const (
	evJoin        = "join"
	evCodeChange  = "code-change"
	evSyncCode    = "sync-code"
	evCanvasDraw  = "canvas-draw"
	evCanvasState = "canvas-state"
	evCanvasClear = "canvas-clear"
)

// Outbound-only event names.
const (
	evJoined       = "joined"
	evDisconnected = "disconnected"
)

// Envelope is the wire framing: one JSON object per WebSocket text frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var errMalformedEvent = errors.New("malformed event")

// Event is the tagged form an inbound frame is decoded into before it
// reaches the hub. The hub switches on the concrete type; payload shape
// is settled here at the boundary and never re-inspected.
type Event interface {
	isEvent()
}

type JoinEvent struct {
	RoomID   string
	Username string
}

type CodeChangeEvent struct {
	RoomID string
	Code   string
}

type SyncCodeEvent struct {
	SocketID string
	Code     string
}

// CanvasDrawEvent carries a live stroke. Data is the payload minus roomId,
// forwarded verbatim and never stored.
type CanvasDrawEvent struct {
	RoomID string
	Data   json.RawMessage
}

// CanvasShape discriminates the two canvas-state payload variants.
type CanvasShape int

const (
	// ShapeFullState replaces the whole history (history + step present).
	ShapeFullState CanvasShape = iota
	// ShapeSnapshot appends one snapshot (imgData present).
	ShapeSnapshot
)

type CanvasStateEvent struct {
	RoomID string
	Shape  CanvasShape

	// Full-state variant. Kind is the client's label, echoed on broadcast.
	History []string
	Step    int
	Kind    string

	// Snapshot variant.
	Snapshot string
}

type CanvasClearEvent struct {
	RoomID string
}

func (*JoinEvent) isEvent()        {}
func (*CodeChangeEvent) isEvent()  {}
func (*SyncCodeEvent) isEvent()    {}
func (*CanvasDrawEvent) isEvent()  {}
func (*CanvasStateEvent) isEvent() {}
func (*CanvasClearEvent) isEvent() {}

// DecodeEvent parses one inbound frame into its tagged variant. Any frame
// that doesn't match a known event and payload shape is rejected; callers
// drop rejected frames without side effects.
func DecodeEvent(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	switch env.Event {
	case evJoin:
		var p struct {
			RoomID   string `json:"roomId"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return nil, errMalformedEvent
		}
		return &JoinEvent{RoomID: p.RoomID, Username: p.Username}, nil

	case evCodeChange:
		var p struct {
			RoomID string `json:"roomId"`
			Code   string `json:"code"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return nil, errMalformedEvent
		}
		return &CodeChangeEvent{RoomID: p.RoomID, Code: p.Code}, nil

	case evSyncCode:
		var p struct {
			SocketID string `json:"socketId"`
			Code     string `json:"code"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil || p.SocketID == "" {
			return nil, errMalformedEvent
		}
		return &SyncCodeEvent{SocketID: p.SocketID, Code: p.Code}, nil

	case evCanvasDraw:
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(env.Data, &fields); err != nil {
			return nil, errMalformedEvent
		}
		var roomID string
		if raw, ok := fields["roomId"]; !ok || json.Unmarshal(raw, &roomID) != nil || roomID == "" {
			return nil, errMalformedEvent
		}
		delete(fields, "roomId")
		rest, err := json.Marshal(fields)
		if err != nil {
			return nil, errMalformedEvent
		}
		return &CanvasDrawEvent{RoomID: roomID, Data: rest}, nil

	case evCanvasState:
		var p struct {
			RoomID  string    `json:"roomId"`
			History *[]string `json:"history"`
			Step    *int      `json:"step"`
			ImgData *string   `json:"imgData"`
			Kind    string    `json:"kind"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return nil, errMalformedEvent
		}
		switch {
		case p.History != nil && p.Step != nil:
			kind := p.Kind
			if kind == "" {
				kind = "state"
			}
			return &CanvasStateEvent{
				RoomID:  p.RoomID,
				Shape:   ShapeFullState,
				History: *p.History,
				Step:    *p.Step,
				Kind:    kind,
			}, nil
		case p.ImgData != nil:
			return &CanvasStateEvent{
				RoomID:   p.RoomID,
				Shape:    ShapeSnapshot,
				Snapshot: *p.ImgData,
			}, nil
		default:
			return nil, errMalformedEvent
		}

	case evCanvasClear:
		var p struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil || p.RoomID == "" {
			return nil, errMalformedEvent
		}
		return &CanvasClearEvent{RoomID: p.RoomID}, nil
	}

	return nil, fmt.Errorf("%w: unknown event %q", errMalformedEvent, env.Event)
}

// Member is one roster entry in a joined broadcast.
type Member struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type joinedPayload struct {
	Clients  []Member `json:"clients"`
	Username string   `json:"username"`
	SocketID string   `json:"socketId"`
}

type codePayload struct {
	Code string `json:"code"`
}

type canvasStatePayload struct {
	History []string `json:"history"`
	Step    int      `json:"step"`
	Kind    string   `json:"kind"`
}

type disconnectedPayload struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// encodeEvent frames an outbound event. data may be nil for bare events
// like canvas-clear.
func encodeEvent(event string, data any) ([]byte, error) {
	env := Envelope{Event: event}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = b
	}
	return json.Marshal(&env)
}
