// E2E test: drives two WebSocket clients against a live sync server and
// checks hydration, broadcast, and departure behavior.
// Usage: go run ./cmd/e2etest -server ws://localhost:8080/ws
package main

import (
	"encoding/json"
	"flag"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

var serverURL = flag.String("server", "ws://localhost:8080/ws", "sync server WebSocket URL")

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	roomID := "e2e-test-room"

	// --- Connect A and join ---
	log.Println(">> Connecting A...")
	a := dial(*serverURL)
	defer a.Close()
	emit(a, "join", map[string]string{"roomId": roomID, "username": "alice"})
	expect(a, "joined")
	log.Println("   A joined ✓")

	// --- A draws one snapshot ---
	log.Println(">> A sending canvas snapshot...")
	emit(a, "canvas-state", map[string]any{"roomId": roomID, "imgData": "frame1"})
	log.Println("   Sent ✓")

	// --- Connect B: must be hydrated before the roster ---
	log.Println(">> Connecting B...")
	b := dial(*serverURL)
	defer b.Close()
	emit(b, "join", map[string]string{"roomId": roomID, "username": "bob"})

	env := expect(b, "canvas-state")
	var st struct {
		History []string `json:"history"`
		Step    int      `json:"step"`
	}
	must(json.Unmarshal(env.Data, &st), "decode hydration")
	if len(st.History) != 1 || st.History[0] != "frame1" || st.Step != 0 {
		log.Fatalf("bad hydration: %+v", st)
	}
	expect(b, "joined")
	expect(a, "joined") // A hears about B
	log.Println("   B hydrated ✓")

	// --- A edits code; B receives it, A gets no echo ---
	log.Println(">> A sending code-change...")
	emit(a, "code-change", map[string]string{"roomId": roomID, "code": "print(1)"})
	env = expect(b, "code-change")
	var code struct {
		Code string `json:"code"`
	}
	must(json.Unmarshal(env.Data, &code), "decode code-change")
	if code.Code != "print(1)" {
		log.Fatalf("B got code %q, want print(1)", code.Code)
	}
	log.Println("   B received ✓")

	// --- B disconnects; A is notified ---
	// The next event A sees must be the departure, which also proves the
	// code-change was never echoed back to its sender.
	log.Println(">> B disconnecting...")
	b.Close()
	env = expect(a, "disconnected")
	var dep struct {
		Username string `json:"username"`
	}
	must(json.Unmarshal(env.Data, &dep), "decode disconnected")
	if dep.Username != "bob" {
		log.Fatalf("departure username %q, want bob", dep.Username)
	}
	log.Println("   A notified ✓")

	log.Println("ALL TESTS PASSED")
}

func dial(url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func emit(conn *websocket.Conn, event string, data any) {
	raw, err := json.Marshal(data)
	must(err, "marshal payload")
	frame, err := json.Marshal(&envelope{Event: event, Data: raw})
	must(err, "marshal envelope")
	must(conn.WriteMessage(websocket.TextMessage, frame), "write")
}

func expect(conn *websocket.Conn, event string) envelope {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, frame, err := conn.ReadMessage()
	must(err, "read")

	var env envelope
	must(json.Unmarshal(frame, &env), "decode envelope")
	if env.Event != event {
		log.Fatalf("got event %q, want %q", env.Event, event)
	}
	return env
}

func must(err error, what string) {
	if err != nil {
		log.Fatalf("%s: %v", what, err)
	}
}
