package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()

	cfg := testConfig()
	cfg.ClientOrigin = "*"
	cfg.RateLimitPerIP = 1000
	cfg.ExecuteURL = "http://unused.invalid"
	cfg.ExecuteTimeout = time.Second

	hub := NewHub(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := NewServer(cfg, hub)
	ts := httptest.NewServer(srv.srv.Handler)

	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts, hub
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame, err := encodeEvent(event, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("bad frame %s: %v", frame, err)
	}
	return env
}

func TestServer_Health(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	ts, _ := startTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/execute", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}

func TestServer_ExecuteUnknownLanguage(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := http.Post(ts.URL+"/api/execute", "application/json",
		strings.NewReader(`{"code":"x","language":"cobol"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

// Covers the end-to-end late-joiner scenario: A joins an empty room, draws
// one snapshot, then B joins and must be hydrated with the rebuilt history
// before hearing about its own join.
func TestServer_LateJoinerCanvasHydration(t *testing.T) {
	ts, _ := startTestServer(t)

	a := dialWS(t, ts)
	sendEnvelope(t, a, evJoin, map[string]string{"roomId": "r1", "username": "alice"})
	if env := readEnvelope(t, a); env.Event != evJoined {
		t.Fatalf("a got %q, want %q", env.Event, evJoined)
	}

	sendEnvelope(t, a, evCanvasState, map[string]any{"roomId": "r1", "imgData": "frame1"})

	b := dialWS(t, ts)
	sendEnvelope(t, b, evJoin, map[string]string{"roomId": "r1", "username": "bob"})

	env := readEnvelope(t, b)
	if env.Event != evCanvasState {
		t.Fatalf("first event to b is %q, want %q", env.Event, evCanvasState)
	}
	var st canvasStatePayload
	if err := json.Unmarshal(env.Data, &st); err != nil {
		t.Fatal(err)
	}
	if len(st.History) != 1 || st.History[0] != "frame1" || st.Step != 0 {
		t.Errorf("hydration %+v, want {[frame1] 0}", st)
	}

	if env := readEnvelope(t, b); env.Event != evJoined {
		t.Fatalf("second event to b is %q, want %q", env.Event, evJoined)
	}
}

// Covers the no-echo scenario: a code-change reaches the peer but never
// bounces back to its sender.
func TestServer_CodeChangeNoEcho(t *testing.T) {
	ts, _ := startTestServer(t)

	a := dialWS(t, ts)
	sendEnvelope(t, a, evJoin, map[string]string{"roomId": "r2", "username": "alice"})
	readEnvelope(t, a) // own joined

	b := dialWS(t, ts)
	sendEnvelope(t, b, evJoin, map[string]string{"roomId": "r2", "username": "bob"})
	readEnvelope(t, b) // own joined
	readEnvelope(t, a) // join notification for b

	sendEnvelope(t, a, evCodeChange, map[string]string{"roomId": "r2", "code": "print(1)"})

	env := readEnvelope(t, b)
	if env.Event != evCodeChange {
		t.Fatalf("b got %q, want %q", env.Event, evCodeChange)
	}
	var p codePayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Code != "print(1)" {
		t.Errorf("b got code %q, want print(1)", p.Code)
	}

	// The sender's connection must stay silent.
	_ = a.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, frame, err := a.ReadMessage(); err == nil {
		t.Errorf("sender received echo: %s", frame)
	}
}

func TestServer_DisconnectNotifiesPeers(t *testing.T) {
	ts, hub := startTestServer(t)

	a := dialWS(t, ts)
	sendEnvelope(t, a, evJoin, map[string]string{"roomId": "r3", "username": "alice"})
	readEnvelope(t, a)

	b := dialWS(t, ts)
	sendEnvelope(t, b, evJoin, map[string]string{"roomId": "r3", "username": "bob"})
	readEnvelope(t, b)
	readEnvelope(t, a)

	b.Close()

	env := readEnvelope(t, a)
	if env.Event != evDisconnected {
		t.Fatalf("a got %q, want %q", env.Event, evDisconnected)
	}
	var p disconnectedPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Username != "bob" {
		t.Errorf("departure username %q, want bob", p.Username)
	}

	// One occupant left: the room survives but its state is abandoned.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount("r3") != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := hub.ClientCount("r3"); n != 1 {
		t.Errorf("membership = %d, want 1", n)
	}
}
