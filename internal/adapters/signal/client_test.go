package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/dkeye/castlink/internal/app/orch"
	"github.com/dkeye/castlink/internal/app/session"
	"github.com/dkeye/castlink/internal/domain"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// serve runs script against the first connection. Reconnects are held
// open silently until the client goes away.
func serve(t *testing.T, script func(ws *websocket.Conn)) string {
	t.Helper()
	var once sync.Once
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		first := false
		once.Do(func() { first = true })
		if first {
			script(ws)
			return
		}
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	done   chan struct{}
	want   int
}

func (s *recordingSink) add(e string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if len(s.events) == s.want {
		close(s.done)
	}
}

func (s *recordingSink) OnAttendees(_ domain.SessionKey, a []domain.Attendee) {
	s.add("attendees:" + a[0].Display)
}
func (s *recordingSink) OnAttendeeJoined(_ domain.SessionKey, a domain.Attendee) {
	s.add("joined:" + a.ID)
}
func (s *recordingSink) OnAttendeeLeft(_ domain.SessionKey, id string) { s.add("left:" + id) }
func (s *recordingSink) OnIceServers(_ domain.SessionKey, srv []webrtc.ICEServer) {
	s.add("ice:" + srv[0].URLs[0])
}
func (s *recordingSink) OnHangup(domain.SessionKey) bool { s.add("hangup"); return true }
func (s *recordingSink) Join(context.Context, domain.SessionKey) (webrtc.Configuration, bool) {
	return webrtc.Configuration{}, false
}

func TestClient_Dispatch(t *testing.T) {
	frames := []string{
		`{"type":"attendees","session":1,"attendees":[{"id":"a","display":"Ann"}]}`,
		`{"type":"ice_servers","session":1,"ice_servers":[{"urls":["stun:s"]}]}`,
		`not json`,
		`{"type":"mystery"}`,
		`{"type":"joined","session":1,"attendee":{"id":"b"}}`,
		`{"type":"joined","session":1,"attendee":{}}`,
		`{"type":"unpublished","session":1,"id":"b"}`,
		`{"type":"left","session":1,"id":"a"}`,
		`{"type":"hangup","session":1}`,
	}
	url := serve(t, func(ws *websocket.Conn) {
		for _, f := range frames {
			_ = ws.WriteMessage(websocket.TextMessage, []byte(f))
		}
		_, _, _ = ws.ReadMessage()
	})

	sink := &recordingSink{done: make(chan struct{}), want: 6}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewClient(url, sink).Run(ctx) }()

	select {
	case <-sink.done:
	case <-time.After(3 * time.Second):
		t.Fatalf("events = %v", sink.events)
	}
	want := []string{"attendees:Ann", "ice:stun:s", "joined:b", "left:b", "left:a", "hangup"}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for i := range want {
		if sink.events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, sink.events[i], want[i])
		}
	}
}

func readType(t *testing.T, ws *websocket.Conn, want string) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Errorf("read: %v", err)
			return nil
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Errorf("reply not json: %s", data)
			return nil
		}
		if m["type"] == want {
			return m
		}
	}
}

func TestClient_JoinReady(t *testing.T) {
	o := &orch.Orchestrator{Sessions: session.NewRegistry(), JoinTimeout: 2 * time.Second}
	got := make(chan map[string]any, 2)

	url := serve(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		got <- readType(t, ws, "pong")

		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","session":5}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ice_servers","session":5,"ice_servers":[{"urls":["stun:stun.example.org"]}]}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"attendees","session":5,"attendees":[{"id":"a"}]}`))
		got <- readType(t, ws, "ready")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewClient(url, o).Run(ctx) }()

	for _, want := range []string{"pong", "ready"} {
		select {
		case m := <-got:
			if m == nil || m["type"] != want {
				t.Fatalf("reply = %v, want %s", m, want)
			}
			if want == "ready" {
				servers, _ := m["ice_servers"].([]any)
				if len(servers) != 1 || m["session"] != float64(5) {
					t.Errorf("ready = %v", m)
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s reply", want)
		}
	}
}

func TestClient_JoinFailedOnHangup(t *testing.T) {
	o := &orch.Orchestrator{Sessions: session.NewRegistry(), JoinTimeout: 2 * time.Second}
	got := make(chan map[string]any, 1)

	url := serve(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"attendees","session":6,"attendees":[{"id":"a"}]}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","session":6}`))
		time.Sleep(50 * time.Millisecond)
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"hangup","session":6}`))
		got <- readType(t, ws, "join_failed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewClient(url, o).Run(ctx) }()

	select {
	case m := <-got:
		if m == nil {
			t.Fatal("no join_failed reply")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestClient_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient("ws://127.0.0.1:1/none", &recordingSink{done: make(chan struct{})})
	c.MinBackoff = 10 * time.Millisecond

	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestClient_RepliesCarrySessionZero(t *testing.T) {
	o := &orch.Orchestrator{Sessions: session.NewRegistry(), JoinTimeout: 20 * time.Millisecond}
	got := make(chan map[string]any, 2)

	url := serve(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
		got <- readType(t, ws, "pong")
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","session":0}`))
		got <- readType(t, ws, "join_failed")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewClient(url, o).Run(ctx) }()

	for _, want := range []string{"pong", "join_failed"} {
		select {
		case m := <-got:
			if m == nil {
				t.Fatalf("no %s reply", want)
			}
			key, present := m["session"]
			switch want {
			case "pong":
				if present {
					t.Errorf("pong carries a session: %v", m)
				}
			case "join_failed":
				if !present || key != float64(0) {
					t.Errorf("join_failed = %v, want session 0", m)
				}
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no %s reply", want)
		}
	}
}
