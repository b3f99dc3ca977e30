package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
)

func dial(t *testing.T, server *httptest.Server, header http.Header) (*gorillaws.Conn, *http.Response, error) {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return gorillaws.DefaultDialer.Dial(wsURL, header)
}

func readEvent(t *testing.T, conn *gorillaws.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	return ev
}

func waitForSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers() = %d, want %d", h.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerStreamsEvents(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn, _, err := dial(t, server, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	waitForSubscribers(t, hub, 1)
	hub.Broadcast(context.Background(), Event{Type: EventRefreshed, Members: 12})

	if ev := readEvent(t, conn); ev.Members != 12 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestHandlerSendsInitialState(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(hub, WithInitialState(func() Event {
		return Event{Type: EventState, Members: 3}
	})))
	defer server.Close()

	conn, _, err := dial(t, server, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	if ev := readEvent(t, conn); ev.Type != EventState || ev.Members != 3 {
		t.Fatalf("unexpected first event: %+v", ev)
	}
}

func TestHandlerUnsubscribesOnDisconnect(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn, _, err := dial(t, server, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	waitForSubscribers(t, hub, 1)

	_ = conn.Close()
	waitForSubscribers(t, hub, 0)
}

func TestHandlerClosesWhenHubCloses(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(hub))
	defer server.Close()

	conn, _, err := dial(t, server, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()
	waitForSubscribers(t, hub, 1)

	hub.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !gorillaws.IsCloseError(err, gorillaws.CloseGoingAway) {
		t.Fatalf("expected going-away close, got %v", err)
	}
}

func TestHandlerAllowedOrigin(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(Handler(hub, WithAllowedOrigin("https://board.example")))
	defer server.Close()

	_, resp, err := dial(t, server, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("expected upgrade to be refused for foreign origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected response: %+v", resp)
	}

	conn, _, err := dial(t, server, http.Header{"Origin": {"https://board.example"}})
	if err != nil {
		t.Fatalf("dial with allowed origin: %v", err)
	}
	conn.Close()
}
