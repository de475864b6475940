package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"airjump/internal/events"
)

func TestLiveFeedStreamsEvents(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.signUp(t, "admin@example.com")
	parentToken := s.signUp(t, "parent@example.com")

	srv := httptest.NewServer(s.mux)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/live"

	header := http.Header{}
	header.Set("Authorization", "Bearer "+parentToken)
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatal("parent should not be able to open the live feed")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("parent dial response = %v, want 403", resp)
	}

	header.Set("Authorization", "Bearer "+adminToken)
	header.Set("Origin", "https://evil.example.com")
	if _, _, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
		t.Fatal("unknown origin should be rejected")
	}

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.hub.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("live feed never subscribed to the hub")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.hub.Publish(events.AlertRaised, map[string]string{"child_name": "Lucas"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt events.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if evt.Type != events.AlertRaised || !strings.Contains(string(evt.Data), "Lucas") {
		t.Errorf("event = %+v", evt)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for s.hub.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("live feed did not unsubscribe after the client left")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
