package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sleeping-barber/internal/model"
)

func TestHubStreamsEventsToWatchers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub()
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/v1/shop/stream", hub.Serve)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/shop/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Watchers() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never registered")
		}
		time.Sleep(time.Millisecond)
	}

	hub.Observe(model.ShopEvent{Kind: model.EventBalked, ClientID: 9, Waiting: 3, At: time.Now()})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev model.ShopEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != model.EventBalked || ev.ClientID != 9 || ev.Waiting != 3 {
		t.Errorf("received %+v", ev)
	}
}

func TestObserveWithoutWatchersDoesNotBlock(t *testing.T) {
	hub := NewHub() // Run intentionally not started
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Observe(model.ShopEvent{Kind: model.EventSeated})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked with a full broadcast buffer")
	}
}

func TestHubChecksOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub("https://board.example")
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/v1/shop/stream", hub.Serve)
	srv := httptest.NewServer(e)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/shop/stream"

	tests := []struct {
		origin string
		ok     bool
	}{
		{"", true},
		{"https://board.example", true},
		{srv.URL, true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		header := http.Header{}
		if tt.origin != "" {
			header.Set("Origin", tt.origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if tt.ok {
			if err != nil {
				t.Errorf("origin %q: dial: %v", tt.origin, err)
				continue
			}
			conn.Close()
			continue
		}
		if err == nil {
			conn.Close()
			t.Errorf("origin %q: connected, want rejection", tt.origin)
			continue
		}
		if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("origin %q: response %v, want 403", tt.origin, resp)
		}
	}
}
