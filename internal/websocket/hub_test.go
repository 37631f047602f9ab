// Registrar - Shareholder Registry Import Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/registrar

package websocket

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	registryimport "github.com/tomtom215/registrar/internal/import"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc, <-chan error) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()
	t.Cleanup(cancel)
	return hub, cancel, done
}

func fakeClient(hub *Hub, id uint64, buffer int) *Client {
	return &Client{id: id, hub: hub, send: make(chan Message, buffer)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("GetClientCount() = %d, want %d", hub.GetClientCount(), want)
}

func TestHub_BroadcastProgress(t *testing.T) {
	hub, _, _ := startHub(t)
	c := fakeClient(hub, 1, 4)
	hub.Register <- c
	waitClients(t, hub, 1)

	hub.BroadcastProgress(registryimport.Progress{SessionID: "s1", OverallPercent: 42})

	msg := receive(t, c)
	if msg.Type != MessageTypeImportProgress {
		t.Fatalf("Type = %q, want %q", msg.Type, MessageTypeImportProgress)
	}
	p, ok := msg.Data.(registryimport.Progress)
	if !ok {
		t.Fatalf("Data = %T, want registryimport.Progress", msg.Data)
	}
	if p.OverallPercent != 42 {
		t.Errorf("OverallPercent = %v, want 42", p.OverallPercent)
	}
}

func TestHub_NewClientReceivesLatestProgress(t *testing.T) {
	hub, _, _ := startHub(t)
	hub.BroadcastProgress(registryimport.Progress{SessionID: "s1", OverallPercent: 10})
	hub.BroadcastProgress(registryimport.Progress{SessionID: "s1", OverallPercent: 20})

	c := fakeClient(hub, 1, 4)
	hub.Register <- c

	msg := receive(t, c)
	p := msg.Data.(registryimport.Progress)
	if p.OverallPercent != 20 {
		t.Errorf("replayed OverallPercent = %v, want 20", p.OverallPercent)
	}
}

func TestHub_BroadcastEvent(t *testing.T) {
	session := &registryimport.Session{ID: "s1", Status: registryimport.StatusActive}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		ev        registryimport.Event
		delivered bool
	}{
		{"file failed", registryimport.Event{Type: registryimport.EventFileFailed, Session: session, File: "a.csv", Err: errors.New("boom"), At: at}, true},
		{"rate limited", registryimport.Event{Type: registryimport.EventRateLimited, Session: session, Batch: 3, At: at}, true},
		{"batch acknowledged", registryimport.Event{Type: registryimport.EventBatchAcknowledged, Session: session, At: at}, false},
		{"no session", registryimport.Event{Type: registryimport.EventCompleted, At: at}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub, _, _ := startHub(t)
			c := fakeClient(hub, 1, 4)
			hub.Register <- c
			waitClients(t, hub, 1)

			hub.BroadcastEvent(tt.ev)

			if !tt.delivered {
				select {
				case msg := <-c.send:
					t.Errorf("unexpected message %+v", msg)
				case <-time.After(50 * time.Millisecond):
				}
				return
			}

			msg := receive(t, c)
			data, ok := msg.Data.(ImportEventData)
			if !ok {
				t.Fatalf("Data = %T, want ImportEventData", msg.Data)
			}
			if data.Event != string(tt.ev.Type) {
				t.Errorf("Event = %q, want %q", data.Event, tt.ev.Type)
			}
			if data.Timestamp != "2026-03-01T12:00:00Z" {
				t.Errorf("Timestamp = %q", data.Timestamp)
			}
			if tt.ev.Err != nil && data.Error != tt.ev.Err.Error() {
				t.Errorf("Error = %q, want %q", data.Error, tt.ev.Err.Error())
			}
		})
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub, _, _ := startHub(t)
	slow := fakeClient(hub, 1, 1)
	fast := fakeClient(hub, 2, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitClients(t, hub, 2)

	hub.BroadcastJSON(MessageTypeImportEvent, "one")
	hub.BroadcastJSON(MessageTypeImportEvent, "two")

	waitClients(t, hub, 1)
	if got := receive(t, fast); got.Data != "one" {
		t.Errorf("first message = %v, want one", got.Data)
	}
	if got := receive(t, fast); got.Data != "two" {
		t.Errorf("second message = %v, want two", got.Data)
	}
}

func TestHub_ServeClosesClientsOnShutdown(t *testing.T) {
	hub, cancel, done := startHub(t)
	c := fakeClient(hub, 1, 1)
	hub.Register <- c
	waitClients(t, hub, 1)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	if _, ok := <-c.send; ok {
		t.Error("client send channel still open after shutdown")
	}
	if n := hub.GetClientCount(); n != 0 {
		t.Errorf("GetClientCount() = %d, want 0", n)
	}
}

func TestHandler_PingPong(t *testing.T) {
	hub, _, _ := startHub(t)
	srv := httptest.NewServer(NewHandler(hub, []string{"*"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypePong)
	}
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"", []string{"example.com"}, true},
		{"https://evil.test", []string{"*"}, true},
		{"https://ops.example.com", []string{"https://ops.example.com"}, true},
		{"https://ops.example.com", []string{"ops.example.com"}, true},
		{"https://evil.test", []string{"ops.example.com"}, false},
		{"https://evil.test", nil, false},
	}
	for _, tt := range tests {
		if got := originAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("originAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}
