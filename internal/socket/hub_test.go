package socket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"yardops/internal/cache"
	"yardops/pkg/domain"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type    string            `json:"type"`
		Kind    domain.EntityKind `json:"kind"`
		Version uint64            `json:"version"`
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return Message{Type: msg.Type, Kind: msg.Kind, Version: msg.Version, Records: make([]domain.Record, len(msg.Records))}
}

func TestHubSendsStateThenUpdates(t *testing.T) {
	c := cache.New()
	c.Apply(domain.CollectionSnapshot{Kind: domain.KindDriver, Version: 3, Records: []domain.Record{
		&domain.Driver{Base: domain.Base{ID: "d1"}, Name: "Ayanda"},
	}})
	hub := NewHub(c, nil, "*")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	seen := map[domain.EntityKind]Message{}
	for range domain.AllKinds() {
		msg := read(t, conn)
		seen[msg.Kind] = msg
	}
	if len(seen) != len(domain.AllKinds()) {
		t.Fatalf("expected one message per kind, got %d", len(seen))
	}
	if d := seen[domain.KindDriver]; d.Version != 3 || len(d.Records) != 1 || d.Type != "snapshot" {
		t.Fatalf("unexpected driver snapshot %+v", d)
	}

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	c.Apply(domain.CollectionSnapshot{Kind: domain.KindDriver, Version: 4, Records: []domain.Record{
		&domain.Driver{Base: domain.Base{ID: "d1"}, Name: "Ayanda"},
		&domain.Driver{Base: domain.Base{ID: "d2"}, Name: "Bongani"},
	}})
	msg := read(t, conn)
	if msg.Kind != domain.KindDriver || msg.Version != 4 || len(msg.Records) != 2 {
		t.Fatalf("unexpected update %+v", msg)
	}
}

func TestHubRejectsUnknownOrigin(t *testing.T) {
	hub := NewHub(cache.New(), nil, "https://yard.example")
	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("expected handshake failure for foreign origin")
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, map[string][]string{"Origin": {"https://yard.example"}})
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	conn.Close()
}
