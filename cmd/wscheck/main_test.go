package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-chess-client/internal/conn"
	"github.com/park285/cheese-chess-client/pkg/protocol"
)

func TestObserveSeek(t *testing.T) {
	got := make(chan protocol.Type, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		var env protocol.Envelope
		if err := wsjson.Read(r.Context(), c, &env); err == nil {
			got <- env.Type
		}
		_ = wsjson.Write(r.Context(), c, protocol.Envelope{
			Type:    protocol.TypeInitGame,
			Payload: []byte(`{"color":"white","gameId":"g-1"}`),
		})
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		_, _, _ = c.Read(ctx)
	}))
	defer srv.Close()

	mgr := conn.New("ws"+strings.TrimPrefix(srv.URL, "http"), conn.WithRetry(0, time.Second), conn.WithPingInterval(0))
	if !observe(mgr, 500*time.Millisecond, true) {
		t.Fatalf("observe reported no connection")
	}
	select {
	case typ := <-got:
		if typ != protocol.TypeInitGame {
			t.Fatalf("server got %s", typ)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("seek request not received")
	}
}

func TestObserveUnreachable(t *testing.T) {
	mgr := conn.New("ws://127.0.0.1:1", conn.WithRetry(0, time.Second), conn.WithPingInterval(0))
	if observe(mgr, 300*time.Millisecond, false) {
		t.Fatalf("observe reported a connection to a closed port")
	}
}
