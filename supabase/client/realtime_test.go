package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewRealtimeURL(t *testing.T) {
	r := NewRealtime("https://proj.supabase.co", "anon-key")
	assert.True(t, strings.HasPrefix(r.url, "wss://proj.supabase.co/realtime/v1/websocket"))
	assert.Contains(t, r.url, "apikey=anon-key")

	r = NewRealtime("http://localhost:54321", "anon-key")
	assert.True(t, strings.HasPrefix(r.url, "ws://localhost:54321/realtime/v1/websocket"))
}

func TestSubscribeRequiresConnection(t *testing.T) {
	r := NewRealtime("https://proj.supabase.co", "anon-key")

	_, err := r.Subscribe(context.Background(), ChangesConfig{Table: "orders"}, func(*ChangeEvent) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestSubscribeSendsPostgresChangesConfig(t *testing.T) {
	frames := make(chan []byte, 4)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- msg
		}
	}))
	defer srv.Close()

	r := NewRealtime(srv.URL, "anon-key")
	require.NoError(t, r.Connect(context.Background()))
	defer r.Disconnect()

	_, err := r.Subscribe(context.Background(), ChangesConfig{
		Table:  "orders",
		Filter: "uid=eq.user-1",
	}, func(*ChangeEvent) {})
	require.NoError(t, err)

	select {
	case msg := <-frames:
		join := gjson.ParseBytes(msg)
		assert.Equal(t, "phx_join", join.Get("event").String())
		assert.Equal(t, "realtime:public:orders:uid=eq.user-1", join.Get("topic").String())

		change := join.Get("payload.config.postgres_changes.0")
		require.True(t, change.Exists(), "join must carry the postgres_changes config")
		assert.Equal(t, "*", change.Get("event").String())
		assert.Equal(t, "public", change.Get("schema").String())
		assert.Equal(t, "orders", change.Get("table").String())
		assert.Equal(t, "uid=eq.user-1", change.Get("filter").String())
	case <-time.After(time.Second):
		t.Fatal("server never received the join frame")
	}
}

func TestDispatchRoutesChangeEvents(t *testing.T) {
	r := NewRealtime("https://proj.supabase.co", "anon-key")

	topic := "realtime:public:orders:uid=eq.user-1"
	events := make(chan *ChangeEvent, 1)
	r.handlers[topic] = []EventHandler{func(e *ChangeEvent) { events <- e }}

	r.dispatch([]byte(`{
		"topic": "realtime:public:orders:uid=eq.user-1",
		"event": "postgres_changes",
		"payload": {
			"data": {
				"type": "UPDATE",
				"table": "orders",
				"record": {"id": "o1", "status": "washing"},
				"old_record": {"id": "o1", "status": "pending"}
			}
		}
	}`))

	select {
	case e := <-events:
		assert.Equal(t, "UPDATE", e.Action)
		assert.Equal(t, "orders", e.Table)
		assert.JSONEq(t, `{"id":"o1","status":"washing"}`, string(e.Record))
		assert.JSONEq(t, `{"id":"o1","status":"pending"}`, string(e.OldRecord))
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestDispatchIgnoresControlFrames(t *testing.T) {
	r := NewRealtime("https://proj.supabase.co", "anon-key")

	called := false
	r.handlers["realtime:public:orders"] = []EventHandler{func(*ChangeEvent) { called = true }}

	r.dispatch([]byte(`{"topic":"realtime:public:orders","event":"phx_reply","payload":{"status":"ok"}}`))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, called)
}
