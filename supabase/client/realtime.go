// Package client: realtime change-feed support.
//
// Supabase Realtime speaks the Phoenix channel protocol over a websocket:
// a phx_join per topic, a heartbeat every 30 seconds, and postgres_changes
// messages for row mutations matching the subscription config.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
)

// RealtimeClient handles Supabase Realtime subscriptions.
type RealtimeClient struct {
	mu       sync.RWMutex
	url      string
	apiKey   string
	conn     *websocket.Conn
	channels map[string]*Channel
	handlers map[string][]EventHandler
	done     chan struct{}
	ref      int
}

// EventHandler handles realtime events.
type EventHandler func(event *ChangeEvent)

// ChangeEvent is a row mutation delivered over the change feed.
type ChangeEvent struct {
	// Action is INSERT, UPDATE or DELETE.
	Action string
	// Table the mutation applies to.
	Table string
	// Record holds the new row (empty for DELETE).
	Record json.RawMessage
	// OldRecord holds the prior row where the server provides it.
	OldRecord json.RawMessage
}

// ChangesConfig scopes a postgres_changes subscription.
type ChangesConfig struct {
	Event  string // INSERT, UPDATE, DELETE or *; defaults to *
	Schema string // defaults to public
	Table  string
	Filter string // e.g. "uid=eq.<user-id>"
}

// Channel represents one joined realtime topic.
type Channel struct {
	client  *RealtimeClient
	topic   string
	cfg     ChangesConfig
	joined  bool
	joinRef string
}

// NewRealtime creates a realtime client for a Supabase project.
func NewRealtime(supabaseURL, apiKey string) *RealtimeClient {
	wsURL := supabaseURL
	if len(wsURL) > 5 && wsURL[:5] == "https" {
		wsURL = "wss" + wsURL[5:]
	} else if len(wsURL) > 4 && wsURL[:4] == "http" {
		wsURL = "ws" + wsURL[4:]
	}
	wsURL += "/realtime/v1/websocket?apikey=" + apiKey + "&vsn=1.0.0"

	return &RealtimeClient{
		url:      wsURL,
		apiKey:   apiKey,
		channels: make(map[string]*Channel),
		handlers: make(map[string][]EventHandler),
		done:     make(chan struct{}),
	}
}

// Connect establishes the websocket connection.
func (r *RealtimeClient) Connect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil // already connected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	r.conn = conn
	r.done = make(chan struct{})

	go r.readLoop()
	go r.heartbeat()

	return nil
}

// Disconnect closes the websocket connection and drops all channels.
func (r *RealtimeClient) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}

	close(r.done)

	err := r.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	r.conn.Close()
	r.conn = nil
	r.channels = make(map[string]*Channel)
	r.handlers = make(map[string][]EventHandler)
	if err != nil {
		return fmt.Errorf("close message: %w", err)
	}
	return nil
}

// Subscribe joins a postgres_changes channel and registers the handler for
// every mutation kind the config covers. One subscription per topic; a
// repeated Subscribe for the same config reuses the joined channel.
func (r *RealtimeClient) Subscribe(ctx context.Context, cfg ChangesConfig, handler EventHandler) (*Channel, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.Event == "" {
		cfg.Event = "*"
	}

	topic := fmt.Sprintf("realtime:%s:%s", cfg.Schema, cfg.Table)
	if cfg.Filter != "" {
		topic += ":" + cfg.Filter
	}

	r.mu.Lock()
	ch, ok := r.channels[topic]
	if !ok {
		ch = &Channel{client: r, topic: topic, cfg: cfg}
		r.channels[topic] = ch
	}
	r.handlers[topic] = append(r.handlers[topic], handler)
	r.mu.Unlock()

	if err := ch.join(ctx); err != nil {
		return nil, err
	}
	return ch, nil
}

// join sends the phx_join carrying the postgres_changes config. Without the
// config block the server accepts the join but never emits DB events.
func (c *Channel) join(ctx context.Context) error {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()

	if c.joined {
		return nil
	}
	if c.client.conn == nil {
		return fmt.Errorf("realtime not connected")
	}

	c.client.ref++
	ref := fmt.Sprintf("%d", c.client.ref)
	c.joinRef = ref

	change := map[string]any{
		"event":  c.cfg.Event,
		"schema": c.cfg.Schema,
		"table":  c.cfg.Table,
	}
	if c.cfg.Filter != "" {
		change["filter"] = c.cfg.Filter
	}

	msg := map[string]any{
		"topic": c.topic,
		"event": "phx_join",
		"payload": map[string]any{
			"config": map[string]any{
				"postgres_changes": []any{change},
			},
		},
		"ref":      ref,
		"join_ref": ref,
	}

	if err := c.client.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	c.joined = true
	return nil
}

// Unsubscribe leaves the channel and drops its handlers.
func (c *Channel) Unsubscribe(ctx context.Context) error {
	c.client.mu.Lock()
	defer c.client.mu.Unlock()

	if !c.joined {
		return nil
	}

	c.client.ref++
	ref := fmt.Sprintf("%d", c.client.ref)

	msg := map[string]any{
		"topic":    c.topic,
		"event":    "phx_leave",
		"payload":  map[string]any{},
		"ref":      ref,
		"join_ref": c.joinRef,
	}

	c.joined = false
	delete(c.client.channels, c.topic)
	delete(c.client.handlers, c.topic)

	if c.client.conn == nil {
		return nil
	}
	if err := c.client.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}

func (r *RealtimeClient) readLoop() {
	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed
			return
		}

		r.dispatch(message)
	}
}

// dispatch routes postgres_changes frames to the topic's handlers. Control
// frames (phx_reply, heartbeat replies, system messages) are ignored.
func (r *RealtimeClient) dispatch(message []byte) {
	parsed := gjson.ParseBytes(message)
	if parsed.Get("event").String() != "postgres_changes" {
		return
	}

	topic := parsed.Get("topic").String()
	data := parsed.Get("payload.data")

	event := &ChangeEvent{
		Action: data.Get("type").String(),
		Table:  data.Get("table").String(),
	}
	if rec := data.Get("record"); rec.Exists() {
		event.Record = json.RawMessage(rec.Raw)
	}
	if old := data.Get("old_record"); old.Exists() {
		event.OldRecord = json.RawMessage(old.Raw)
	}

	r.mu.RLock()
	handlers := append([]EventHandler(nil), r.handlers[topic]...)
	r.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

func (r *RealtimeClient) heartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.mu.Lock()
			if r.conn != nil {
				r.ref++
				msg := map[string]any{
					"topic":   "phoenix",
					"event":   "heartbeat",
					"payload": map[string]any{},
					"ref":     fmt.Sprintf("%d", r.ref),
				}
				r.conn.WriteJSON(msg)
			}
			r.mu.Unlock()
		}
	}
}
