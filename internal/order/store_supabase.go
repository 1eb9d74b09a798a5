package order

import (
	"context"
	"fmt"

	"github.com/klynnlabs/laundry-core/supabase/client"
)

const ordersTable = "orders"

// SupabaseStore persists orders through PostgREST.
type SupabaseStore struct {
	db *client.Client
}

// NewSupabaseStore creates a store bound to a session-scoped client.
func NewSupabaseStore(db *client.Client) *SupabaseStore {
	return &SupabaseStore{db: db}
}

func (s *SupabaseStore) Insert(ctx context.Context, o Order) (Order, error) {
	resp, err := s.db.From(ordersTable).ExecuteInsert(ctx, o)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	if err := resp.Error(); err != nil {
		return Order{}, err
	}

	// Prefer: return=representation yields the inserted rows as an array.
	var rows []Order
	if err := resp.JSON(&rows); err != nil {
		return Order{}, fmt.Errorf("decode inserted order: %w", err)
	}
	if len(rows) == 0 {
		return o, nil
	}
	return rows[0], nil
}

func (s *SupabaseStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	resp, err := s.db.From(ordersTable).
		Select("*").
		Eq("uid", userID).
		Order("created_at", false).
		Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var rows []Order
	if err := resp.JSON(&rows); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return rows, nil
}

// SupabaseFeed subscribes to order-row changes over the realtime websocket.
type SupabaseFeed struct {
	rt *client.RealtimeClient
}

// NewSupabaseFeed creates a change feed on a realtime client.
func NewSupabaseFeed(rt *client.RealtimeClient) *SupabaseFeed {
	return &SupabaseFeed{rt: rt}
}

// Subscribe joins the orders channel filtered to the user's rows. Every
// INSERT, UPDATE and DELETE fires onChange.
func (f *SupabaseFeed) Subscribe(ctx context.Context, userID string, onChange func()) (FeedSubscription, error) {
	if err := f.rt.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect realtime: %w", err)
	}

	ch, err := f.rt.Subscribe(ctx, client.ChangesConfig{
		Event:  "*",
		Schema: "public",
		Table:  ordersTable,
		Filter: "uid=eq." + userID,
	}, func(*client.ChangeEvent) {
		onChange()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe orders: %w", err)
	}
	return ch, nil
}
