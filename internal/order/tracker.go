package order

import (
	"context"
	"fmt"
	"sync"

	"github.com/klynnlabs/laundry-core/pkg/logger"
)

// TrackerState is the tracker's subscription lifecycle state.
type TrackerState int

const (
	// StateDisconnected means no subscription and an empty cache.
	StateDisconnected TrackerState = iota
	// StateSubscribed means the change feed is live and the cache tracks
	// the server's view.
	StateSubscribed
)

// Tracker keeps a read-only local cache of the user's orders in sync with
// the store. The change feed is used purely as a trigger: every event
// causes a full refetch, so the cache always reflects a complete server
// read rather than patched rows.
type Tracker struct {
	store Store
	feed  ChangeFeed
	log   *logger.Logger

	mu         sync.Mutex
	state      TrackerState
	userID     string
	sub        FeedSubscription
	ctx        context.Context
	orders     []Order
	fetchSeq   uint64
	appliedSeq uint64
	onError    func(error)
}

// NewTracker creates a tracker in the disconnected state.
func NewTracker(store Store, feed ChangeFeed, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.NewDefault("order.tracker")
	}
	return &Tracker{store: store, feed: feed, log: log}
}

// OnError registers a callback for background fetch failures. A failed
// refetch is reported here and the cached list is left as it was.
func (t *Tracker) OnError(fn func(error)) {
	t.mu.Lock()
	t.onError = fn
	t.mu.Unlock()
}

// State returns the current lifecycle state.
func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Orders returns a snapshot of the cached list, newest first. A user with
// no orders yields an empty list, never an error.
func (t *Tracker) Orders() []Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Order, len(t.orders))
	copy(out, t.orders)
	return out
}

// Start fetches the user's orders and subscribes to their change feed.
// Starting an already-subscribed tracker re-binds it to the new user.
func (t *Tracker) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	t.mu.Lock()
	if t.state == StateSubscribed {
		sub := t.sub
		t.mu.Unlock()
		if sub != nil {
			if err := sub.Unsubscribe(ctx); err != nil {
				return fmt.Errorf("unsubscribe previous feed: %w", err)
			}
		}
		t.mu.Lock()
	}
	t.userID = userID
	t.ctx = ctx
	t.orders = nil
	t.state = StateSubscribed
	t.mu.Unlock()

	t.refresh(ctx)

	sub, err := t.feed.Subscribe(ctx, userID, func() {
		t.mu.Lock()
		refreshCtx := t.ctx
		t.mu.Unlock()
		if refreshCtx == nil {
			refreshCtx = context.Background()
		}
		t.refresh(refreshCtx)
	})
	if err != nil {
		t.mu.Lock()
		t.state = StateDisconnected
		t.userID = ""
		t.orders = nil
		t.mu.Unlock()
		return fmt.Errorf("subscribe change feed: %w", err)
	}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()

	t.log.WithField("user_id", userID).Info("order tracking started")
	return nil
}

// Stop unsubscribes and clears the cache.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.state = StateDisconnected
	t.userID = ""
	t.orders = nil
	t.ctx = nil
	t.mu.Unlock()

	if sub == nil {
		return nil
	}
	if err := sub.Unsubscribe(ctx); err != nil {
		return fmt.Errorf("unsubscribe change feed: %w", err)
	}
	return nil
}

// refresh refetches the full list. Each fetch carries a sequence number;
// a result is dropped when a later fetch already applied, so out-of-order
// responses can never roll the cache back.
func (t *Tracker) refresh(ctx context.Context) {
	t.mu.Lock()
	if t.state != StateSubscribed {
		t.mu.Unlock()
		return
	}
	t.fetchSeq++
	seq := t.fetchSeq
	userID := t.userID
	t.mu.Unlock()

	orders, err := t.store.ListByUser(ctx, userID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateSubscribed || t.userID != userID {
		return
	}
	if err != nil {
		t.log.WithError(err).Warn("order refetch failed")
		if t.onError != nil {
			go t.onError(err)
		}
		return
	}
	if seq <= t.appliedSeq {
		return // a newer fetch already landed
	}
	t.appliedSeq = seq
	t.orders = orders
}
