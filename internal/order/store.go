package order

import "context"

// Store persists orders. The client only ever inserts and lists; updates
// come from the vendor side and are observed through the change feed.
type Store interface {
	// Insert creates an order and returns the stored row.
	Insert(ctx context.Context, o Order) (Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

// FeedSubscription is an active change-feed subscription.
type FeedSubscription interface {
	Unsubscribe(ctx context.Context) error
}

// ChangeFeed delivers order-row change notifications for one user. The
// payload carries no data the tracker trusts; every notification triggers
// a full refetch.
type ChangeFeed interface {
	Subscribe(ctx context.Context, userID string, onChange func()) (FeedSubscription, error)
}
