package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/klynnlabs/laundry-core/internal/geo"
	"github.com/klynnlabs/laundry-core/internal/profile"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	orders      map[string]Order
	insertErr   error
	listErr     error
	insertCalls int
	listCalls   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order)}
}

// FailInserts makes every Insert return err until cleared with nil.
func (s *MemoryStore) FailInserts(err error) {
	s.mu.Lock()
	s.insertErr = err
	s.mu.Unlock()
}

// FailLists makes every ListByUser return err until cleared with nil.
func (s *MemoryStore) FailLists(err error) {
	s.mu.Lock()
	s.listErr = err
	s.mu.Unlock()
}

// InsertCalls returns how many times Insert was called.
func (s *MemoryStore) InsertCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insertCalls
}

// ListCalls returns how many times ListByUser was called.
func (s *MemoryStore) ListCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCalls
}

func (s *MemoryStore) Insert(ctx context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.insertCalls++
	if s.insertErr != nil {
		return Order{}, s.insertErr
	}

	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt == "" {
		o.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}

	out := make([]Order, 0)
	for _, o := range s.orders {
		if o.UID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Put stores an order directly, bypassing the call counters.
func (s *MemoryStore) Put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	s.orders[o.ID] = o
}

// MemoryFeed is an in-process ChangeFeed for tests. Emit drives the
// registered handlers synchronously.
type MemoryFeed struct {
	mu           sync.Mutex
	handlers     map[string][]func()
	subscribes   int
	unsubscribes int
	subscribeErr error
}

// NewMemoryFeed creates an empty feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{handlers: make(map[string][]func())}
}

// FailSubscribes makes every Subscribe return err until cleared with nil.
func (f *MemoryFeed) FailSubscribes(err error) {
	f.mu.Lock()
	f.subscribeErr = err
	f.mu.Unlock()
}

func (f *MemoryFeed) Subscribe(ctx context.Context, userID string, onChange func()) (FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.subscribes++
	f.handlers[userID] = append(f.handlers[userID], onChange)
	return &memorySubscription{feed: f, userID: userID}, nil
}

// Emit fires every handler registered for the user, synchronously.
func (f *MemoryFeed) Emit(userID string) {
	f.mu.Lock()
	handlers := append([]func(){}, f.handlers[userID]...)
	f.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

// Subscribes returns how many subscriptions were opened.
func (f *MemoryFeed) Subscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

// Unsubscribes returns how many subscriptions were closed.
func (f *MemoryFeed) Unsubscribes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribes
}

type memorySubscription struct {
	feed   *MemoryFeed
	userID string
}

func (s *memorySubscription) Unsubscribe(ctx context.Context) error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.feed.unsubscribes++
	delete(s.feed.handlers, s.userID)
	return nil
}

// StaticProfiles is a ProfileSource serving fixed profiles by user id.
type StaticProfiles struct {
	Profiles map[string]*profile.Profile
	Err      error
}

func (s *StaticProfiles) Load(ctx context.Context, userID string) (*profile.Profile, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Profiles[userID], nil
}

// StaticRegions is a RegionSource serving fixed data and counting fetches.
type StaticRegions struct {
	ByCountry map[string][]string
	Codes     map[string]string
	Err       error

	mu    sync.Mutex
	calls map[string]int
}

func (s *StaticRegions) Regions(ctx context.Context, countryID string) ([]string, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[countryID]++
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	return s.ByCountry[countryID], nil
}

func (s *StaticRegions) DialCodes(ctx context.Context) (map[string]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Codes, nil
}

// Calls returns how many region fetches were made for a country.
func (s *StaticRegions) Calls(countryID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[countryID]
}

// StaticLocator is a geo.Locator returning a fixed position. An optional
// Gate blocks Current until it is closed, for exercising concurrent calls.
type StaticLocator struct {
	Pos  geo.Position
	Err  error
	Gate chan struct{}

	mu    sync.Mutex
	calls int
}

func (l *StaticLocator) Current(ctx context.Context) (geo.Position, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()

	if l.Gate != nil {
		select {
		case <-l.Gate:
		case <-ctx.Done():
			return geo.Position{}, ctx.Err()
		}
	}
	if l.Err != nil {
		return geo.Position{}, l.Err
	}
	return l.Pos, nil
}

// Calls returns how many position lookups were made.
func (l *StaticLocator) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// StaticGeocoder is a geo.ReverseGeocoder returning a fixed address.
type StaticGeocoder struct {
	Addr string
	Err  error
}

func (g *StaticGeocoder) ReverseGeocode(ctx context.Context, pos geo.Position) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	return g.Addr, nil
}
