package application

import (
	"context"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// StateStore holds the merged subscription state and publishes valid
// snapshots to subscribers. Every subscriber receives the current snapshot
// on subscribe and then each committed snapshot in commit order; a subscriber
// that falls behind only sees the latest one.
type StateStore struct {
	current atomic.Pointer[domain.Snapshot]

	mu          sync.Mutex
	pending     domain.Snapshot
	version     uint64
	nextID      uint64
	subscribers map[uint64]*Subscription

	logger  *slog.Logger
	metrics observability.Metrics
}

// StateStoreOption configures a StateStore.
type StateStoreOption func(*StateStore)

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StateStoreOption {
	return func(s *StateStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreMetrics sets the metrics collector.
func WithStoreMetrics(metrics observability.Metrics) StateStoreOption {
	return func(s *StateStore) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// NewStateStore creates a store whose initial snapshot is Unknown with no
// details or offers.
func NewStateStore(opts ...StateStoreOption) *StateStore {
	s := &StateStore{
		subscribers: make(map[uint64]*Subscription),
		logger:      slog.Default(),
		metrics:     observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	initial := domain.Snapshot{}
	s.current.Store(&initial)
	return s
}

// Current returns the latest published snapshot without blocking.
func (s *StateStore) Current() domain.Snapshot {
	return *s.current.Load()
}

// ApplyUpdate merges the update into the pending state and publishes it when
// it is valid and differs from the published snapshot. It returns the
// published snapshot after the update.
func (s *StateStore) ApplyUpdate(update domain.PartialUpdate) domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Counter(observability.MetricUpdatesApplied, 1)
	s.pending = s.pending.Merge(update)

	published := *s.current.Load()
	if err := s.pending.Validate(); err != nil {
		s.metrics.Counter(observability.MetricUpdatesWithheld, 1)
		s.logger.Debug("withholding subscription snapshot",
			"has_subscription", s.pending.HasSubscription().String(),
			"error", err,
		)
		return published
	}
	if s.pending.Equal(published) {
		return published
	}

	s.version++
	next := s.pending.WithVersion(s.version)
	s.pending = next
	s.current.Store(&next)

	for _, sub := range s.subscribers {
		sub.offer(next)
	}
	s.metrics.Counter(observability.MetricSnapshotsPublished, 1)
	s.logger.Debug("published subscription snapshot",
		"version", next.Version(),
		"has_subscription", next.HasSubscription().String(),
		"subscribers", len(s.subscribers),
	)
	return next
}

// Subscribe registers a subscriber that immediately holds the current
// snapshot. The subscription ends when ctx is done or Close is called.
func (s *StateStore) Subscribe(ctx context.Context) *Subscription {
	sub := &Subscription{ch: make(chan domain.Snapshot, 1)}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	sub.unsubscribe = func() { s.remove(id) }
	s.subscribers[id] = sub
	sub.offer(*s.current.Load())
	count := len(s.subscribers)
	s.mu.Unlock()

	s.metrics.Gauge(observability.MetricSubscribers, float64(count))
	sub.watch(ctx)
	return sub
}

// Observe yields the current snapshot followed by every later published
// snapshot until ctx is done or the caller stops iterating. Each call starts
// an independent subscription.
func (s *StateStore) Observe(ctx context.Context) iter.Seq[domain.Snapshot] {
	return func(yield func(domain.Snapshot) bool) {
		sub := s.Subscribe(ctx)
		defer sub.Close()
		for snapshot := range sub.C() {
			if !yield(snapshot) {
				return
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *StateStore) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *StateStore) remove(id uint64) {
	s.mu.Lock()
	sub, ok := s.subscribers[id]
	if ok {
		delete(s.subscribers, id)
		close(sub.ch)
	}
	count := len(s.subscribers)
	s.mu.Unlock()

	if ok {
		s.metrics.Gauge(observability.MetricSubscribers, float64(count))
	}
}
