package application

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

// Subscription is a single observer of a StateStore. Its channel holds at
// most one snapshot; an unread snapshot is replaced by a newer one.
type Subscription struct {
	ch          chan domain.Snapshot
	unsubscribe func()

	mu   sync.Mutex
	stop func() bool
	once sync.Once
}

// C returns the snapshot channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan domain.Snapshot {
	return s.ch
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	s.once.Do(s.unsubscribe)
}

// offer must be called with the store lock held so sends and close never race.
func (s *Subscription) offer(snapshot domain.Snapshot) {
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snapshot:
	default:
	}
}

func (s *Subscription) watch(ctx context.Context) {
	if ctx.Done() == nil {
		return
	}
	stop := context.AfterFunc(ctx, func() { s.once.Do(s.unsubscribe) })
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()
}
