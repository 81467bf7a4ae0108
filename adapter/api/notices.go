package api

import (
	"context"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
)

const noticeBuffer = 16

// noticeHub fans presentation notices out to every open event stream.
type noticeHub struct {
	logger *slog.Logger

	mu   sync.Mutex
	next uint64
	subs map[uint64]chan string
}

func newNoticeHub(logger *slog.Logger) *noticeHub {
	return &noticeHub{logger: logger, subs: make(map[uint64]chan string)}
}

// subscribe registers a stream. The returned func unregisters it.
func (h *noticeHub) subscribe() (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan string, noticeBuffer)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *noticeHub) broadcast(ctx context.Context, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- text:
		default:
			h.logger.WarnContext(ctx, "event stream not reading, notice dropped", "notice", text)
		}
	}
}

// consume is the only reader of the service command queue while the API
// runs. Notices are logged and forwarded to open event streams.
func (h *noticeHub) consume(ctx context.Context, commands <-chan domain.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, open := <-commands:
			if !open {
				return
			}
			msg, ok := c.(domain.ErrorMessage)
			if !ok {
				continue
			}
			h.logger.InfoContext(ctx, "subscription notice", "notice", msg.Text)
			h.broadcast(ctx, msg.Text)
		}
	}
}
