package application

import (
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// DefaultCommandQueueSize bounds the command queue when no size is configured.
const DefaultCommandQueueSize = 16

// CommandQueue is a bounded queue of presentation commands. Sending never
// blocks: when the queue is full the oldest command is dropped.
type CommandQueue struct {
	mu      sync.Mutex
	ch      chan domain.Command
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewCommandQueue creates a queue holding at most size commands.
func NewCommandQueue(size int, logger *slog.Logger, metrics observability.Metrics) *CommandQueue {
	if size <= 0 {
		size = DefaultCommandQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CommandQueue{
		ch:      make(chan domain.Command, size),
		logger:  logger,
		metrics: metrics,
	}
}

// Send enqueues cmd, evicting the oldest queued command if necessary.
func (q *CommandQueue) Send(cmd domain.Command) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		select {
		case q.ch <- cmd:
			return
		default:
		}
		select {
		case dropped := <-q.ch:
			q.metrics.Counter(observability.MetricCommandsDropped, 1)
			q.logger.Warn("command queue full, dropping oldest command", "dropped", dropped)
		default:
		}
	}
}

// C returns the receive side of the queue.
func (q *CommandQueue) C() <-chan domain.Command {
	return q.ch
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	return len(q.ch)
}
