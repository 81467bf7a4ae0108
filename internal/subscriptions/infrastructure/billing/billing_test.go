package billing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/eventbus"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.ConsumedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	var event eventbus.ConsumedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}

func (p *recordingPublisher) last(t *testing.T, v any) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	e := p.events[len(p.events)-1]
	require.NoError(t, e.Decode(v))
}
