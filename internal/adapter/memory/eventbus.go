package memory

import (
	"context"
	"sync"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/event"
	porteventbus "github.com/MikeSquared-Agency/PromptForge/internal/port/eventbus"
)

// EventBus is an in-process fan-out bus. Handlers run synchronously on the
// publishing goroutine; publish is best-effort side information, so slow
// handlers belong behind their own goroutines.
type EventBus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*subscription]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[event.Channel]map[*subscription]struct{})}
}

func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)

	eb.mu.RLock()
	handlers := make([]porteventbus.Handler, 0, len(eb.subs[ch]))
	for sub := range eb.subs[ch] {
		handlers = append(handlers, sub.handler)
	}
	eb.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}

func (eb *EventBus) Subscribe(_ context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	sub := &subscription{bus: eb, channel: ch, handler: handler}

	eb.mu.Lock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[*subscription]struct{})
	}
	eb.subs[ch][sub] = struct{}{}
	eb.mu.Unlock()

	return sub, nil
}

type subscription struct {
	bus     *EventBus
	channel event.Channel
	handler porteventbus.Handler
}

func (s *subscription) Unsubscribe() {
	s.bus.mu.Lock()
	delete(s.bus.subs[s.channel], s)
	s.bus.mu.Unlock()
}
