package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xuxxeth/sx/internal/ir"
)

// Bus delivers events to in-process subscribers. Delivery never blocks the
// emitter: a subscriber whose buffer is full misses the event and the drop is
// counted and logged.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]*Subscription
	nextID  int
	dropped uint64
	logger  *zap.Logger
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	id     int
	bus    *Bus
	filter map[ir.EventKind]bool
	ch     chan ir.Event
	once   sync.Once
}

// NewBus creates an empty bus. A nil logger discards.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{subs: make(map[int]*Subscription), logger: logger}
}

// Subscribe registers a subscriber with the given buffer size. With kinds
// set, only events of those kinds are delivered.
func (b *Bus) Subscribe(buffer int, kinds ...ir.EventKind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var filter map[ir.EventKind]bool
	if len(kinds) > 0 {
		filter = make(map[ir.EventKind]bool, len(kinds))
		for _, k := range kinds {
			filter[k] = true
		}
	}

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		bus:    b,
		filter: filter,
		ch:     make(chan ir.Event, buffer),
	}
	b.subs[sub.id] = sub
	return sub
}

// Emit offers ev to every matching subscriber without blocking.
func (b *Bus) Emit(ctx context.Context, ev ir.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter[ev.Kind] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			b.dropped++
			b.logger.Warn("subscriber buffer full, event dropped",
				zap.Int("subscriber", sub.id),
				zap.Int64("seq", ev.Seq),
				zap.String("kind", string(ev.Kind)),
			)
		}
	}
	return nil
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan ir.Event {
	return s.ch
}

// Close unsubscribes and closes the channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
		close(s.ch)
	})
}
