package tab

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framenav/internal/shared/id"
)

// Hub fans tab events out to subscribers. Publishing never blocks: a
// subscriber that falls behind loses events.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	buffer int
	log    *zap.Logger
}

type subscriber struct {
	tab id.TabID
	ch  chan Event
}

// NewHub creates a hub whose subscriptions buffer up to buffer events
func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe returns a channel of events for one tab, or for every tab when
// tab is empty. The returned function ends the subscription and closes the
// channel.
func (h *Hub) Subscribe(tab id.TabID) (<-chan Event, func()) {
	h.mu.Lock()
	h.nextID++
	key := h.nextID
	sub := &subscriber{tab: tab, ch: make(chan Event, h.buffer)}
	h.subs[key] = sub
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, key)
			h.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Publish delivers e to every matching subscriber
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if sub.tab != "" && sub.tab != e.Tab {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			h.log.Debug("subscriber behind, event dropped",
				zap.String("tab", e.Tab.String()),
				zap.String("kind", string(e.Kind)),
			)
		}
	}
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
