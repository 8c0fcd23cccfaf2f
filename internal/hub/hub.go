package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atikulmunna/sharetail/internal/model"
)

const (
	inputBuffer      = 64
	subscriberBuffer = 256
)

// Subscription is one viewer's feed of update events.
type Subscription struct {
	ID string
	C  <-chan model.UpdateEvent
}

// Hub receives update events and broadcasts them to every subscriber. It does
// not know what a subscriber does with an event; a subscriber that cannot keep
// up loses events instead of stalling the others.
type Hub struct {
	input       chan model.UpdateEvent
	mu          sync.RWMutex
	subscribers map[string]chan model.UpdateEvent
	dropped     int64
	log         *zap.Logger
}

// New creates a Hub. Call Start to begin broadcasting.
func New(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		input:       make(chan model.UpdateEvent, inputBuffer),
		subscribers: make(map[string]chan model.UpdateEvent),
		log:         log.Named("hub"),
	}
}

// Publish queues an event for broadcast. It never blocks; when the queue is
// full the event is dropped and counted.
func (h *Hub) Publish(ev model.UpdateEvent) {
	select {
	case h.input <- ev:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.log.Warn("dropped update, broadcast queue full")
	}
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() Subscription {
	id := uuid.NewString()
	ch := make(chan model.UpdateEvent, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[id] = ch
	n := len(h.subscribers)
	h.mu.Unlock()

	h.log.Info("subscriber connected", zap.String("id", id), zap.Int("total", n))
	return Subscription{ID: id, C: ch}
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// ignored, so it is safe to call more than once.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(ch)
	}
	n := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		h.log.Info("subscriber disconnected", zap.String("id", id), zap.Int("total", n))
	}
}

// Clients returns the number of current subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns the total number of events lost to full queues.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start broadcasts queued events until ctx is cancelled, then closes every
// subscriber channel.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.input:
			h.broadcast(ev)
		}
	}
}

// broadcast sends ev to all subscribers, skipping those whose buffer is full.
func (h *Hub) broadcast(ev model.UpdateEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.log.Warn("dropped update for slow subscriber", zap.String("id", id), zap.Int64("total_dropped", h.dropped))
		}
	}
}

// closeAll closes all subscriber channels.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
