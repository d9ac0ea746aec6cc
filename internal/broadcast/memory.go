package broadcast

import (
	"context"
	"sync"
)

const memoryListenerBuffer = 64

// Hub is an in-process channel shared by tabs running in one process. Every
// listener, including the publisher's own, receives each event.
type Hub struct {
	mu        sync.Mutex
	listeners map[string]map[*memoryListener]struct{}
}

type memoryListener struct {
	events chan Event
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string]map[*memoryListener]struct{})}
}

// Channel returns the channel for origin.
func (h *Hub) Channel(origin string) *MemoryChannel {
	return &MemoryChannel{hub: h, origin: origin}
}

// MemoryChannel is one tab's connection to a Hub.
type MemoryChannel struct {
	hub    *Hub
	origin string
}

func (c *MemoryChannel) Publish(ctx context.Context, ev Event) error {
	c.hub.mu.Lock()
	targets := make([]*memoryListener, 0, len(c.hub.listeners[c.origin]))
	for l := range c.hub.listeners[c.origin] {
		targets = append(targets, l)
	}
	c.hub.mu.Unlock()

	for _, l := range targets {
		select {
		case l.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *MemoryChannel) Listen(ctx context.Context, deliver func(Event)) error {
	l := &memoryListener{events: make(chan Event, memoryListenerBuffer)}

	c.hub.mu.Lock()
	if c.hub.listeners[c.origin] == nil {
		c.hub.listeners[c.origin] = make(map[*memoryListener]struct{})
	}
	c.hub.listeners[c.origin][l] = struct{}{}
	c.hub.mu.Unlock()

	defer func() {
		c.hub.mu.Lock()
		delete(c.hub.listeners[c.origin], l)
		c.hub.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-l.events:
			deliver(ev)
		}
	}
}

// Listeners reports how many tabs of origin are listening.
func (h *Hub) Listeners(origin string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[origin])
}
