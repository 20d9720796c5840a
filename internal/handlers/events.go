package handlers

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/media-relay/internal/registry"
)

// EventHub fans job state changes out to websocket subscribers. It is wired
// as the registry's notify hook, so every transition produces one event.
type EventHub struct {
	mu          sync.Mutex
	subscribers map[string]chan registry.Snapshot
}

// NewEventHub creates an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{
		subscribers: make(map[string]chan registry.Snapshot),
	}
}

// Broadcast delivers a snapshot to every subscriber. Slow subscribers drop
// events rather than stalling the pipeline that triggered the transition.
func (h *EventHub) Broadcast(snap registry.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (h *EventHub) subscribe() (string, chan registry.Snapshot) {
	id := uuid.New().String()
	ch := make(chan registry.Snapshot, 32)
	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *EventHub) unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subscribers, id)
	h.mu.Unlock()
}

// Handle streams job events over a websocket connection until the client
// goes away.
func (h *EventHub) Handle(c *websocket.Conn) {
	defer c.Close()

	id, events := h.subscribe()
	defer h.unsubscribe(id)

	log.Printf("Event subscriber connected: %s", id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap := <-events:
			if err := c.WriteJSON(snap); err != nil {
				log.Printf("Event subscriber %s write error: %v", id, err)
				return
			}
		case <-closed:
			log.Printf("Event subscriber disconnected: %s", id)
			return
		}
	}
}
