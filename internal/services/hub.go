package services

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans one stream of JSON-encodable samples out to websocket clients.
// Broadcast never blocks the producer: when the channel is full the sample
// is dropped.
type Hub[T any] struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]string
	ch      chan T
	topicOf func(T) string
}

// NewHub creates a hub whose clients subscribe to a single topic. topicOf
// extracts the topic of a sample; a client with topic "" receives every
// sample.
func NewHub[T any](topicOf func(T) string) *Hub[T] {
	return &Hub[T]{
		clients: map[*websocket.Conn]string{},
		ch:      make(chan T, 16),
		topicOf: topicOf,
	}
}

func (h *Hub[T]) Run(ctx context.Context) {
	for {
		select {
		case sample := <-h.ch:
			topic := h.topicOf(sample)
			h.mu.Lock()
			for conn, subscribed := range h.clients {
				if subscribed == "" || subscribed == topic {
					_ = conn.WriteJSON(sample)
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub[T]) Broadcast(sample T) {
	select {
	case h.ch <- sample:
	default:
	}
}

func (h *Hub[T]) Add(conn *websocket.Conn, topic string) {
	h.mu.Lock()
	h.clients[conn] = topic
	h.mu.Unlock()
}

func (h *Hub[T]) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
