// Package sse streams pipeline progress events to connected clients.
package sse

import (
	"fmt"
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/clearhead/internal/pipeline"
)

// clientBuffer is the per-client event backlog. A client that falls this far
// behind starts losing events rather than blocking the pipeline.
const clientBuffer = 32

type client struct {
	id string
	ch chan []byte
}

// Broadcaster fans pipeline events out to SSE subscribers. Publish never
// blocks, which makes it safe to hand directly to the pipeline as its
// Notifier.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*client
	nextID  int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[string]*client)}
}

// Publish implements pipeline.Notifier. Slow subscribers drop events.
func (b *Broadcaster) Publish(e pipeline.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal pipeline event")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		select {
		case c.ch <- payload:
		default:
			log.Debug().Str("clientId", c.id).Msg("SSE client buffer full, dropping event")
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) subscribe() *client {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	c := &client{
		id: fmt.Sprintf("client-%d", b.nextID),
		ch: make(chan []byte, clientBuffer),
	}
	b.clients[c.id] = c

	log.Debug().Str("clientId", c.id).Int("totalClients", len(b.clients)).Msg("SSE client connected")
	return c
}

func (b *Broadcaster) unsubscribe(c *client) {
	b.mu.Lock()
	delete(b.clients, c.id)
	total := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", c.id).Int("totalClients", total).Msg("SSE client disconnected")
}

// ServeHTTP handles one SSE connection, streaming events until the client
// goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.subscribe()
	defer b.unsubscribe(c)

	fmt.Fprintf(w, "data: {\"stage\":\"connected\",\"client_id\":%q}\n\n", c.id)
	flusher.Flush()

	for {
		select {
		case payload := <-c.ch:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
