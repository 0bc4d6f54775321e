package events

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Broker fans pipeline events out to SSE clients. The orchestrator
// broadcasts run and stage transitions; the API's /api/events endpoint
// registers a channel per connected client.
type Broker struct {
	clients map[chan string]bool
	mu      sync.RWMutex
}

// Global event broker instance
var broker = &Broker{
	clients: make(map[chan string]bool),
}

// GetBroker returns the global event broker
func GetBroker() *Broker {
	return broker
}

// Register adds a new SSE client
func (b *Broker) Register(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
	log.Printf("📡 SSE client connected (total: %d)", len(b.clients))
}

// Unregister removes an SSE client
func (b *Broker) Unregister(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, client)
	close(client)
	log.Printf("📡 SSE client disconnected (total: %d)", len(b.clients))
}

// Broadcast sends an event to all connected clients
func (b *Broker) Broadcast(eventType string, data interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.clients) == 0 {
		return
	}

	// Serialize data to JSON
	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("Failed to marshal event data: %v", err)
		return
	}

	// Format SSE message
	message := fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(jsonData))

	// Send to all clients
	for client := range b.clients {
		select {
		case client <- message:
			// Message sent
		default:
			// Client buffer full, skip
		}
	}
}
