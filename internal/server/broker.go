package server

import (
	"encoding/json"
	"sync"
)

// Topics published by the machine and the evaluation/penalty handlers.
// TopicEvent carries global progression events; team topics carry rows that
// concern a single team.
const (
	TopicEvent   = "event"
	TopicRanking = "ranking"
)

// Event is the payload published to subscribers.
type Event struct {
	Type        string `json:"type"`
	QuestID     string `json:"questId,omitempty"`
	PhaseNumber int    `json:"phaseNumber,omitempty"`
	TeamID      string `json:"teamId,omitempty"`
}

// Broker is an in-process pub/sub for SSE and websocket feeds, keyed by topic.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the topic.
func (b *Broker) Publish(topic string, event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
