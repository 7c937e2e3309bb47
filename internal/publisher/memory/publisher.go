// Package memory keeps published messages in process, encoded the same way the
// Pub/Sub publisher encodes them.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Publisher stores published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []Message
}

// Message captures one publish call as its JSON wire form.
type Message struct {
	ID    string
	Topic string
	Data  json.RawMessage
}

// New returns a memory Publisher.
func New() *Publisher {
	return &Publisher{}
}

// Publish encodes the payload and records it under a sequential id.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("memory-%d", len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Topic: topic, Data: data})
	return id, nil
}

// Messages returns the recorded publishes for topic, or all of them when topic is empty.
func (p *Publisher) Messages(topic string) []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Message
	for _, m := range p.messages {
		if topic == "" || m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Decode unmarshals message i into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", m.ID, err)
	}
	return nil
}
