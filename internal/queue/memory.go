package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Queue used by tests and broker-free development.
// It mirrors the at-least-once contract: a received message moves to an
// in-flight set and is redeliverable until deleted.
type Memory struct {
	mu       sync.Mutex
	pending  []Message
	inflight map[string]Message
}

func NewMemory() *Memory {
	return &Memory{inflight: make(map[string]Message)}
}

func (q *Memory) Send(_ context.Context, body []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, Message{ID: uuid.NewString(), Body: body})
	return nil
}

func (q *Memory) Receive(_ context.Context) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	q.inflight[msg.ID] = msg
	return &msg, nil
}

func (q *Memory) Delete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, id)
	return nil
}

// Requeue returns every undeleted in-flight message to the pending list,
// simulating broker redelivery after a consumer is force-stopped.
func (q *Memory) Requeue() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, msg := range q.inflight {
		q.pending = append(q.pending, msg)
		delete(q.inflight, id)
	}
}

// Outstanding reports how many messages are pending or in flight.
func (q *Memory) Outstanding() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.inflight)
}
