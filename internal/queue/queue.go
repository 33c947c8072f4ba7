package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/scratchbank/ledgerd/internal/domain"
)

// Message is one envelope owned by the queue until a consumer deletes it.
type Message struct {
	ID   string
	Body []byte
}

// Queue is a durable at-least-once FIFO channel. Receive hands out at most
// one message per call and returns (nil, nil) when the queue is empty. A
// received message stays owned by the queue until Delete acknowledges it;
// undeleted messages remain available for redelivery.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	Receive(ctx context.Context) (*Message, error)
	Delete(ctx context.Context, id string) error
}

// Factory builds the queue channel for one batch.
type Factory func(ctx context.Context, name string) (Queue, error)

// Envelope is the wire shape of one queued command.
type Envelope struct {
	Cmd    string `json:"cmd"`
	Params Params `json:"params"`
}

// Params carries the kind-specific command fields.
type Params struct {
	AccountID string          `json:"accountId,omitempty"`
	FromID    string          `json:"fromId,omitempty"`
	ToID      string          `json:"toId,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
}

// DecodeCommand parses an envelope body into an executable command. Any
// failure here marks the message as undecodable; it is never retried.
func DecodeCommand(body []byte) (domain.Command, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return domain.Command{}, fmt.Errorf("malformed envelope: %w", err)
	}
	kind, err := domain.ParseKind(env.Cmd)
	if err != nil {
		return domain.Command{}, err
	}
	return domain.Command{
		Kind:      kind,
		AccountID: env.Params.AccountID,
		FromID:    env.Params.FromID,
		ToID:      env.Params.ToID,
		Amount:    env.Params.Amount,
	}, nil
}
