package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// QueueName is the Redis list key for pending external transfers
	QueueName = "transfers:pending"
	// DeadLetterQueue receives messages whose settlement retries ran out
	DeadLetterQueue = "transfers:dead"
)

// TransferMessage is the message published for asynchronous completion.
// Attempt counts how many times settlement has been tried.
type TransferMessage struct {
	TransferID  uuid.UUID `json:"transfer_id"`
	Attempt     int       `json:"attempt"`
	LastError   string    `json:"last_error,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher handles publishing messages to Redis
type Publisher struct {
	client *redis.Client
}

// NewPublisher creates a new Publisher
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishTransfer enqueues a pending external transfer for completion
func (p *Publisher) PublishTransfer(ctx context.Context, transferID uuid.UUID) error {
	return p.push(ctx, QueueName, TransferMessage{
		TransferID:  transferID,
		Attempt:     1,
		PublishedAt: time.Now(),
	})
}

// Requeue puts a message back on the queue with its attempt count bumped
func (p *Publisher) Requeue(ctx context.Context, msg TransferMessage, lastErr string) error {
	msg.Attempt++
	msg.LastError = lastErr
	msg.PublishedAt = time.Now()
	return p.push(ctx, QueueName, msg)
}

// DeadLetter moves a message to the dead-letter list for operator review
func (p *Publisher) DeadLetter(ctx context.Context, msg TransferMessage, lastErr string) error {
	msg.LastError = lastErr
	msg.PublishedAt = time.Now()
	return p.push(ctx, DeadLetterQueue, msg)
}

func (p *Publisher) push(ctx context.Context, key string, msg TransferMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := p.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", key, err)
	}
	return nil
}

// QueueLength returns the current number of messages in the queue
func (p *Publisher) QueueLength(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, QueueName).Result()
}
