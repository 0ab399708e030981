package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjordbank/core/internal/ledger"
)

// Worker consumes completion messages and drives external transfers to a
// terminal state. A settlement error requeues the message with backoff until
// the attempt budget runs out, after which the transfer is failed and the
// message dead-lettered.
type Worker struct {
	client      *redis.Client
	engine      *ledger.Engine
	publisher   *Publisher
	maxAttempts int
	backoff     time.Duration
	stopCh      chan struct{}
}

// NewWorker creates a new Worker
func NewWorker(client *redis.Client, engine *ledger.Engine, maxAttempts int, backoff time.Duration) *Worker {
	return &Worker{
		client:      client,
		engine:      engine,
		publisher:   NewPublisher(client),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		stopCh:      make(chan struct{}),
	}
}

// Start begins consuming messages. Runs until Stop() or context cancellation.
func (w *Worker) Start(ctx context.Context) {
	log.Println("[WORKER] listening for transfer completions")

	for {
		select {
		case <-ctx.Done():
			log.Println("[WORKER] stopping: context cancelled")
			return
		case <-w.stopCh:
			log.Println("[WORKER] stopping: stop signal")
			return
		default:
			result, err := w.client.BLPop(ctx, 5*time.Second, QueueName).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("[WORKER] error reading from queue: %v", err)
				time.Sleep(1 * time.Second)
				continue
			}
			if len(result) < 2 {
				continue
			}
			w.processMessage(ctx, result[1])
		}
	}
}

// Stop signals the worker to stop processing
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) processMessage(ctx context.Context, data string) {
	var msg TransferMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		log.Printf("[WORKER] failed to unmarshal message: %v", err)
		return
	}

	log.Printf("[WORKER] completing transfer %s (attempt %d)", msg.TransferID, msg.Attempt)

	err := w.engine.CompleteExternalTransfer(ctx, msg.TransferID)
	if err == nil {
		return
	}

	if msg.Attempt >= w.maxAttempts {
		log.Printf("[WORKER] transfer %s exhausted %d attempts: %v", msg.TransferID, msg.Attempt, err)
		if failErr := w.engine.FailExternalTransfer(ctx, msg.TransferID, "settlement retries exhausted"); failErr != nil {
			log.Printf("[WORKER] failed to fail transfer %s: %v", msg.TransferID, failErr)
		}
		if dlErr := w.publisher.DeadLetter(ctx, msg, err.Error()); dlErr != nil {
			log.Printf("[WORKER] failed to dead-letter transfer %s: %v", msg.TransferID, dlErr)
		}
		return
	}

	// Back off before the message becomes visible again
	time.Sleep(w.retryDelay(msg.Attempt))
	if reqErr := w.publisher.Requeue(ctx, msg, err.Error()); reqErr != nil {
		log.Printf("[WORKER] failed to requeue transfer %s: %v", msg.TransferID, reqErr)
	}
}

// maxRetryDelay caps the exponential backoff between settlement attempts
const maxRetryDelay = 2 * time.Minute

// retryDelay doubles the configured backoff per attempt, capped at
// maxRetryDelay.
func (w *Worker) retryDelay(attempt int) time.Duration {
	delay := w.backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

// ProcessOne processes a single message synchronously (useful for testing)
func (w *Worker) ProcessOne(ctx context.Context) error {
	result, err := w.client.LPop(ctx, QueueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	w.processMessage(ctx, result)
	return nil
}
