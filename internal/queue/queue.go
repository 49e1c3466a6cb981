package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeadLetterSuffix is appended to the queue key to form the dead-letter list.
const DeadLetterSuffix = ":dead"

// Message is one finalize work item.
type Message struct {
	JobID        string `json:"job_id"`
	VariantIndex int    `json:"variant_index"`
}

// Decode parses a queue payload into a message.
func Decode(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, fmt.Errorf("decode queue message: %w", err)
	}
	if msg.JobID == "" {
		return Message{}, fmt.Errorf("queue message missing job_id")
	}
	return msg, nil
}

// FinalizeQueue is a Redis list with at-least-once delivery and a
// dead-letter sibling list.
type FinalizeQueue struct {
	rdb *redis.Client
	key string
}

// NewFinalizeQueue binds the queue to a named Redis list.
func NewFinalizeQueue(rdb *redis.Client, key string) *FinalizeQueue {
	return &FinalizeQueue{rdb: rdb, key: key}
}

// Push appends one message to the queue.
func (q *FinalizeQueue) Push(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode queue message: %w", err)
	}
	return q.rdb.RPush(ctx, q.key, payload).Err()
}

// Pop blocks up to timeout for the next message and returns its raw payload,
// so a failed message can be dead-lettered byte for byte. A nil payload with
// nil error means the timeout elapsed with nothing to do.
func (q *FinalizeQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

// DeadLetter pushes the unmodified original payload onto the dead-letter
// list. There is no automatic retry out of that list; draining it is an
// operator action.
func (q *FinalizeQueue) DeadLetter(ctx context.Context, payload []byte) error {
	return q.rdb.RPush(ctx, q.key+DeadLetterSuffix, payload).Err()
}

// Key returns the queue list key.
func (q *FinalizeQueue) Key() string { return q.key }

// DeadLetterKey returns the dead-letter list key.
func (q *FinalizeQueue) DeadLetterKey() string { return q.key + DeadLetterSuffix }
