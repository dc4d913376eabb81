package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the subset of asynq.Client used by Bus.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Bus hands domain events to background workers through asynq.
type Bus struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
}

// Emit encodes payload and enqueues it under topic. A non-empty key deduplicates the task
// for the retention window so a replayed emit does not persist twice.
func (b *Bus) Emit(ctx context.Context, topic, key string, payload any) error {
	if b == nil || b.Client == nil {
		return errors.New("events: client not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return fmt.Errorf("events: encode payload: %w", err)
	}
	opts := []asynq.Option{asynq.Retention(24 * time.Hour)}
	if b.Queue != "" {
		opts = append(opts, asynq.Queue(b.Queue))
	}
	if b.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(b.MaxRetry))
	}
	if key = strings.TrimSpace(key); key != "" {
		opts = append(opts, asynq.TaskID(topic+":"+key))
	}
	if _, err := b.Client.EnqueueContext(ctx, asynq.NewTask(topic, encoded), opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("events: enqueue %s: %w", topic, err)
	}
	return nil
}

// Handle adapts a typed handler into an asynq handler that decodes the task payload.
func Handle[T any](fn func(ctx context.Context, payload T) error) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload T
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("events: decode %s: %v: %w", task.Type(), err, asynq.SkipRetry)
		}
		return fn(ctx, payload)
	}
}

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	switch v := payload.(type) {
	case []byte:
		return rawJSON(v)
	case json.RawMessage:
		return rawJSON(v)
	case string:
		return rawJSON([]byte(strings.TrimSpace(v)))
	default:
		return json.Marshal(v)
	}
}

func rawJSON(v []byte) ([]byte, error) {
	if len(v) == 0 {
		return []byte("{}"), nil
	}
	if !json.Valid(v) {
		return nil, errors.New("payload is not valid json")
	}
	return append([]byte(nil), v...), nil
}
