package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lingquan-next/internal/config"
	"github.com/lingquan-next/internal/provider"
	"github.com/lingquan-next/internal/queue"

	"github.com/hibiken/asynq"
)

func TestHandleIssuanceExpireInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask(queue.TaskIssuanceExpire, []byte("not-json"))
	if err := consumer.handleIssuanceExpire(context.Background(), task); err == nil {
		t.Fatalf("malformed payload should fail")
	}
}

func TestHandleIssuanceExpireSkipsZeroID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	raw, err := json.Marshal(queue.IssuanceExpirePayload{IssuanceID: 0})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskIssuanceExpire, raw)
	if err := consumer.handleIssuanceExpire(context.Background(), task); err != nil {
		t.Fatalf("zero issuance id should be skipped, got %v", err)
	}
}

func TestHandleIssuanceSweepSkipsWithoutService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	raw, err := json.Marshal(queue.IssuanceSweepPayload{Limit: 10})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	task := asynq.NewTask(queue.TaskIssuanceSweep, raw)
	if err := consumer.handleIssuanceSweep(context.Background(), task); err != nil {
		t.Fatalf("missing service should be skipped, got %v", err)
	}
}

func TestNewServiceRequiresEnabledQueue(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, NewConsumer(&provider.Container{})); err == nil {
		t.Fatalf("disabled queue should not build a worker service")
	}
	if _, err := NewService(&config.QueueConfig{Enabled: true}, nil); err == nil {
		t.Fatalf("nil consumer should not build a worker service")
	}
}
