package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	rd "github.com/redis/go-redis/v9"

	"github.com/kriyahq/kriya/logger"
	"go.uber.org/zap"
)

// Bus publishes committed transitions to an external event-bus topic,
// best-effort: failures are logged, never retried synchronously, never
// propagated.
type Bus struct {
	client rd.UniversalClient
	topic  string
}

type busMessage struct {
	CorrelationID string    `json:"correlationId"`
	PublishedAt   time.Time `json:"publishedAt"`
	Transition
}

func NewBus(addrs []string, topic string) *Bus {
	return &Bus{
		client: rd.NewUniversalClient(&rd.UniversalOptions{Addrs: addrs}),
		topic:  topic,
	}
}

func (b *Bus) Publish(t Transition) {
	msg := busMessage{
		CorrelationID: uuid.NewString(),
		PublishedAt:   time.Now().UTC(),
		Transition:    t,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("error marshaling bus message", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, b.topic, payload).Err(); err != nil {
		logger.Error("event bus publish failed", zap.String("topic", b.topic), zap.String("workflow", t.WorkflowID), zap.Error(err))
	}
}
