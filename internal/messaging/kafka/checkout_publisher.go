package kafka

import (
	"context"
	"errors"

	"github.com/IBM/sarama"

	"github.com/airrecover/storefront/internal/domain"
)

var errPublisherNotInitialized = errors.New("kafka checkout publisher is not initialized")

// CheckoutPublisher публикует завершённые оплаты в topic исполнения.
type CheckoutPublisher struct {
	producer *Producer
	topic    string
}

// NewCheckoutPublisher создаёт паблишер; пустой topic означает TopicCheckoutEvents.
func NewCheckoutPublisher(producer *Producer, topic string) *CheckoutPublisher {
	if topic == "" {
		topic = TopicCheckoutEvents
	}
	return &CheckoutPublisher{
		producer: producer,
		topic:    topic,
	}
}

// Publish отправляет событие. Sync producer не принимает context, поэтому
// отменённый ctx проверяется только до отправки.
func (p *CheckoutPublisher) Publish(ctx context.Context, event domain.WebhookEvent) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := NewCheckoutEvent(event)
	return p.producer.PublishEvent(p.topic, msg.Key(), msg,
		sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(msg.EventType)},
		sarama.RecordHeader{Key: []byte(HeaderProvider), Value: []byte(msg.Provider)},
	)
}

var _ domain.EventPublisher = (*CheckoutPublisher)(nil)
