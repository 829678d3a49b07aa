package publisher

import (
	"context"

	"github.com/wyfcoding/mortgagebank/internal/lending/domain"
)

// Producer pkg/mq.KafkaProducer 的最小接口
type Producer interface {
	SendMessage(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

// KafkaEventPublisher 领域事件写入单一 topic，事件类型放在消息头
type KafkaEventPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaEventPublisher(producer Producer, topic string) domain.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	return p.producer.SendMessage(ctx, p.topic, key, payload, map[string]string{"event_type": eventType})
}
