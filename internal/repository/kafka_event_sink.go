package repository

import (
	"context"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/repository"
	pkgkafka "BitLearn/pkg/kafka"
)

// KafkaEventSink publishes engine events keyed by event type, so each type
// stays ordered on its partition. The producer is shared with the log
// collector and closed by the app.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventSink(producer *pkgkafka.Producer, topic string) repository.EventSink {
	return &KafkaEventSink{producer: producer, topic: topic}
}

func (s *KafkaEventSink) Publish(ctx context.Context, ev models.Event) error {
	return s.producer.Publish(ctx, s.topic, pkgkafka.Message{
		Key:   []byte(ev.Type),
		Value: ev,
		Headers: map[string]string{
			"event-type":   string(ev.Type),
			"content-type": "application/json",
		},
	})
}
