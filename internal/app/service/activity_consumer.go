package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arslanov/padlock/internal/app/model"
	apprepository "github.com/arslanov/padlock/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ActivityConsumer consumes pad activity events from NATS JetStream and
// persists them through the activity repository.
type ActivityConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.ActivityEventRepository
}

// NewActivityConsumer creates a new activity event consumer.
func NewActivityConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.ActivityEventRepository) *ActivityConsumer {
	return &ActivityConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist, then begins consuming.
func (c *ActivityConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ActivityStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ActivityStreamName,
			Subjects: []string{model.ActivityStreamSubject},
			MaxBytes: model.ActivityStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ActivityStreamName, model.ActivityConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ActivityStreamName, &nats.ConsumerConfig{
			Durable:   model.ActivityConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ActivityStreamSubject, model.ActivityConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ActivityConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ActivityEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal activity event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.repo.Create(ctx, &event); err != nil {
				c.logger.Error("failed to store activity event",
					zap.String("id", event.ID),
					zap.String("pad_id", event.PadID),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("activity event stored",
				zap.String("id", event.ID),
				zap.String("pad_id", event.PadID),
				zap.String("kind", event.Kind),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}
