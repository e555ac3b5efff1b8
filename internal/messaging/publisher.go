package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher emits story lifecycle events.
type Publisher interface {
	PublishStoryEvent(ctx context.Context, event StoryEvent, storyID, profileID string) error
	Close() error
}

// RabbitMQPublisher publishes story events to the shared story event queue.
// The connection is owned by the caller; this type only manages its channel.
type RabbitMQPublisher struct {
	ch     *amqp091.Channel
	queue  string
	logger *zap.Logger
}

func NewRabbitMQPublisher(conn *amqp091.Connection, queue string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Durable so the queue survives a broker restart.
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	return &RabbitMQPublisher{ch: ch, queue: queue, logger: logger}, nil
}

func (p *RabbitMQPublisher) PublishStoryEvent(ctx context.Context, event StoryEvent, storyID, profileID string) error {
	payload := StoryEventPayload{
		EventID:   uuid.NewString(),
		Event:     event,
		StoryID:   storyID,
		ProfileID: profileID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal story event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",      // exchange (default, direct to queue)
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    payload.EventID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish story event: %w", err)
	}

	p.logger.Debug("story event published",
		zap.String("event", string(event)),
		zap.String("story_id", storyID),
	)
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
