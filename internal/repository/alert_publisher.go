package repository

import (
	"context"
	"fmt"
	"time"

	"CashPilot/internal/domain/models"
	domrepo "CashPilot/internal/domain/repository"

	"github.com/google/uuid"
)

// topicPublisher is the subset of pkg/kafka.Producer the alert publisher needs.
type topicPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
	Close() error
}

var _ domrepo.AlertPublisher = (*KafkaAlertPublisher)(nil)

// KafkaAlertPublisher writes AlertEvents keyed by user id so one user's alerts stay ordered.
type KafkaAlertPublisher struct {
	producer topicPublisher
	topic    string
	now      func() time.Time
}

func NewKafkaAlertPublisher(p topicPublisher, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: p, topic: topic, now: time.Now}
}

// PublishAlerts fills EventID and GeneratedAt when unset and publishes ev.
func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, ev *models.AlertEvent) error {
	if ev == nil || ev.UserID == "" {
		return fmt.Errorf("alert event requires user id")
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.GeneratedAt.IsZero() {
		ev.GeneratedAt = p.now().UTC()
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(ev.UserID), ev); err != nil {
		return fmt.Errorf("publish alerts for %s: %w", ev.UserID, err)
	}
	return nil
}

func (p *KafkaAlertPublisher) Close() error {
	return p.producer.Close()
}

// NopAlertPublisher drops events; used when Kafka is disabled.
type NopAlertPublisher struct{}

func (NopAlertPublisher) PublishAlerts(context.Context, *models.AlertEvent) error { return nil }
func (NopAlertPublisher) Close() error                                          { return nil }
