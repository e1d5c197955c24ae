package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"CashPilot/internal/domain/models"
)

type capturePublisher struct {
	topic string
	key   []byte
	value any
	err   error
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value any) error {
	c.topic, c.key, c.value = topic, key, value
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func TestKafkaAlertPublisher_FillsEnvelope(t *testing.T) {
	cp := &capturePublisher{}
	p := NewKafkaAlertPublisher(cp, "cashflow.alerts")
	fixed := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ev := &models.AlertEvent{UserID: "u1", HealthScore: 40, Alerts: []models.Alert{{Severity: models.SeverityDanger, Message: "x", Priority: 1}}}
	if err := p.PublishAlerts(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if cp.topic != "cashflow.alerts" || string(cp.key) != "u1" {
		t.Fatalf("topic/key = %s/%s", cp.topic, cp.key)
	}
	if ev.EventID == "" || !ev.GeneratedAt.Equal(fixed) {
		t.Fatalf("envelope not filled: %+v", ev)
	}
	if cp.value.(*models.AlertEvent) != ev {
		t.Fatalf("unexpected payload %#v", cp.value)
	}
}

func TestKafkaAlertPublisher_Errors(t *testing.T) {
	cp := &capturePublisher{err: errors.New("broker down")}
	p := NewKafkaAlertPublisher(cp, "t")
	if err := p.PublishAlerts(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil event")
	}
	err := p.PublishAlerts(context.Background(), &models.AlertEvent{UserID: "u1"})
	if err == nil || !errors.Is(err, cp.err) {
		t.Fatalf("err = %v, want wrapped broker error", err)
	}
}
