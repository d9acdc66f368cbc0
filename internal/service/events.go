package service

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "github.com/KeviinASD/audi-back/internal/common/redis"
)

const (
	EventAnalysisCompleted    = "analysis.completed"
	EventFindingStatusChanged = "finding.status_changed"
	EventAgentSynced          = "agent.synced"
)

// AuditEvent envelope written to the audit event stream.
type AuditEvent struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// EventPublisher audit event sink. Publishing is fire-and-forget for callers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// StreamEventPublisher publishes events to a Redis stream.
type StreamEventPublisher struct {
	client *redis.Client
	stream string
}

func NewStreamEventPublisher(client *redis.Client, stream string) *StreamEventPublisher {
	return &StreamEventPublisher{client: client, stream: stream}
}

func (p *StreamEventPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	_, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, AuditEvent{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	return err
}

// publishEvent logs and swallows publisher failures; a nil publisher disables events.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, eventType string, payload any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, eventType, payload); err != nil {
		logger.Warn("Failed to publish audit event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
