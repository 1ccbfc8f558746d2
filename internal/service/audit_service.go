package service

import (
	"context"

	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/pkg/events"
	pktNats "deepresearch-be/pkg/nats"
)

// AuditService is the consuming side of the lifecycle event stream: it
// records every research session transition into the audit log through
// durable JetStream consumers, so the trail survives restarts.
type AuditService struct {
	subscriber *pktNats.Subscriber
	log        logger.ILogger
}

func NewAuditService(subscriber *pktNats.Subscriber, log logger.ILogger) *AuditService {
	return &AuditService{
		subscriber: subscriber,
		log:        log,
	}
}

// Start registers one durable consumer per lifecycle event type. It
// returns after registration; delivery runs on JetStream's callbacks.
func (s *AuditService) Start() {
	ctx := context.Background()

	eventTypes := []string{
		events.TypeResearchStarted,
		events.TypeResearchCompleted,
		events.TypeResearchFailed,
		events.TypeResearchCancelled,
		events.TypeResearchDeleted,
	}
	for _, eventType := range eventTypes {
		if err := s.subscriber.Subscribe(ctx, durableName(eventType), eventType, s.record); err != nil {
			s.log.Warn("audit", "failed to subscribe to lifecycle events", map[string]interface{}{
				"event_type": eventType,
				"error":      err.Error(),
			})
		}
	}
}

func (s *AuditService) record(_ context.Context, event events.Event) error {
	s.log.Info("audit", event.EventType(), event.Payload())
	return nil
}

func durableName(eventType string) string {
	// JetStream durable names may not contain dots.
	name := []byte("audit-" + eventType)
	for i, c := range name {
		if c == '.' {
			name[i] = '-'
		}
	}
	return string(name)
}
