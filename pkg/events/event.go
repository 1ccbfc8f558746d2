package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "research.started").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation backing the typed constructors below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Research session lifecycle event codes.
const (
	TypeResearchStarted   = "research.started"
	TypeResearchCompleted = "research.completed"
	TypeResearchFailed    = "research.failed"
	TypeResearchCancelled = "research.cancelled"
	TypeResearchDeleted   = "research.deleted"
)

func NewResearchStarted(sessionId, userId, question string) Event {
	return BaseEvent{
		Type: TypeResearchStarted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"question":   question,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchCompleted(sessionId, userId, reportFile string) Event {
	return BaseEvent{
		Type: TypeResearchCompleted,
		Data: map[string]interface{}{
			"session_id":  sessionId,
			"user_id":     userId,
			"report_file": reportFile,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchFailed(sessionId, userId, reason string) Event {
	return BaseEvent{
		Type: TypeResearchFailed,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchCancelled(sessionId, userId string) Event {
	return BaseEvent{
		Type: TypeResearchCancelled,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
		},
		OccurredAt: time.Now(),
	}
}

func NewResearchDeleted(sessionId, userId string) Event {
	return BaseEvent{
		Type: TypeResearchDeleted,
		Data: map[string]interface{}{
			"session_id": sessionId,
			"user_id":    userId,
		},
		OccurredAt: time.Now(),
	}
}
