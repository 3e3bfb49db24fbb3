package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/events"
)

// Topics для Kafka
const (
	TopicStateEvents     = "storefront.state.events"
	TopicDeadLetterQueue = "storefront.state.dlq"
)

// Kafka headers для диагностики доставки
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// StateEvent — внешнее представление события шины.
type StateEvent struct {
	EventType  string    `json:"event_type"`
	ProfileID  string    `json:"profile_id"`
	Action     string    `json:"action"`
	EntityID   string    `json:"entity_id,omitempty"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FromBusEvent переводит событие шины в сообщение для брокера.
func FromBusEvent(ev events.Event) StateEvent {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return StateEvent{
		EventType:  string(ev.Topic),
		ProfileID:  ev.Profile,
		Action:     ev.Action,
		EntityID:   ev.EntityID,
		Count:      ev.Count,
		OccurredAt: occurred.UTC(),
	}
}

// Key — ключ партиционирования: события одного профиля идут в одну партицию.
func (e StateEvent) Key() string {
	return e.ProfileID
}

// ParseStateEvent разбирает значение сообщения из топика состояний.
func ParseStateEvent(raw []byte) (StateEvent, error) {
	var ev StateEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return StateEvent{}, fmt.Errorf("unmarshal state event: %w", err)
	}
	if ev.EventType == "" || ev.ProfileID == "" {
		return StateEvent{}, fmt.Errorf("state event is missing event_type or profile_id")
	}
	return ev, nil
}

// DeadLetter — содержимое сообщения в DLQ.
type DeadLetter struct {
	OriginalTopic string          `json:"original_topic"`
	OriginalKey   string          `json:"original_key"`
	OriginalValue json.RawMessage `json:"original_value"`
	ErrorMessage  string          `json:"error_message"`
	Attempts      int             `json:"attempts"`
	FailedAt      time.Time       `json:"failed_at"`
}
