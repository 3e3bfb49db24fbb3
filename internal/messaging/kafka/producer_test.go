package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/events"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, log.WithField("test", t.Name()))

	var captured []byte
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		captured = val
		return nil
	})

	event := FromBusEvent(events.Event{
		Topic:    events.TopicWishlistChanged,
		Profile:  "p-1",
		Action:   events.ActionAdded,
		EntityID: "sku-1",
		Count:    1,
	})

	if err := producer.PublishEvent(TopicStateEvents, event.Key(), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	parsed, err := ParseStateEvent(captured)
	if err != nil {
		t.Fatalf("parse published value: %v", err)
	}
	if parsed.EventType != "wishlist.changed" || parsed.ProfileID != "p-1" || parsed.EntityID != "sku-1" {
		t.Fatalf("unexpected published event: %+v", parsed)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := NewProducerFromSync(mockProducer, nil)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishEvent(TopicStateEvents, "p-1", StateEvent{EventType: "wallet.changed", ProfileID: "p-1"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFromBusEvent(t *testing.T) {
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))

	event := FromBusEvent(events.Event{
		Topic:      events.TopicTransactionRecorded,
		Profile:    "p-9",
		Action:     events.ActionRecorded,
		EntityID:   "tx-1",
		Count:      3,
		OccurredAt: occurred,
	})

	if event.EventType != "transaction.recorded" {
		t.Errorf("expected event type transaction.recorded, got %s", event.EventType)
	}
	if event.Key() != "p-9" {
		t.Errorf("expected key p-9, got %s", event.Key())
	}
	if event.OccurredAt.Location() != time.UTC || !event.OccurredAt.Equal(occurred) {
		t.Errorf("expected UTC timestamp equal to source, got %v", event.OccurredAt)
	}

	if FromBusEvent(events.Event{Topic: events.TopicWalletChanged, Profile: "p"}).OccurredAt.IsZero() {
		t.Error("timestamp should not be zero")
	}
}

func TestParseStateEvent(t *testing.T) {
	raw, err := json.Marshal(StateEvent{EventType: "comparison.changed", ProfileID: "p-2", Action: "cleared"})
	if err != nil {
		t.Fatal(err)
	}
	ev, err := ParseStateEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Action != "cleared" {
		t.Errorf("expected action cleared, got %s", ev.Action)
	}

	for _, bad := range []string{`not-json`, `{}`, `{"event_type":"x"}`} {
		if _, err := ParseStateEvent([]byte(bad)); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
