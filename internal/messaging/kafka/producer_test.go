package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
)

func newMockProducer(t *testing.T) (*Producer, *mocks.SyncProducer) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	return &Producer{
		producer: mockProducer,
		logger:   log.New().WithField("component", "kafka_producer_test"),
	}, mockProducer
}

func TestProducer_Publish(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	// Сообщение должно уходить с ключом-номером заказа.
	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(value []byte) error {
		var event ModificationEvent
		return json.Unmarshal(value, &event)
	})

	event := NewModificationEvent(123, []string{"qty", "size"})

	if err := producer.Publish(TopicKitchenUpdates, event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_Publish_Error(t *testing.T) {
	producer, mockProducer := newMockProducer(t)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewModificationEvent(123, []string{"qty"})

	if err := producer.Publish(TopicKitchenUpdates, event); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewModificationEvent(t *testing.T) {
	event := NewModificationEvent(42, []string{"qty", "payment_method"})

	if event.EventType != EventTypeOrderModified {
		t.Errorf("expected event type %s, got %s", EventTypeOrderModified, event.EventType)
	}

	if event.OrderID != 42 {
		t.Errorf("expected order id 42, got %d", event.OrderID)
	}

	if len(event.Fields) != 2 || event.Fields[0] != "qty" {
		t.Errorf("fields not set correctly: %v", event.Fields)
	}

	if event.Timestamp.IsZero() {
		t.Error("timestamp should not be zero")
	}

	if time.Since(event.Timestamp) > time.Second {
		t.Error("timestamp should be close to current time")
	}
}

type stubPublisher struct {
	topic string
	event *ModificationEvent
	err   error
}

func (s *stubPublisher) Publish(topic string, event *ModificationEvent) error {
	s.topic = topic
	s.event = event
	return s.err
}

func TestSink_NotifyUpdate(t *testing.T) {
	publisher := &stubPublisher{}
	sink := NewSink(publisher, TopicClientUpdates)

	qty := 3
	if err := sink.NotifyUpdate(42, domain.ChangeSet{Qty: &qty}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if publisher.topic != TopicClientUpdates {
		t.Errorf("expected topic %s, got %s", TopicClientUpdates, publisher.topic)
	}

	event := publisher.event
	if event == nil {
		t.Fatal("expected event to be published")
	}
	if event.OrderID != 42 {
		t.Errorf("expected order id 42, got %d", event.OrderID)
	}
	if len(event.Fields) != 1 || event.Fields[0] != "qty" {
		t.Errorf("expected fields [qty], got %v", event.Fields)
	}
}

func TestSink_NotifyUpdate_PublisherError(t *testing.T) {
	publisher := &stubPublisher{err: sarama.ErrOutOfBrokers}
	sink := NewSink(publisher, TopicKitchenUpdates)

	size := "grande"
	if err := sink.NotifyUpdate(7, domain.ChangeSet{Size: &size}); err == nil {
		t.Fatal("expected publisher error to propagate")
	}
}
