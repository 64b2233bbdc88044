package notify_test

import (
	"errors"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
	"github.com/vladislavdragonenkov/kitchenops/internal/notify"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "test")
}

func TestKitchenSink_DeliverCalled(t *testing.T) {
	var gotID int64
	sink := notify.NewKitchenSink(quietLogger(), func(orderID int64, _ domain.ChangeSet) error {
		gotID = orderID
		return nil
	})

	if err := sink.NotifyUpdate(7, domain.ChangeSet{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != 7 {
		t.Fatalf("expected delivery for order 7, got %d", gotID)
	}
}

func TestKitchenSink_DeliverErrorPropagates(t *testing.T) {
	failure := errors.New("display offline")
	sink := notify.NewKitchenSink(quietLogger(), func(int64, domain.ChangeSet) error {
		return failure
	})

	if err := sink.NotifyUpdate(7, domain.ChangeSet{}); !errors.Is(err, failure) {
		t.Fatalf("expected delivery error, got %v", err)
	}
}

func TestClientSink_NilDeliverIsLogOnly(t *testing.T) {
	sink := notify.NewClientSink(quietLogger(), nil)

	if err := sink.NotifyUpdate(3, domain.ChangeSet{}); err != nil {
		t.Fatalf("log-only sink must not fail: %v", err)
	}
}
