package app

import "testing"

func TestInitKafka_EmptyBrokers(t *testing.T) {
	producer, err := initKafka("", testLogger())
	if err != nil {
		t.Fatalf("empty brokers must not be an error, got %v", err)
	}
	if producer != nil {
		t.Error("expected nil producer for empty brokers")
	}
}

func TestInitKafka_BlankBrokerList(t *testing.T) {
	// Список из пустых элементов эквивалентен отсутствию брокеров.
	producer, err := initKafka(" , ,", testLogger())
	if err != nil {
		t.Fatalf("blank broker list must not be an error, got %v", err)
	}
	if producer != nil {
		t.Error("expected nil producer for blank broker list")
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers(" kafka-1:9092, kafka-2:9092 ,")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Errorf("unexpected broker list: %v", got)
	}
}

func TestCloseKafka_NilProducer(t *testing.T) {
	// Не должно паниковать.
	closeKafka(nil, testLogger())
}
