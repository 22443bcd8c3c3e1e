package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaStore publishes events to a Kafka topic. Records are keyed by subject
// ID so per-subject ordering survives partitioning.
type KafkaStore struct {
	client *kgo.Client
	topic  string
}

// kafkaPayload is the JSON structure published to the topic. Field names are
// the wire contract for downstream consumers.
type kafkaPayload struct {
	Action      string `json:"action"`
	Timestamp   string `json:"timestamp"`
	SubjectID   string `json:"subject_id"`
	AnomalyID   string `json:"anomaly_id,omitempty"`
	AnomalyType string `json:"anomaly_type,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Delta       int    `json:"delta,omitempty"`
	Score       int    `json:"score,omitempty"`
	Reason      string `json:"reason,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// NewKafkaStore connects a producer for the given brokers and topic.
func NewKafkaStore(brokers []string, topic string) (*KafkaStore, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaStore{client: client, topic: topic}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		Action:      string(event.Action),
		Timestamp:   event.Timestamp.Format(time.RFC3339Nano),
		SubjectID:   event.SubjectID.String(),
		AnomalyID:   event.AnomalyID,
		AnomalyType: event.AnomalyType,
		Severity:    event.Severity,
		Delta:       event.Delta,
		Score:       event.Score,
		Reason:      event.Reason,
		RequestID:   event.RequestID,
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.SubjectID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (s *KafkaStore) Close() {
	s.client.Close()
}
