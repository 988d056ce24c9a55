package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// KafkaStore publishes audit events to a Kafka topic, keyed by hospital so
// per-hospital ordering is preserved. It is write-only; reads go through a
// consumer elsewhere.
type KafkaStore struct {
	client *kgo.Client
	topic  string
}

// kafkaPayload is the wire form. Field names are stable for consumers.
type kafkaPayload struct {
	Timestamp  string `json:"timestamp"`
	HospitalID string `json:"hospital_id,omitempty"`
	Actor      string `json:"actor,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Action     string `json:"action"`
	Amount     uint64 `json:"amount,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// NewKafkaStore connects to the brokers and ensures the topic exists.
func NewKafkaStore(ctx context.Context, brokers []string, topic string) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchMaxBytes(1<<20),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("create audit topic: %w", resp.Err)
	}

	return &KafkaStore{client: client, topic: topic}, nil
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Subject:   event.Subject,
		Action:    event.Action,
		Amount:    event.Amount,
		RequestID: event.RequestID,
	}
	if !event.HospitalID.IsNil() {
		payload.HospitalID = event.HospitalID.String()
	}
	if !event.Actor.IsNil() {
		payload.Actor = event.Actor.String()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(payload.HospitalID),
		Value: raw,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByHospital is not served by the Kafka sink; consumers own reads.
func (s *KafkaStore) ListByHospital(context.Context, id.HospitalID) ([]Event, error) {
	return nil, sentinel.ErrUnavailable
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
