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
)

// Topic is the Kafka topic ledger events are published to.
const Topic = "outpass.ledger"

// kafkaPayload is the JSON structure published to Kafka. Field names are part
// of the wire contract with downstream consumers.
type kafkaPayload struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	PassID    string `json:"pass_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty"`
	Action    string `json:"action"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// KafkaPublisher publishes ledger events to Kafka. Production is synchronous
// from the worker's point of view but the worker itself is off the request
// path, so a slow broker never affects a gate scan.
type KafkaPublisher struct {
	client *kgo.Client
}

// NewKafkaPublisher connects to the given brokers and ensures the ledger
// topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	return &KafkaPublisher{client: client}, nil
}

// ensureTopic creates the ledger topic if missing; "already exists" is fine.
func ensureTopic(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, Topic)
	if err != nil {
		return fmt.Errorf("create ledger topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create ledger topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload := kafkaPayload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		ActorID:   event.ActorID,
		Outcome:   event.Outcome,
		Reason:    event.Reason,
		RequestID: event.RequestID,
	}
	if !event.PassID.IsNil() {
		payload.PassID = event.PassID.String()
	}
	if !event.StudentID.IsNil() {
		payload.StudentID = event.StudentID.String()
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ledger payload: %w", err)
	}

	record := &kgo.Record{
		Topic: Topic,
		Key:   []byte(payload.StudentID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce ledger event: %w", err)
	}
	return nil
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
