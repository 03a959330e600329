//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "outpass/pkg/domain"
	"outpass/pkg/platform/audit"
	"outpass/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	redpanda := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	publisher, err := audit.NewKafkaPublisher(ctx, redpanda.Brokers)
	require.NoError(t, err)
	defer publisher.Close()

	passID := id.PassID(uuid.New())
	studentID := id.StudentID(uuid.New())
	event := audit.Event{
		Category:  audit.CategoryMovement,
		Timestamp: time.Now().UTC(),
		PassID:    passID,
		StudentID: studentID,
		ActorID:   uuid.NewString(),
		Action:    string(audit.EventGateCheckOut),
		Outcome:   "ok",
		RequestID: uuid.NewString(),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(audit.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.NotEmpty(t, records)

	var found bool
	for _, record := range records {
		var payload struct {
			Category  string `json:"category"`
			PassID    string `json:"pass_id"`
			StudentID string `json:"student_id"`
			Action    string `json:"action"`
			Outcome   string `json:"outcome"`
		}
		require.NoError(t, json.Unmarshal(record.Value, &payload))
		if payload.PassID != passID.String() {
			continue
		}
		found = true
		assert.Equal(t, string(audit.CategoryMovement), payload.Category)
		assert.Equal(t, studentID.String(), payload.StudentID)
		assert.Equal(t, string(audit.EventGateCheckOut), payload.Action)
		assert.Equal(t, "ok", payload.Outcome)
		assert.Equal(t, []byte(studentID.String()), record.Key)
	}
	assert.True(t, found, "published event not seen on %s", audit.Topic)
}
