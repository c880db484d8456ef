package events

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublisherHandle(t *testing.T) {
	client := &fakeSQS{}
	pub := NewSQSPublisher(client, "https://sqs.local/leads")
	entry := OutboxEntry{ID: uuid.New(), Aggregate: "lead-9", Type: EventTypeLeadSubmitted, Payload: []byte(`{"lead_id":"lead-9"}`)}

	require.NoError(t, pub.Handle(context.Background(), entry))
	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs.local/leads", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, `{"lead_id":"lead-9"}`, aws.ToString(client.input.MessageBody))
	assert.Equal(t, EventTypeLeadSubmitted, aws.ToString(client.input.MessageAttributes["event_type"].StringValue))
	assert.Equal(t, "lead-9", aws.ToString(client.input.MessageAttributes["aggregate"].StringValue))
}

func TestSQSPublisherErrors(t *testing.T) {
	client := &fakeSQS{err: errors.New("throttled")}
	pub := NewSQSPublisher(client, "q")

	err := pub.Handle(context.Background(), OutboxEntry{Payload: []byte(`{}`)})
	assert.ErrorContains(t, err, "throttled")

	err = pub.Handle(context.Background(), OutboxEntry{})
	assert.Error(t, err)

	assert.Panics(t, func() { NewSQSPublisher(nil, "q") })
	assert.Panics(t, func() { NewSQSPublisher(client, "") })
}

func TestLogPublisher(t *testing.T) {
	var msgs []string
	pub := LogPublisher{Logf: func(msg string, _ ...any) { msgs = append(msgs, msg) }}
	require.NoError(t, pub.Handle(context.Background(), OutboxEntry{Type: EventTypeLeadSubmitted}))
	assert.Equal(t, []string{"outbox event"}, msgs)
	require.NoError(t, LogPublisher{}.Handle(context.Background(), OutboxEntry{}))
}
