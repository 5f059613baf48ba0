package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/shop/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	publisher := NewOutboxPublisher(NewProducerWithClient(mockProducer, nil), "")
	publishedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	publisher.now = func() time.Time { return publishedAt }

	occurred := publishedAt.Add(-time.Minute)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		assert.Equal(t, TopicOrderEvents, msg.Topic)

		key, err := msg.Key.Encode()
		require.NoError(t, err)
		assert.Equal(t, "order-123", string(key))

		headers := map[string]string{}
		for _, h := range msg.Headers {
			headers[string(h.Key)] = string(h.Value)
		}
		assert.Equal(t, domain.EventOrderStatusChanged, headers[HeaderEventType])
		assert.Equal(t, "outbox-1", headers[HeaderOutboxID])

		value, err := msg.Value.Encode()
		require.NoError(t, err)
		var envelope Envelope
		require.NoError(t, json.Unmarshal(value, &envelope))
		assert.Equal(t, domain.AggregateOrder, envelope.AggregateType)
		assert.JSONEq(t, `{"from":"created","to":"paid"}`, string(envelope.Payload))
		assert.True(t, envelope.OccurredAt.Equal(occurred))
		assert.True(t, envelope.PublishedAt.Equal(publishedAt))
		return nil
	})

	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: domain.AggregateOrder,
		AggregateID:   "order-123",
		EventType:     domain.EventOrderStatusChanged,
		Payload:       []byte(`{"from":"created","to":"paid"}`),
		CreatedAt:     occurred,
	})
	require.NoError(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	publisher := NewOutboxPublisher(NewProducerWithClient(mockProducer, nil), TopicOrderEvents)

	err := publisher.Publish(context.Background(), domain.OutboxMessage{
		ID:          "outbox-2",
		AggregateID: "order-234",
		EventType:   domain.EventOrderDeleted,
		Payload:     []byte(`{}`),
	})
	assert.Error(t, err)
	require.NoError(t, mockProducer.Close())
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicOrderEvents)
	assert.Error(t, publisher.Publish(context.Background(), domain.OutboxMessage{ID: "outbox-3"}))
}

func TestEnvelope_KeyAndEmptyPayload(t *testing.T) {
	t.Parallel()

	envelope := NewEnvelope(domain.OutboxMessage{ID: "outbox-4"}, time.Now())
	assert.Equal(t, "outbox-4", envelope.Key())
	assert.JSONEq(t, "null", string(envelope.Payload))
}
