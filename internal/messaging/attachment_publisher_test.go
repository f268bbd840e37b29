package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestAttachmentPublisher_PublishAttachment(t *testing.T) {
	producer := &MockProducer{}
	publisher := NewAttachmentPublisher(producer, "attachment-association", zap.NewNop())

	msg := models.AttachmentMessage{
		AttachmentCode: "ATT-01",
		EntityName:     models.AttachmentEntityName,
		EntityID:       "res-1",
	}

	var sent []kafka.Message
	producer.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).([]kafka.Message)
		}).
		Return(nil)

	require.NoError(t, publisher.PublishAttachment(context.Background(), msg))
	require.Len(t, sent, 1)
	assert.Equal(t, []byte("res-1"), sent[0].Key)

	var body map[string]string
	require.NoError(t, json.Unmarshal(sent[0].Value, &body))
	assert.Equal(t, "ATT-01", body["attachment_code"])
	assert.Equal(t, "reservation", body["entity_name"])
	assert.Equal(t, "res-1", body["entity_id"])
}

func TestAttachmentPublisher_WriteError(t *testing.T) {
	producer := &MockProducer{}
	publisher := NewAttachmentPublisher(producer, "attachment-association", zap.NewNop())

	producer.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	err := publisher.PublishAttachment(context.Background(), models.AttachmentMessage{EntityID: "res-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestAttachmentPublisher_Close(t *testing.T) {
	producer := &MockProducer{}
	producer.On("Close").Return(nil)

	require.NoError(t, NewAttachmentPublisher(producer, "t", zap.NewNop()).Close())
	producer.AssertExpectations(t)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"kafka-1:9092"}, "attachment-association")
	assert.Equal(t, "attachment-association", w.Topic)
	assert.Equal(t, "kafka-1:9092", w.Addr.String())
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
}
