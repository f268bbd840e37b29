package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/pkg/metrics"
	"github.com/egov-portal/reserve-service/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Producer минимальный интерфейс записи в Kafka, реализуется *kafka.Writer
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AttachmentPublisher публикует сообщения о привязке вложений к бронированиям
type AttachmentPublisher struct {
	producer Producer
	topic    string
	logger   *zap.Logger
}

// NewAttachmentPublisher создает издателя сообщений о привязке вложений
func NewAttachmentPublisher(producer Producer, topic string, logger *zap.Logger) *AttachmentPublisher {
	return &AttachmentPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// batchTimeout ограничивает ожидание пачки: публикация идет синхронно в обработке запроса
const batchTimeout = 10 * time.Millisecond

// NewWriter создает kafka.Writer для топика привязки вложений
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
}

// PublishAttachment отправляет сообщение {attachmentCode, entityName, entityId}.
// Ключ сообщения - идентификатор бронирования, контекст трассировки передается в заголовках.
func (p *AttachmentPublisher) PublishAttachment(ctx context.Context, msg models.AttachmentMessage) error {
	ctx, span := tracing.Tracer().Start(ctx, "attachment.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.String("reservation.id", msg.EntityID),
		),
	)
	defer span.End()

	payload, err := json.Marshal(msg)
	if err != nil {
		metrics.RecordAttachmentMessage("error")
		return fmt.Errorf("failed to marshal attachment message: %w", err)
	}

	headers := make([]kafka.Header, 0, 2)
	for k, v := range tracing.InjectHeaders(ctx) {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	err = p.producer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(msg.EntityID),
		Value:   payload,
		Headers: headers,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordAttachmentMessage("error")
		p.logger.Error("Failed to publish attachment message",
			zap.Error(err),
			zap.String("reservation_id", msg.EntityID),
			zap.String("attachment_code", msg.AttachmentCode))
		return fmt.Errorf("failed to publish attachment message: %w", err)
	}

	metrics.RecordAttachmentMessage("success")
	p.logger.Debug("Attachment message published",
		zap.String("reservation_id", msg.EntityID),
		zap.String("topic", p.topic))
	return nil
}

// Close закрывает producer
func (p *AttachmentPublisher) Close() error {
	return p.producer.Close()
}
