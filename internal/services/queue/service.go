package queue

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/staging"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Store persists job state and publishes finished archives.
type Store interface {
	SaveJob(ctx context.Context, job *models.WatermarkJob) error
	UploadArchive(ctx context.Context, path, key string) (string, error)
	PublishingEnabled() bool
}

type QueueService struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	logger    *zap.Logger
	queueName string
	processor *processor.WatermarkProcessor
	storage   Store
	staging   *staging.Area
	workers   atomic.Int32 // consumers started by this process
}

func NewQueueService(
	rabbitmqURL string,
	queueName string,
	processor *processor.WatermarkProcessor,
	storage Store,
	staging *staging.Area,
	logger *zap.Logger,
) (*QueueService, error) {
	conn, err := amqp.Dial(rabbitmqURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One unacknowledged batch per consumer.
	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &QueueService{
		conn:      conn,
		channel:   channel,
		logger:    logger,
		queueName: queueName,
		processor: processor,
		storage:   storage,
		staging:   staging,
	}, nil
}

// Close closes the queue connection
func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
