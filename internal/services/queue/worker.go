package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

func (q *QueueService) StartWorker(ctx context.Context, workerID int) error {
	msgs, err := q.channel.Consume(
		q.queueName,                        // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Worker started", zap.Int("worker_id", workerID))
	q.workers.Add(1)

	go func() {
		defer q.workers.Add(-1)
		for {
			select {
			case <-ctx.Done():
				q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
				return
			case msg, ok := <-msgs:
				if !ok {
					q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
					return
				}

				q.processMessage(ctx, msg, workerID)
			}
		}
	}()

	return nil
}

// acknowledger is the part of amqp.Delivery a worker settles messages with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) {
	q.handleDelivery(ctx, msg.Body, msg, workerID)
}

func (q *QueueService) handleDelivery(ctx context.Context, body []byte, ack acknowledger, workerID int) {
	var job models.WatermarkJob
	if err := json.Unmarshal(body, &job); err != nil || job.ID == "" {
		q.logger.Error("Failed to unmarshal job",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		ack.Nack(false, false) // Don't requeue malformed messages
		return
	}

	q.logger.Info("Processing job",
		zap.String("job_id", job.ID),
		zap.Int("worker_id", workerID))

	if !q.processJob(ctx, &job) {
		if err := ack.Nack(false, true); err != nil {
			q.logger.Error("Failed to requeue message",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
		return
	}

	// Acknowledge the message
	if err := ack.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}
