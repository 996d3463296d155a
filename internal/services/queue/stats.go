package queue

import (
	"fmt"

	"github.com/streadway/amqp"
)

// GetQueueStats reports the broker's view of the job queue next to the
// number of workers this process runs against it.
func (q *QueueService) GetQueueStats() (map[string]interface{}, error) {
	if q.channel == nil {
		return nil, fmt.Errorf("failed to inspect queue: channel not available")
	}
	queueInfo, err := q.channel.QueueInspect(q.queueName)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return q.queueStats(queueInfo), nil
}

func (q *QueueService) queueStats(info amqp.Queue) map[string]interface{} {
	local := int(q.workers.Load())
	return map[string]interface{}{
		"name":           info.Name,
		"pending_jobs":   info.Messages,
		"consumers":      info.Consumers,
		"local_workers":  local,
		"remote_workers": max(0, info.Consumers-local),
	}
}

// HealthCheck checks if RabbitMQ is available
func (q *QueueService) HealthCheck() string {
	if q.conn == nil || q.conn.IsClosed() {
		return "unhealthy: connection closed"
	}

	if q.channel == nil {
		return "unhealthy: channel not available"
	}

	return "healthy"
}
