// Package notify publishes queue lifecycle events to interested
// operators. The worker treats notifications as best-effort: a publish
// failure is logged and dropped, never propagated into task state.
package notify

import (
	"context"
	"encoding/json"
	"time"

	awsclient "cnpj-workers/internal/common/aws"
	"cnpj-workers/internal/common/config"
	"cnpj-workers/internal/common/logger"
)

type snsPublisher interface {
	Publish(ctx context.Context, topicARN, subject, message string) error
}

// SNSNotifier announces on an SNS topic that the queue has drained.
type SNSNotifier struct {
	client   snsPublisher
	topicARN string
	logger   logger.Logger
}

func NewSNSNotifier(ctx context.Context, cfg config.SNSConfig, log logger.Logger) (*SNSNotifier, error) {
	client, err := awsclient.NewSNSClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return &SNSNotifier{
		client:   client,
		topicARN: cfg.TopicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "notify"}),
	}, nil
}

type queueDrainedEvent struct {
	Event     string    `json:"event"`
	Processed int       `json:"processed"`
	Timestamp time.Time `json:"timestamp"`
}

// QueueDrained publishes a queue-drained event. Failures are logged and
// swallowed.
func (n *SNSNotifier) QueueDrained(ctx context.Context, processed int) {
	body, err := json.Marshal(queueDrainedEvent{
		Event:     "queue_drained",
		Processed: processed,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.logger.WithError(err).Error("failed to encode queue-drained event", nil)
		return
	}

	if err := n.client.Publish(ctx, n.topicARN, "Fila de consultas concluida", string(body)); err != nil {
		n.logger.WithError(err).Error("failed to publish queue-drained event", map[string]interface{}{
			"topicArn": n.topicARN,
		})
		return
	}

	n.logger.Info("queue-drained event published", map[string]interface{}{
		"processed": processed,
	})
}
