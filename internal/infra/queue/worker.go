package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

// CRMClient pushes won deals to the external CRM.
type CRMClient interface {
	SyncConvertedLead(ctx context.Context, event usecase.LeadEvent) error
}

type IntegrationErrorRecorder interface {
	IntegrationError(service string)
}

type consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

var errMalformedEvent = errors.New("malformed lead event")

type Worker struct {
	Channel consumer
	CRM     CRMClient
	Errors  IntegrationErrorRecorder
	Logger  *zap.Logger
}

func NewWorker(ch consumer, crm CRMClient, errs IntegrationErrorRecorder, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		Channel: ch,
		CRM:     crm,
		Errors:  errs,
		Logger:  logger,
	}
}

// Start consumes queueName until ctx is done or the broker closes the
// delivery channel.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	w.Logger.Info("worker waiting for messages", zap.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("worker stopped", zap.String("queue", queueName))
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks processed messages and dead-letters failures without requeue,
// so one bad message cannot block the queue.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	if err := w.process(ctx, d.Body); err != nil {
		w.Logger.Error("lead event rejected", zap.Error(err), zap.Uint64("delivery_tag", d.DeliveryTag))
		if nackErr := d.Nack(false, false); nackErr != nil {
			w.Logger.Error("nack failed", zap.Error(nackErr))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		w.Logger.Error("ack failed", zap.Error(err))
	}
}

func (w *Worker) process(ctx context.Context, body []byte) error {
	var event usecase.LeadEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.LeadID == "" {
		return fmt.Errorf("%w: missing lead_id", errMalformedEvent)
	}

	switch event.Type {
	case usecase.EventLeadConverted:
		w.Logger.Info("syncing converted lead", zap.String("lead_id", event.LeadID))
		if err := w.CRM.SyncConvertedLead(ctx, event); err != nil {
			if w.Errors != nil {
				w.Errors.IntegrationError("kommo")
			}
			return fmt.Errorf("kommo sync for lead %s: %w", event.LeadID, err)
		}
		return nil
	default:
		w.Logger.Warn("ignoring unexpected event type", zap.String("type", event.Type))
		return nil
	}
}
