package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/wolfman30/doctorhome/pkg/logging"
)

type sqsAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSHandler forwards outbox envelopes to an SQS queue.
type SQSHandler struct {
	client   sqsAPI
	queueURL string
}

// NewSQSHandler creates a handler around the provided SQS client.
func NewSQSHandler(client sqsAPI, queueURL string) *SQSHandler {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	return &SQSHandler{client: client, queueURL: queueURL}
}

func (h *SQSHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	_, err := h.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(h.queueURL),
		MessageBody: aws.String(string(entry.Payload)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(entry.Type)},
			"aggregate":  {DataType: aws.String("String"), StringValue: aws.String(entry.Aggregate)},
		},
	})
	if err != nil {
		return fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	return nil
}

// LogHandler logs envelopes; used when no queue is configured.
type LogHandler struct {
	logger *logging.Logger
}

func NewLogHandler(logger *logging.Logger) *LogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	h.logger.Info("event emitted", "event_id", entry.ID, "type", entry.Type, "aggregate", entry.Aggregate)
	return nil
}

// DirectPublisher hands events straight to a handler without an outbox. Used
// with store backends that have no Postgres pool to hold the outbox table.
type DirectPublisher struct {
	handler DeliveryHandler
}

func NewDirectPublisher(handler DeliveryHandler) *DirectPublisher {
	if handler == nil {
		panic("events: handler required")
	}
	return &DirectPublisher{handler: handler}
}

func (p *DirectPublisher) Publish(ctx context.Context, aggregate string, evt CanonicalEvent) error {
	env, err := NewEnvelope(aggregate, evt)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	return p.handler.Handle(ctx, OutboxEntry{
		ID:        env.EventID,
		Aggregate: env.Aggregate,
		Type:      env.EventType,
		Payload:   data,
		CreatedAt: nowFunc().UTC(),
	})
}
