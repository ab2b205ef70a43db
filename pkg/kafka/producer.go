// Package kafka streams crawl frontier additions to other consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appctx "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/metrics"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

const DefaultFrontierTopic = "bramble.frontier"

type Config struct {
	Brokers []string
	Topic   string
}

// ParseBrokers splits a comma-separated broker list.
func ParseBrokers(brokers string) []string {
	list := []string{}
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			list = append(list, b)
		}
	}
	return list
}

// MessageWriter is the subset of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// FrontierMessage is the payload for one discovered entity.
type FrontierMessage struct {
	ResourceType string    `json:"resource_type"`
	ExternalID   int64     `json:"external_id"`
	RunID        string    `json:"run_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	TraceID      string    `json:"trace_id,omitempty"`
}

type FrontierPublisher struct {
	writer MessageWriter
	topic  string
	logger ectologger.Logger
}

func NewFrontierPublisher(cfg Config, logger ectologger.Logger) *FrontierPublisher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultFrontierTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return NewFrontierPublisherWithWriter(writer, cfg.Topic, logger)
}

func NewFrontierPublisherWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *FrontierPublisher {
	return &FrontierPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

func (p *FrontierPublisher) Close() error {
	return p.writer.Close()
}

// Publish writes one message per item, keyed by the item key so one entity
// always lands on the same partition.
func (p *FrontierPublisher) Publish(ctx context.Context, items []models.CrawlFrontierItem) error {
	if len(items) == 0 {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "Kafka.PublishFrontier")
	defer span.End()

	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("messaging.operation", "publish"),
		attribute.Int("messaging.batch_size", len(items)),
	)

	runID := appctx.GetRunID(ctx)
	traceID := tracing.GetTraceID(ctx)
	headers := []kafka.Header{}
	if runID != "" {
		headers = append(headers, kafka.Header{Key: "run_id", Value: []byte(runID)})
	}
	if traceparent := tracing.GetTraceParent(ctx); traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(traceparent)})
	}
	if tracestate := tracing.GetTraceState(ctx); tracestate != "" {
		headers = append(headers, kafka.Header{Key: "tracestate", Value: []byte(tracestate)})
	}

	now := time.Now().UTC()
	messages := make([]kafka.Message, len(items))
	for i, item := range items {
		data, err := json.Marshal(FrontierMessage{
			ResourceType: item.ResourceType,
			ExternalID:   item.ExternalID,
			RunID:        runID,
			Timestamp:    now,
			TraceID:      traceID,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to marshal message")
			return fmt.Errorf("failed to marshal frontier item %s: %w", item.Key(), err)
		}
		messages[i] = kafka.Message{
			Key:     []byte(item.Key()),
			Value:   data,
			Headers: append([]kafka.Header{{Key: "resource_type", Value: []byte(item.ResourceType)}}, headers...),
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish batch")
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Add(float64(len(messages)))
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to publish frontier batch to Kafka topic %s", p.topic)
		return err
	}

	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "success").Add(float64(len(messages)))
	span.SetStatus(codes.Ok, "batch published")
	p.logger.WithContext(ctx).Debugf("Published %d frontier items to Kafka", len(messages))
	return nil
}
