// Package outbox publishes domain events after a business mutation's unit of
// work has completed. Publication is best-effort: failures are logged and
// never surfaced to the request path.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers one event to the message channel.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
	Close() error
}

// KafkaPublisher writes CloudEvents JSON envelopes to Kafka, one topic per
// event type. Same-topic ordering follows call order on a single publishing
// path; nothing is guaranteed across topics.
type KafkaPublisher struct {
	writer *kafka.Writer
	source string
}

// NewKafkaPublisher builds a publisher for the given brokers. Call Close on
// shutdown.
func NewKafkaPublisher(brokers []string, source string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: writer, source: source}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload any) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(p.source)
	event.SetType(topic)
	event.SetTime(time.Now().UTC())
	if err := event.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event envelope: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: topic,
		Value: body,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                               { return nil }

// NewPublisher returns a Kafka publisher, or a no-op one when no brokers are
// configured.
func NewPublisher(brokers []string, source string) Publisher {
	if len(brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokers, source)
}

// Emitter is the fire-and-forget entry point handlers use. Publish failures
// are a non-critical side effect: logged at warn, never returned.
type Emitter struct {
	publisher Publisher
	log       *slog.Logger
}

func NewEmitter(publisher Publisher, log *slog.Logger) *Emitter {
	return &Emitter{publisher: publisher, log: log}
}

// Emit attempts delivery and swallows any failure.
func (e *Emitter) Emit(ctx context.Context, topic string, payload any) {
	if err := e.publisher.Publish(ctx, topic, payload); err != nil {
		e.log.Warn("event publish failed", "topic", topic, "error", err)
	}
}
