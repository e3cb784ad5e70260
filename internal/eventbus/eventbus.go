// Package eventbus connects the module routers to NATS JetStream through
// watermill.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/spylab/llm-ctf/internal/observability/attr"
)

// TopicMetadataKey names the metadata entry used to route messages published
// with an empty topic.
const TopicMetadataKey = "topic"

var ErrNoTopic = errors.New("message has no topic set in metadata")

// EventBus is the publisher and subscriber handed to the module routers.
type EventBus interface {
	message.Publisher
	message.Subscriber
	// CreateStream ensures a JetStream stream named name captures the
	// subjects name.>.
	CreateStream(ctx context.Context, name string) error
}

type natsEventBus struct {
	publisher      message.Publisher
	subscriber     message.Subscriber
	js             jetstream.JetStream
	natsConn       *nc.Conn
	logger         *slog.Logger
	createdStreams map[string]bool
	streamMutex    sync.Mutex
}

// NewEventBus connects to NATS at natsURL. appType becomes the queue group
// prefix so replicas of one binary share deliveries.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger, appType string) (EventBus, error) {
	options := []nc.Option{
		nc.Name(appType),
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.MaxReconnects(-1),
	}

	natsConn, err := nc.Connect(natsURL, options...)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", attr.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	jsConfig := nats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		SubscribeOptions: []nc.SubOpt{
			nc.DeliverAll(),
			nc.AckExplicit(),
		},
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         natsURL,
			Marshaler:   marshaler,
			NatsOptions: options,
			JetStream:   jsConfig,
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:               natsURL,
			QueueGroupPrefix:  appType,
			SubscribersCount:  4,
			CloseTimeout:      30 * time.Second,
			AckWaitTimeout:    30 * time.Second,
			NatsOptions:       options,
			Unmarshaler:       marshaler,
			JetStream:         jsConfig,
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		watermillLogger,
	)
	if err != nil {
		publisher.Close()
		natsConn.Close()
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	return &natsEventBus{
		publisher:      publisher,
		subscriber:     subscriber,
		js:             js,
		natsConn:       natsConn,
		logger:         logger,
		createdStreams: make(map[string]bool),
	}, nil
}

// Publish sends messages to topic. An empty topic routes every message by
// its "topic" metadata entry.
func (eb *natsEventBus) Publish(topic string, messages ...*message.Message) error {
	return publishRouted(eb.publisher, eb.logger, topic, messages)
}

func (eb *natsEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	eb.logger.InfoContext(ctx, "Subscribing to topic", attr.String("topic", topic))
	return eb.subscriber.Subscribe(ctx, topic)
}

func (eb *natsEventBus) CreateStream(ctx context.Context, name string) error {
	eb.streamMutex.Lock()
	defer eb.streamMutex.Unlock()

	if eb.createdStreams[name] {
		return nil
	}

	subject := name + ".>"
	_, err := eb.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
		MaxAge:    72 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}

	eb.logger.InfoContext(ctx, "Stream ready",
		attr.String("stream_name", name),
		attr.String("subject", subject),
	)
	eb.createdStreams[name] = true
	return nil
}

// Close closes the watermill publisher and subscriber and the NATS connection.
func (eb *natsEventBus) Close() error {
	var errs []error
	if err := eb.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := eb.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	eb.natsConn.Close()
	return errors.Join(errs...)
}

func publishRouted(publisher message.Publisher, logger *slog.Logger, topic string, messages []*message.Message) error {
	if topic != "" {
		return publisher.Publish(topic, messages...)
	}

	for _, msg := range messages {
		if msg.UUID == "" {
			msg.UUID = watermill.NewUUID()
		}
		routed := msg.Metadata.Get(TopicMetadataKey)
		if routed == "" {
			logger.Error("Dropping message without topic",
				attr.String("message_id", msg.UUID),
				attr.String("correlation_id", msg.Metadata.Get("correlation_id")),
			)
			return fmt.Errorf("message %s: %w", msg.UUID, ErrNoTopic)
		}
		if err := publisher.Publish(routed, msg); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", routed, err)
		}
	}
	return nil
}
