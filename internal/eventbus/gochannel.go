package eventbus

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type goChannelEventBus struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

// NewGoChannelEventBus returns an in-process EventBus. Streams are a no-op.
func NewGoChannelEventBus(logger *slog.Logger) EventBus {
	return &goChannelEventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          true,
		}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

func (b *goChannelEventBus) Publish(topic string, messages ...*message.Message) error {
	return publishRouted(b.pubsub, b.logger, topic, messages)
}

func (b *goChannelEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *goChannelEventBus) CreateStream(context.Context, string) error { return nil }

func (b *goChannelEventBus) Close() error { return b.pubsub.Close() }
