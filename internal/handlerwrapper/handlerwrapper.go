// Package handlerwrapper adapts typed event handlers to watermill handler
// functions.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is one outgoing event produced by a handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// WrapTransformingTyped decodes the JSON payload of each incoming message
// into T, calls handler and encodes its results as outgoing messages that
// carry their topic and the incoming correlation id in metadata.
//
// Payloads that do not decode are logged and acknowledged; handler errors are
// returned so the router can retry.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	handler func(ctx context.Context, payload *T) ([]Result, error),
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		correlationID := middleware.MessageCorrelationID(msg)
		if correlationID == "" {
			correlationID = msg.UUID
		}
		ctx := attr.WithCorrelationID(msg.Context(), correlationID)

		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message_id", msg.UUID),
			attribute.String("correlation_id", correlationID),
		))
		defer span.End()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.WarnContext(ctx, "Dropping message with undecodable payload",
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			span.RecordError(err)
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Handler failed",
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, res := range results {
			m, err := newMessage(res, correlationID)
			if err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("%s: %w", handlerName, err)
			}
			out = append(out, m)
		}
		return out, nil
	}
}

func newMessage(res Result, correlationID string) (*message.Message, error) {
	if res.Topic == "" {
		return nil, eventbus.ErrNoTopic
	}
	body, err := json.Marshal(res.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for %s: %w", res.Topic, err)
	}

	m := message.NewMessage(watermill.NewUUID(), body)
	for k, v := range res.Metadata {
		m.Metadata.Set(k, v)
	}
	m.Metadata.Set(eventbus.TopicMetadataKey, res.Topic)
	middleware.SetCorrelationID(correlationID, m)
	return m, nil
}
