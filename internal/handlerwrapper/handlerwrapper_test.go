package handlerwrapper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/spylab/llm-ctf/internal/eventbus"
	"github.com/spylab/llm-ctf/internal/observability/attr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type pingPayload struct {
	Name string `json:"name"`
}

type pongPayload struct {
	Greeting string `json:"greeting"`
}

func wrap(handler func(context.Context, *pingPayload) ([]Result, error)) message.HandlerFunc {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return WrapTransformingTyped("test.ping", logger, noop.NewTracerProvider().Tracer("test"), handler)
}

func newPing(t *testing.T, name string) *message.Message {
	t.Helper()
	body, err := json.Marshal(pingPayload{Name: name})
	require.NoError(t, err)
	msg := message.NewMessage(watermill.NewUUID(), body)
	middleware.SetCorrelationID("corr-1", msg)
	return msg
}

func TestWrapTransformingTyped(t *testing.T) {
	var seenCorrelation string
	h := wrap(func(ctx context.Context, p *pingPayload) ([]Result, error) {
		seenCorrelation = attr.CorrelationIDFromContext(ctx)
		return []Result{{
			Topic:    "test.pong",
			Payload:  pongPayload{Greeting: "hello " + p.Name},
			Metadata: map[string]string{"team_id": "red"},
		}}, nil
	})

	out, err := h(newPing(t, "red"))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "corr-1", seenCorrelation)
	assert.Equal(t, "test.pong", out[0].Metadata.Get(eventbus.TopicMetadataKey))
	assert.Equal(t, "corr-1", middleware.MessageCorrelationID(out[0]))
	assert.Equal(t, "red", out[0].Metadata.Get("team_id"))
	assert.JSONEq(t, `{"greeting":"hello red"}`, string(out[0].Payload))
}

func TestWrapTransformingTypedDropsUndecodablePayload(t *testing.T) {
	called := false
	h := wrap(func(context.Context, *pingPayload) ([]Result, error) {
		called = true
		return nil, nil
	})

	out, err := h(message.NewMessage(watermill.NewUUID(), []byte("{not json")))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.False(t, called)
}

func TestWrapTransformingTypedReturnsHandlerError(t *testing.T) {
	boom := errors.New("boom")
	h := wrap(func(context.Context, *pingPayload) ([]Result, error) {
		return nil, boom
	})

	_, err := h(newPing(t, "red"))
	assert.ErrorIs(t, err, boom)
}

func TestWrapTransformingTypedRequiresTopic(t *testing.T) {
	h := wrap(func(context.Context, *pingPayload) ([]Result, error) {
		return []Result{{Payload: pongPayload{}}}, nil
	})

	_, err := h(newPing(t, "red"))
	assert.ErrorIs(t, err, eventbus.ErrNoTopic)
}
