package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MaraisMark/NotetakingMark/internal/config"
)

func TestSetup_Disabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestNewResource(t *testing.T) {
	res := newResource(config.TelemetryConfig{ServiceName: "todolist", Environment: "test"})

	got := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		got[kv.Key] = kv.Value.AsString()
	}
	assert.Equal(t, "todolist", got["service.name"])
	assert.Equal(t, "test", got["deployment.environment"])
}

func TestTracerProvider(t *testing.T) {
	// Exporter construction does not dial; spans are only sent on flush.
	tp, err := TracerProvider(context.Background(), config.TelemetryConfig{ServiceName: "todolist"})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	span.End()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = tp.Shutdown(ctx)
}
