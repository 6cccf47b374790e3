package tracing

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/honeycombio/otel-config-go/otelconfig"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var GlobalTracer = otel.Tracer("inkwell-cms")

// HoneycombSetup configures the OpenTelemetry SDK via the honeycomb otel
// distro. When disabled, spans still get created but never exported.
func HoneycombSetup(
	enabled bool,
	serviceName string,
	redisClient *redis.Client,
) (shutdown func(), err error) {
	if !enabled {
		return func() {}, nil
	}

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(serviceName),
	)
	if err != nil {
		return nil, fmt.Errorf("configure opentelemetry: %w", err)
	}

	if redisClient != nil {
		redisClient.AddHook(redisotel.NewTracingHook())
	}

	log.Debugln("otel tracing set up")
	return otelShutdown, nil
}

// EndSpanWithErrCheck sets the span status from err before ending it
func EndSpanWithErrCheck(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
	span.End()
}

// SpanFromContext is a convenience wrapper for handlers that only need
// the current span for status updates
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
