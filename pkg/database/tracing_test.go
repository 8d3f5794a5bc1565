package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func inMemoryTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	t.Cleanup(func() {
		tp.Shutdown(context.Background()) //nolint:errcheck
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func spanAttrs(span tracetest.SpanStub) map[string]string {
	attrs := make(map[string]string, len(span.Attributes))
	for _, a := range span.Attributes {
		attrs[string(a.Key)] = a.Value.Emit()
	}
	return attrs
}

func TestTraceQuery_RecordsClientSpan(t *testing.T) {
	exporter := inMemoryTracer(t)

	_, end := TraceQuery(context.Background(), "GetUserByID", "SELECT id, username FROM users WHERE id = $1")
	end(nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "db.GetUserByID", span.Name)

	attrs := spanAttrs(span)
	assert.Equal(t, "postgresql", attrs["db.system"])
	assert.Equal(t, "GetUserByID", attrs["db.operation"])
	assert.Equal(t, "SELECT id, username FROM users WHERE id = $1", attrs["db.statement"])
	assert.EqualValues(t, 0, span.Status.Code, "success leaves status unset")
}

func TestTraceQuery_ErrorSetsSpanStatus(t *testing.T) {
	exporter := inMemoryTracer(t)

	_, end := TraceQuery(context.Background(), "RotateRefreshToken", "UPDATE users SET refresh_token_hash = $1")
	end(errors.New("connection refused"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.EqualValues(t, 1, span.Status.Code)
	assert.NotEmpty(t, span.Events, "error should be recorded as a span event")
}

func TestTraceQuery_ChildOfActiveSpan(t *testing.T) {
	exporter := inMemoryTracer(t)

	ctx, parent := otel.Tracer("test").Start(context.Background(), "user.login")
	_, end := TraceQuery(ctx, "GetUserByIdentifier", "SELECT * FROM users WHERE username = $1")
	end(nil)
	parent.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	var child, root tracetest.SpanStub
	for _, s := range spans {
		if s.Name == "db.GetUserByIdentifier" {
			child = s
		} else {
			root = s
		}
	}
	assert.Equal(t, root.SpanContext.TraceID(), child.SpanContext.TraceID())
	assert.Equal(t, root.SpanContext.SpanID(), child.Parent.SpanID())
}

func TestSlowQueryLogging_LogsOverThreshold(t *testing.T) {
	inMemoryTracer(t)

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "GetChannelProfile", "SELECT ... FROM users u")
	end(nil)

	out := buf.String()
	assert.Contains(t, out, "slow query detected")
	assert.Contains(t, out, "GetChannelProfile")
}

func TestSlowQueryLogging_QuietUnderThreshold(t *testing.T) {
	inMemoryTracer(t)

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Hour, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "GetUserByID", "SELECT 1")
	end(nil)

	assert.False(t, strings.Contains(buf.String(), "slow query detected"))
}

func TestSlowQueryLogging_DisabledIsSafe(t *testing.T) {
	inMemoryTracer(t)
	SetSlowQueryLogging(0, nil)

	_, end := TraceQuery(context.Background(), "GetUserByID", "SELECT 1")
	end(errors.New("whatever"))
}

func TestSlowQueryLogging_IncludesQueryError(t *testing.T) {
	inMemoryTracer(t)

	var buf bytes.Buffer
	SetSlowQueryLogging(time.Nanosecond, slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	_, end := TraceQuery(context.Background(), "CreateUser", "INSERT INTO users ...")
	end(errors.New("duplicate key value violates unique constraint"))

	assert.Contains(t, buf.String(), "duplicate key value")
}

func TestSetSlowQueryLogging_ConcurrentAccess(t *testing.T) {
	inMemoryTracer(t)
	t.Cleanup(func() { SetSlowQueryLogging(0, nil) })

	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			SetSlowQueryLogging(time.Duration(i)*time.Millisecond, logger)
		}
	}()
	for i := 0; i < 100; i++ {
		slowQueries.get()
	}
	<-done
}
