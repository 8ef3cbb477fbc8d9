package tracing

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type tracingRoundTripper struct {
	base   http.RoundTripper
	tracer trace.Tracer
}

// WrapHTTPClient instruments outbound requests with client spans and
// trace-context propagation.
func WrapHTTPClient(client *http.Client) *http.Client {
	if client == nil {
		client = &http.Client{}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *client
	wrapped.Transport = &tracingRoundTripper{
		base:   base,
		tracer: otel.Tracer("rolegate/httpclient"),
	}
	return &wrapped
}

func (rt *tracingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := rt.tracer.Start(req.Context(),
		"HTTP "+strings.ToUpper(req.Method),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	req = req.Clone(ctx)
	InjectContext(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := rt.base.RoundTrip(req)

	attrs := []attribute.KeyValue{
		attribute.String("http.method", req.Method),
		attribute.String("http.host", req.URL.Host),
		attribute.Int64("http.client_duration_ms", time.Since(start).Milliseconds()),
	}
	if resp != nil {
		attrs = append(attrs, attribute.Int("http.status_code", resp.StatusCode))
	}
	span.SetAttributes(SafeAttributes(attrs...)...)

	if err != nil {
		if safeErr := SafeError(err); safeErr != nil {
			span.RecordError(safeErr)
		}
		span.SetStatus(codes.Error, "request error")
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "server error")
	}
	return resp, nil
}
