// Copyright (c) 2025 Nguyễn Thanh Phương
// This source code is licensed under the MIT License found in the LICENSE file.

// Package speclog provides a spec-driven logging front-end for Go applications.
// This file provides integration functions with OpenTelemetry (OTel) to extract
// trace IDs and span IDs from the `context.Context` and attach them to records.
// This integration is crucial for correlating logs with tracing data.

package speclog

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// extractOTelTraceID attempts to extract the trace ID from the OpenTelemetry span
// context within the provided `context.Context`.
// It returns the trace ID as a string if found and valid, otherwise returns an empty string.
func extractOTelTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// extractOTelSpanID attempts to extract the span ID from the OpenTelemetry span
// context within the provided `context.Context`.
// It returns the span ID as a string if found and valid, otherwise returns an empty string.
func extractOTelSpanID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasSpanID() {
		return sc.SpanID().String()
	}
	return ""
}

// attachOTelTrace copies the IDs of the span in r.Ctx onto the record.
func attachOTelTrace(r *Record) {
	r.TraceID = extractOTelTraceID(r.Ctx)
	if r.TraceID != "" {
		r.SpanID = extractOTelSpanID(r.Ctx)
	}
}
