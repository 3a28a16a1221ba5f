package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "workline-sync/api"
	tasksSpanName    = "tasks.list"
	tasksEventName   = "tasks.request"
	tasksEventDomain = "workline.sync"
	tasksRoute       = "/api/tasks"
)

// taskRequestMetrics collects per-request timings for the tasks routes and
// emits them both as span attributes and as a structured observability event.
type taskRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	source         string
	errorStage     string
}

func newTaskRequestMetrics(ctx context.Context, logger *log.Logger) (*taskRequestMetrics, context.Context) {
	m := &taskRequestMetrics{logger: logger, start: time.Now()}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, tasksSpanName)
	m.span = span
	return m, spanCtx
}

func (m *taskRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *taskRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *taskRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetSource(source string) {
	m.source = source
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finishes the span and writes the observability event.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	total := time.Since(m.start)
	attrs := []attribute.KeyValue{
		attribute.String("http.route", tasksRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("workline.tasks.total_ms", durationToMillis(total)),
		attribute.Int("workline.tasks.tasks_returned", m.tasksReturned),
	}
	if m.source != "" {
		attrs = append(attrs, attribute.String("workline.tasks.source", m.source))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("workline.tasks.error_stage", m.errorStage))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event")
		if err != nil || status >= 500 {
			m.span.SetStatus(codes.Error, m.errorStage)
			if err != nil {
				m.span.RecordError(err)
			}
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	attrMap := map[string]any{
		"http.route":                    tasksRoute,
		"workline.tasks.total_ms":       durationToMillis(total),
		"workline.tasks.tasks_returned": m.tasksReturned,
	}
	if m.source != "" {
		attrMap["workline.tasks.source"] = m.source
	}
	if m.authDuration > 0 {
		attrMap["workline.tasks.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		attrMap["workline.tasks.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		attrMap["workline.tasks.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrMap["workline.tasks.error_stage"] = m.errorStage
	}

	severityText, severityNumber := severityForStatus(status, err)
	fields := log.Fields{
		"event.name":      tasksEventName,
		"event.domain":    tasksEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}

	entry := m.logger.WithFields(fields)
	switch {
	case err != nil || status >= 500:
		entry.Error("observability.event")
	case status >= 400:
		entry.Warn("observability.event")
	default:
		entry.Info("observability.event")
	}
}

// severityForStatus maps an HTTP status and error to OTLP severity values.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
