package infrastructure

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "datamod/internal/errors"
)

// BusinessMetrics holds the instruments recorded by the HTTP layer and the
// session service
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	OperationsTotal   metric.Int64Counter
	OperationDuration metric.Float64Histogram
	OperationFailures metric.Int64Counter
	CellsModified     metric.Int64Counter
	HistoryDepth      metric.Int64Gauge

	FilesLoaded  metric.Int64Counter
	RowsLoaded   metric.Int64Counter
	FilesSaved   metric.Int64Counter
	ChartsExport metric.Int64Counter
}

// CreateBusinessMetrics registers every instrument on meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	m := &BusinessMetrics{}

	counters := []struct {
		dst        *metric.Int64Counter
		name, desc string
	}{
		{&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests"},
		{&m.OperationsTotal, "datamod_operations_total", "Session operations by kind and status"},
		{&m.OperationFailures, "datamod_operation_failures_total", "Failed session operations by error category"},
		{&m.CellsModified, "datamod_cells_modified_total", "Cells rewritten by committed operations"},
		{&m.FilesLoaded, "datamod_files_loaded_total", "Data files loaded by format"},
		{&m.RowsLoaded, "datamod_rows_loaded_total", "Data rows read from loaded files"},
		{&m.FilesSaved, "datamod_files_saved_total", "Modified datasets saved by format"},
		{&m.ChartsExport, "datamod_charts_exported_total", "Charts exported by format"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	durations := []struct {
		dst        *metric.Float64Histogram
		name, desc string
	}{
		{&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds"},
		{&m.OperationDuration, "datamod_operation_duration_seconds", "Session operation duration in seconds"},
	}
	for _, d := range durations {
		hist, err := meter.Float64Histogram(d.name, metric.WithDescription(d.desc), metric.WithUnit("s"))
		if err != nil {
			return nil, err
		}
		*d.dst = hist
	}

	var err error
	m.HistoryDepth, err = meter.Int64Gauge("datamod_history_depth",
		metric.WithDescription("Undo snapshots currently held"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ErrorCategory returns the AppError category of err, "INTERNAL" for other
// errors and "" for nil
func ErrorCategory(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return string(appErr.Type)
	}
	return "INTERNAL"
}

// RecordOperationMetrics counts one session operation and notes it on the
// current span. A nil metrics only touches the span.
func RecordOperationMetrics(ctx context.Context, metrics *BusinessMetrics, kind string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	if metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("operation.kind", kind),
			attribute.String("status", status),
		)
		metrics.OperationsTotal.Add(ctx, 1, attrs)
		metrics.OperationDuration.Record(ctx, duration.Seconds(), attrs)
		if err != nil {
			metrics.OperationFailures.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation.kind", kind),
				attribute.String("error.category", ErrorCategory(err)),
			))
		}
	}

	AddSpanEvent(ctx, "operation.finished",
		attribute.String("operation.kind", kind),
		attribute.String("status", status),
		attribute.Float64("duration_seconds", duration.Seconds()),
	)
}
