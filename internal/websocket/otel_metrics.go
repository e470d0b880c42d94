package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "datamod.websocket"

// OTelMetrics provides OpenTelemetry metrics for the event feed
type OTelMetrics struct {
	// Connection metrics
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	upgradeErrors      metric.Int64Counter

	// Message metrics
	messagesTotal metric.Int64Counter
	messageBytes  metric.Int64Counter

	// Hub metrics
	broadcastOperations metric.Int64Counter
	droppedMessages     metric.Int64Counter
	clientCount         metric.Int64Gauge
}

// NewOTelMetrics creates the websocket instruments on meter. A nil meter uses
// the global provider.
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	m := &OTelMetrics{}
	var err error

	if m.connectionsTotal, err = meter.Int64Counter(
		"websocket_connections_total",
		metric.WithDescription("Total number of WebSocket connections"),
	); err != nil {
		return nil, err
	}

	if m.connectionsActive, err = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of active WebSocket connections"),
	); err != nil {
		return nil, err
	}

	if m.connectionDuration, err = meter.Float64Histogram(
		"websocket_connection_duration_seconds",
		metric.WithDescription("Duration of WebSocket connections"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.upgradeErrors, err = meter.Int64Counter(
		"websocket_upgrade_errors_total",
		metric.WithDescription("Total number of failed WebSocket upgrades"),
	); err != nil {
		return nil, err
	}

	if m.messagesTotal, err = meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages"),
	); err != nil {
		return nil, err
	}

	if m.messageBytes, err = meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of WebSocket messages"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.broadcastOperations, err = meter.Int64Counter(
		"websocket_broadcasts_total",
		metric.WithDescription("Total number of broadcast operations"),
	); err != nil {
		return nil, err
	}

	if m.droppedMessages, err = meter.Int64Counter(
		"websocket_dropped_messages_total",
		metric.WithDescription("Events dropped because the broadcast queue was full"),
	); err != nil {
		return nil, err
	}

	if m.clientCount, err = meter.Int64Gauge(
		"websocket_clients",
		metric.WithDescription("Current number of connected clients"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordConnection records a new WebSocket connection
func (m *OTelMetrics) RecordConnection(ctx context.Context, remoteAddr string) {
	m.connectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("remote_addr", remoteAddr)))
	m.connectionsActive.Add(ctx, 1)
}

// RecordDisconnection records a WebSocket disconnection
func (m *OTelMetrics) RecordDisconnection(ctx context.Context, duration time.Duration, reason string) {
	attrs := metric.WithAttributes(attribute.String("disconnect_reason", reason))
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUpgradeError records a rejected or failed upgrade
func (m *OTelMetrics) RecordUpgradeError(ctx context.Context, reason string) {
	m.upgradeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordMessageSent records an outbound message
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, size int64) {
	attrs := metric.WithAttributes(attribute.String("direction", "outbound"))
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordMessageReceived records an inbound message
func (m *OTelMetrics) RecordMessageReceived(ctx context.Context, size int64) {
	attrs := metric.WithAttributes(attribute.String("direction", "inbound"))
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, size, attrs)
}

// RecordBroadcast records one fan-out
func (m *OTelMetrics) RecordBroadcast(ctx context.Context, delivered, failed int64) {
	m.broadcastOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.Int64("delivered", delivered),
		attribute.Int64("failed", failed),
	))
}

// RecordDroppedMessage records an event that never reached the hub loop
func (m *OTelMetrics) RecordDroppedMessage(ctx context.Context, messageType string) {
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", messageType)))
}

// RecordClientCount records the current number of connected clients
func (m *OTelMetrics) RecordClientCount(ctx context.Context, count int64) {
	m.clientCount.Record(ctx, count)
}
