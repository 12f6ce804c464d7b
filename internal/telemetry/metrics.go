// Package telemetry provides Prometheus metrics for the chat connection.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	LinesRead    prometheus.Counter
	Events       *prometheus.CounterVec
	CommandsSent prometheus.Counter
	SendErrors   prometheus.Counter
	PongsSent    prometheus.Counter

	// Gauges
	QueueDepth      prometheus.Gauge
	AwaitingAck     prometheus.Gauge // seconds since connect without a 001
	ConnectionState prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesRead = promauto.NewCounter(prometheus.CounterOpts{Name: "tmichat_lines_read_total", Help: "Number of protocol lines read from the server"})
		Events = promauto.NewCounterVec(prometheus.CounterOpts{Name: "tmichat_events_total", Help: "Number of events published, by kind"}, []string{"kind"})
		CommandsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "tmichat_commands_sent_total", Help: "Number of outbound commands written"})
		SendErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "tmichat_send_errors_total", Help: "Number of outbound commands that failed to write"})
		PongsSent = promauto.NewCounter(prometheus.CounterOpts{Name: "tmichat_pongs_sent_total", Help: "Number of keepalive replies written"})
		QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{Name: "tmichat_outbound_queue_depth", Help: "Commands waiting for the sender loop"})
		AwaitingAck = promauto.NewGauge(prometheus.GaugeOpts{Name: "tmichat_awaiting_ack_seconds", Help: "Seconds since connect without a connect ack, 0 once acknowledged"})
		ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{Name: "tmichat_connection_state", Help: "0=disconnected 1=connecting 2=authenticating 3=connected 4=closed"})
	})
}

// ObserveEvent counts a published event of the given kind.
func ObserveEvent(kind string) {
	if Events != nil {
		Events.WithLabelValues(kind).Inc()
	}
}

// SetQueueDepth records the outbound queue length.
func SetQueueDepth(n int) {
	if QueueDepth != nil {
		QueueDepth.Set(float64(n))
	}
}

// SetAwaitingAck records how long the connection has waited for its ack.
func SetAwaitingAck(seconds float64) {
	if AwaitingAck != nil {
		AwaitingAck.Set(seconds)
	}
}

// SetConnectionState records the connector state ordinal.
func SetConnectionState(state int) {
	if ConnectionState != nil {
		ConnectionState.Set(float64(state))
	}
}

// Inc increments c if it has been registered.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
