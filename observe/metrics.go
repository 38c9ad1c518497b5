package observe

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/handling"
)

const namespace = "handling"

// Metrics records dispatch outcomes as Prometheus collectors.
type Metrics struct {
	received  *prometheus.CounterVec
	handled   *prometheus.CounterVec
	unhandled *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is useful when the caller collects them
// itself.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages received by a router.",
		}, []string{"category"}),
		handled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Messages dispatched to a handler, by error class.",
		}, []string{"category", "payload_type", "error_class"}),
		unhandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_unhandled_total",
			Help:      "Messages no handler could accept.",
		}, []string{"category", "payload_type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent inside handlers.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"category", "payload_type"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.received, m.handled, m.unhandled, m.duration}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// Options returns the router hooks feeding the collectors.
func (m *Metrics) Options() []handling.Option {
	return []handling.Option{
		handling.WithOnReceive(func(ctx context.Context, msg handling.Message) context.Context {
			m.received.WithLabelValues(msg.Category().String()).Inc()
			return ctx
		}),
		handling.WithOnSuccess(func(_ context.Context, msg handling.Message, _ *handling.Member, d time.Duration) {
			m.observe(msg, handling.ClassNone, d)
		}),
		handling.WithOnFailure(func(_ context.Context, msg handling.Message, _ *handling.Member, err error, d time.Duration) {
			m.observe(msg, handling.Classify(err), d)
		}),
		handling.WithOnComplete(func(_ context.Context, msg handling.Message, member *handling.Member, err error) {
			switch {
			case member == nil:
				m.unhandled.WithLabelValues(msg.Category().String(), payloadLabel(msg)).Inc()
			case errors.Is(err, handling.ErrHandlerPanicked):
				m.handled.WithLabelValues(msg.Category().String(), payloadLabel(msg), handling.ClassFatal.String()).Inc()
			}
		}),
	}
}

func (m *Metrics) observe(msg handling.Message, class handling.ErrorClass, d time.Duration) {
	category, payload := msg.Category().String(), payloadLabel(msg)
	m.handled.WithLabelValues(category, payload, class.String()).Inc()
	m.duration.WithLabelValues(category, payload).Observe(d.Seconds())
}

func payloadLabel(msg handling.Message) string {
	if t := msg.PayloadType(); t != nil {
		return t.String()
	}
	return "<nil>"
}
