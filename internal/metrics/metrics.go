package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Observer captures telemetry for ledger operations.
type Observer interface {
	// RecordOperation tracks one ledger operation. outcome is one of the
	// Outcome constants.
	RecordOperation(op string, duration time.Duration, outcome string)
	RecordTicketsSold(n int)
}

// PrometheusObserver exports ledger metrics to Prometheus.
type PrometheusObserver struct {
	duration    *prometheus.HistogramVec
	operations  *prometheus.CounterVec
	ticketsSold prometheus.Counter
}

// NewPrometheusObserver registers the ledger metrics with reg, reusing
// collectors that are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "tixledger"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of ledger operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ledger operations by outcome.",
		}, []string{"operation", "outcome"}),
		ticketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_sold_total",
			Help:      "Tickets issued since start.",
		}),
	}

	var err error
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	if o.operations, err = register(reg, o.operations); err != nil {
		return nil, err
	}
	if o.ticketsSold, err = register(reg, o.ticketsSold); err != nil {
		return nil, err
	}

	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register ledger metric: %w", err)
	}
	return c, nil
}

func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, outcome string) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(op).Observe(duration.Seconds())
	o.operations.WithLabelValues(op, outcome).Inc()
}

func (o *PrometheusObserver) RecordTicketsSold(n int) {
	if o == nil {
		return
	}
	o.ticketsSold.Add(float64(n))
}

type nopObserver struct{}

// Nop returns an Observer that discards everything.
func Nop() Observer { return nopObserver{} }

func (nopObserver) RecordOperation(string, time.Duration, string) {}

func (nopObserver) RecordTicketsSold(int) {}
