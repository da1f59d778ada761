// Package metrics counts ledger operations by outcome and exposes them in the
// Prometheus text format.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder is the subset of Metrics the currency service depends on.
type Recorder interface {
	Observe(op, outcome string)
}

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "currency",
		Name:      "operations_total",
		Help:      "Ledger operations by name and outcome.",
	}, []string{"op", "outcome"})
	reg.MustRegister(ops, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{registry: reg, operations: ops}
}

func (m *Metrics) Observe(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// Handler serves the registry on a fiber route.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
