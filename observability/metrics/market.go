package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"otcmarket/core/events"
	"otcmarket/native/market"
)

// MarketMetrics aggregates the settlement counters exported by the market
// module.
type MarketMetrics struct {
	salesCreated    prometheus.Counter
	salesConcluded  prometheus.Counter
	salesAborted    prometheus.Counter
	operationErrors *prometheus.CounterVec
	openSales       prometheus.Gauge
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process-wide market metrics collector, registering it on
// first use.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			salesCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_sales_created_total",
				Help: "Count of sales registered and escrowed.",
			}),
			salesConcluded: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_sales_concluded_total",
				Help: "Count of sales settled by the designated buyer.",
			}),
			salesAborted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "market_sales_aborted_total",
				Help: "Count of sales aborted by the seller.",
			}),
			operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "market_operation_errors_total",
				Help: "Count of failed market operations by kind.",
			}, []string{"operation"}),
			openSales: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "market_open_sales",
				Help: "Number of sales currently held in escrow.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.salesCreated,
			marketRegistry.salesConcluded,
			marketRegistry.salesAborted,
			marketRegistry.operationErrors,
			marketRegistry.openSales,
		)
	})
	return marketRegistry
}

// ObserveOperationError records a failed top-level operation.
func (m *MarketMetrics) ObserveOperationError(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.operationErrors.WithLabelValues(operation).Inc()
}

// Observer adapts the metrics collector to the event stream: wire it as an
// emitter next to the journal and settlement outcomes are counted without
// coupling the engine to prometheus.
type Observer struct {
	metrics *MarketMetrics
}

// NewObserver returns an emitter that feeds the market metrics.
func NewObserver(m *MarketMetrics) *Observer {
	return &Observer{metrics: m}
}

// Emit implements events.Emitter.
func (o *Observer) Emit(evt events.Event) {
	if o == nil || o.metrics == nil || evt == nil {
		return
	}
	switch evt.EventType() {
	case market.EventTypeSaleCreated:
		o.metrics.salesCreated.Inc()
		o.metrics.openSales.Inc()
	case market.EventTypeSaleConcluded:
		o.metrics.salesConcluded.Inc()
		o.metrics.openSales.Dec()
	case market.EventTypeSaleAborted:
		o.metrics.salesAborted.Inc()
		o.metrics.openSales.Dec()
	}
}
