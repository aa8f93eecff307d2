package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AllocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "allocations_total",
		Help: "Total number of allocation requests processed",
	})

	AllocationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "allocations_failed_total",
		Help: "Total number of failed allocation requests",
	}, []string{"reason"})

	AllocationPartialTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "allocation_partial_failures_total",
		Help: "Total number of allocations that fell short of the requested quantity",
	})

	LotDebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lot_debits_total",
		Help: "Total number of individual lot debits",
	})

	LotsExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lots_exhausted_total",
		Help: "Total number of lots driven to zero remaining quantity",
	})

	FallbackDebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fallback_debits_total",
		Help: "Total number of master-balance fallback debits",
	})

	FallbackQuantityTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fallback_quantity_total",
		Help: "Total quantity debited through the master-balance fallback",
	})

	AllocationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "allocation_latency_seconds",
		Help:    "Latency of allocation operations",
		Buckets: prometheus.DefBuckets,
	})

	LotsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lots_received_total",
		Help: "Total number of lots created through receiving",
	})

	JournalRebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journal_rebuilds_total",
		Help: "Total number of work order journal rebuilds",
	})

	AuditWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Total number of dropped audit writes",
	})

	WorkOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "work_orders_created_total",
		Help: "Total number of work orders created",
	})

	AllocationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "allocation_queue_depth",
		Help: "Number of allocation jobs waiting in the worker queue",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
