package skiplist

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skiplist_operations_total",
		Help: "Total number of skip list operations by operation and result.",
	}, []string{
		"op",     // insert | delete | clear
		"result", // ok | duplicate | absent
	})
	nodeHeightMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "skiplist_node_height",
		Help:    "Heights drawn for newly inserted skip list nodes.",
		Buckets: prometheus.LinearBuckets(1 /*start*/, 1 /*width*/, heightLimit),
	})

	// Resolved once; the label lookups would otherwise run on every operation.
	insertedCounter  = operationsMetric.WithLabelValues("insert", "ok")
	duplicateCounter = operationsMetric.WithLabelValues("insert", "duplicate")
	deletedCounter   = operationsMetric.WithLabelValues("delete", "ok")
	absentCounter    = operationsMetric.WithLabelValues("delete", "absent")
	clearedCounter   = operationsMetric.WithLabelValues("clear", "ok")
)
