// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courserag"

var (
	// QueriesTotal counts answered queries.
	// Labels: outcome (direct, tool, error)
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "queries_total",
			Help:      "Total number of queries by outcome",
		},
		[]string{"outcome"},
	)

	// QueryDuration tracks end-to-end query latency.
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "assistant",
			Name:      "query_duration_seconds",
			Help:      "Duration of query handling in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
	)

	// LLMTokensTotal counts tokens reported by the LLM provider.
	// Labels: direction (input, output)
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total number of LLM tokens by direction",
		},
		[]string{"direction"},
	)

	// ToolCallsTotal counts tool executions.
	// Labels: tool, outcome (ok, invalid, not_found)
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total number of tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	// CourseResolutionsTotal counts fuzzy course-name resolutions.
	// Labels: outcome (exact, matched, rejected, empty)
	CourseResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vectorstore",
			Name:      "course_resolutions_total",
			Help:      "Total number of course name resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// SearchDuration tracks content searches against the vector store.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vectorstore",
			Name:      "search_duration_seconds",
			Help:      "Duration of content searches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// IngestedChunksTotal counts chunks written to the content index.
	IngestedChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Total number of chunks added to the content index",
		},
	)

	// IngestedCoursesTotal counts course documents processed.
	// Labels: result (added, replaced, skipped, failed)
	IngestedCoursesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "courses_total",
			Help:      "Total number of course documents processed by result",
		},
		[]string{"result"},
	)

	// ActiveSessions reports the number of sessions held by the session store.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of conversation sessions currently stored",
		},
	)
)
