package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlord_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starlord_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starlord_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	// Slash command metrics
	StarRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlord_star_requests_total",
			Help: "Total number of star slash commands received, by handling status",
		},
		[]string{"status"},
	)

	StarOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlord_star_outcomes_total",
			Help: "Total number of star requests processed by the worker, by outcome",
		},
		[]string{"outcome"},
	)

	// Queue metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starlord_queue_depth",
			Help: "Number of star requests waiting for the worker",
		},
	)

	QueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "starlord_queue_wait_seconds",
			Help:    "Time star requests spend queued before the worker picks them up",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starlord_worker_running",
			Help: "1 while the star worker is consuming the queue",
		},
	)

	// Slack API metrics
	SlackAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlord_slack_api_calls_total",
			Help: "Total number of Slack Web API calls",
		},
		[]string{"method", "status"},
	)

	SlackAPICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "starlord_slack_api_call_duration_seconds",
			Help:    "Duration of Slack Web API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Reply metrics
	Replies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starlord_replies_total",
			Help: "Total number of replies posted to slash command response URLs",
		},
		[]string{"status"},
	)

	ReplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "starlord_reply_duration_seconds",
			Help:    "Duration of reply POSTs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
