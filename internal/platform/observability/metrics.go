package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_messages_ingested_total",
		Help: "The total number of ingested donor messages",
	}, []string{"source"})

	PipelineProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_pipeline_processed_total",
		Help: "The total number of messages processed by the pipeline, by terminal status",
	}, []string{"status"})

	PipelineBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repost_pipeline_backlog_size",
		Help: "Number of unprocessed raw messages in the database",
	})

	PipelineBatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repost_pipeline_batch_duration_seconds",
		Help:    "Duration in seconds to process a pipeline batch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	DuplicatesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_duplicates_detected_total",
		Help: "Total number of detected duplicates by reason",
	}, []string{"reason"})

	RecordsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_records_published_total",
		Help: "Total number of published records by trigger (auto or operator)",
	}, []string{"trigger"})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repost_publish_failures_total",
		Help: "Total number of failed outbound publications",
	})

	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_moderation_actions_total",
		Help: "Total number of moderation actions by kind and outcome",
	}, []string{"action", "outcome"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repost_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "task"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"task", "status"})

	LLMCircuitBreakerOpens = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repost_llm_circuit_breaker_opens_total",
		Help: "Total number of times the LLM circuit breaker opened",
	})

	ReaderFloodWaitSecondsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_reader_flood_wait_seconds_total",
		Help: "Total time in seconds spent waiting for Telegram flood control",
	}, []string{"source"})

	ReaderFetchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repost_reader_fetch_requests_total",
		Help: "Total number of history fetch requests to Telegram",
	}, []string{"source", "status"})
)
