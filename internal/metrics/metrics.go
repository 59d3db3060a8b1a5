package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicegate_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "voicegate_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "voicegate_stage_duration_seconds",
			Help: "Duration of pipeline stages (translate, classify, respond, synthesize, play)",
		},
		[]string{"stage"},
	)

	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicegate_classifications_total",
			Help: "Supervisor decisions by label",
		},
		[]string{"label"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicegate_sessions_created_total",
			Help: "Sessions first seen by this process",
		},
	)

	WhisperDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicegate_voice_requests_total",
			Help: "Voice requests by detected speaking mode",
		},
		[]string{"mode"},
	)
)
