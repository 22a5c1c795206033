package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personas_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Turn metrics
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_turns_total",
			Help: "Total orchestrated turns",
		},
		[]string{"outcome"}, // "completed", "invalid", "unconfigured"
	)

	AgentsSelected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personas_agents_selected",
			Help:    "Agents selected to respond per turn",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 13},
		},
	)

	AgentCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_agent_calls_total",
			Help: "Total agent generation calls",
		},
		[]string{"outcome"}, // "success" or "failure"
	)

	AgentCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personas_agent_call_duration_seconds",
			Help:    "Generation latency of a single agent call",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		},
	)

	// Business metrics
	CustomAgentsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "personas_custom_agents_created_total",
			Help: "Total custom agents created",
		},
	)

	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_messages_stored_total",
			Help: "Total messages persisted",
		},
		[]string{"sender_type"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RosterCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personas_roster_cache_lookups_total",
			Help: "Roster cache lookups",
		},
		[]string{"result"}, // "hit", "miss" or "error"
	)
)
