package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsInitialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_events_initialized_total",
			Help: "Total number of events initialized",
		},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_bookings_total",
			Help: "Total booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	CancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_cancellations_total",
			Help: "Total cancelled bookings",
		},
	)

	PromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_promotions_total",
			Help: "Total waiting-list promotions",
		},
	)

	WaitingListDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_waiting_list_depth",
			Help: "Current waiting-list length per event",
		},
		[]string{"event_id"},
	)

	LedgerWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickets_ledger_write_seconds",
			Help:    "Duration of order ledger writes",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_rate_limit_exceeded_total",
			Help: "Total requests rejected by the rate limiter",
		},
	)
)
