package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitclub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_bookings_total",
			Help: "Total number of admitted bookings",
		},
		[]string{"booking_type", "tier"},
	)

	AdmissionRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_admission_rejections_total",
			Help: "Booking requests rejected by admission control",
		},
		[]string{"reason"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitclub_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	BookingCompletionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitclub_booking_completions_total",
			Help: "Total number of bookings marked as completed",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitclub_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	SubscriptionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_subscriptions_created_total",
			Help: "Total number of subscriptions created",
		},
		[]string{"tier"},
	)

	ReviewsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitclub_reviews_created_total",
			Help: "Total number of gym reviews",
		},
	)

	OutboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_outbox_events_total",
			Help: "Outbox events handled by the dispatcher",
		},
		[]string{"event_type", "result"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_cache_requests_total",
			Help: "Read-through cache lookups",
		},
		[]string{"cache", "result"},
	)

	SupportMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclub_support_messages_total",
			Help: "Support chat messages posted",
		},
		[]string{"author_role"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(bookingType, tier string) {
	BookingsTotal.WithLabelValues(bookingType, tier).Inc()
}

func RecordAdmissionRejection(reason string) {
	AdmissionRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordBookingCompletion() {
	BookingCompletionsTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordSubscription(tier string) {
	SubscriptionsCreatedTotal.WithLabelValues(tier).Inc()
}

func RecordReview() {
	ReviewsCreatedTotal.Inc()
}

func RecordOutboxEvent(eventType, result string) {
	OutboxEventsTotal.WithLabelValues(eventType, result).Inc()
}

func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

func RecordSupportMessage(authorRole string) {
	SupportMessagesTotal.WithLabelValues(authorRole).Inc()
}
