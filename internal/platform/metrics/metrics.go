package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "livepoll_submission_requests_total",
		Help: "Total poll submission requests received, by outcome",
	}, []string{"status"})

	resultsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livepoll_results_published_total",
		Help: "Result snapshots delivered to broadcasters",
	})

	publishDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "livepoll_publish_dropped_total",
		Help: "Pending result publishes dropped because the queue was full",
	})

	publishDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "livepoll_publish_duration_seconds",
		Help:    "Time to deliver one result snapshot to all broadcasters",
		Buckets: prometheus.DefBuckets,
	})

	liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livepoll_live_subscribers",
		Help: "Currently connected live-feed subscribers",
	})
)

func ObserveSubmission(status string) {
	submissionRequestsTotal.WithLabelValues(status).Inc()
}

func IncResultsPublished() {
	resultsPublishedTotal.Inc()
}

func IncPublishDropped() {
	publishDroppedTotal.Inc()
}

func ObservePublishDuration(seconds float64) {
	publishDuration.Observe(seconds)
}

func IncLiveSubscribers() {
	liveSubscribers.Inc()
}

func DecLiveSubscribers() {
	liveSubscribers.Dec()
}
