package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors exported at /metrics.
type Metrics struct {
	TokenRefreshes     *prometheus.CounterVec
	ActivationRequests *prometheus.CounterVec
	WebhookIngests     *prometheus.CounterVec
	Subscribers        prometheus.Gauge
}

// New registers the collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokenRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poslink_token_refreshes_total",
			Help: "Upstream token refresh calls by result.",
		}, []string{"result"}),
		ActivationRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poslink_activation_requests_total",
			Help: "Store activation requests issued upstream by result.",
		}, []string{"result"}),
		WebhookIngests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "poslink_webhook_events_total",
			Help: "Inbound webhook deliveries by result.",
		}, []string{"result"}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "poslink_event_subscribers",
			Help: "Currently connected real-time observers.",
		}),
	}
}

// NewNop returns metrics backed by a throwaway registry, for tests and
// callers that do not export.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
