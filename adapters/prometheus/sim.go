package prometheus

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abhi170599/ds-deadlock-detection/core/metrics"
	"github.com/abhi170599/ds-deadlock-detection/core/node"
)

// simMetrics implements node.SimMetrics using Prometheus.
type simMetrics struct {
	probesSent         *prometheus.CounterVec
	probesDelivered    prometheus.Counter
	probesDropped      prometheus.Counter
	detectionsStarted  prometheus.Counter
	detectionsSkipped  prometheus.Counter
	deadlocksConfirmed *prometheus.CounterVec
	resourcesAcquired  prometheus.Counter
	resourcesReleased  prometheus.Counter
	requestsPending    *prometheus.GaugeVec
	passDuration       prometheus.Histogram
}

// NewSimMetrics creates a new Prometheus implementation of node.SimMetrics.
func NewSimMetrics(reg prometheus.Registerer) node.SimMetrics {
	m := &simMetrics{
		probesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlsim_probes_sent_total",
			Help: "Total number of probe messages sent",
		}, []string{"initiator"}),

		probesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlsim_probes_delivered_total",
			Help: "Total number of probe messages read from mailboxes",
		}),

		probesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlsim_probes_dropped_total",
			Help: "Total number of probe messages dropped due to full mailboxes",
		}),

		detectionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlsim_detection_rounds_started_total",
			Help: "Total number of detection rounds started",
		}),

		detectionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlsim_detection_rounds_skipped_total",
			Help: "Total number of initiation attempts skipped because a round was in flight",
		}),

		deadlocksConfirmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dlsim_deadlocks_confirmed_total",
			Help: "Total number of deadlocks confirmed",
		}, []string{"process"}),

		resourcesAcquired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlsim_resources_acquired_total",
			Help: "Total number of successful resource acquisitions",
		}),

		resourcesReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlsim_resources_released_total",
			Help: "Total number of resource releases",
		}),

		requestsPending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dlsim_requests_open",
			Help: "Current number of open resource requests per process",
		}, []string{"process"}),

		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dlsim_pass_duration_seconds",
			Help:    "Run-loop pass duration in seconds",
			Buckets: defaultBuckets,
		}),
	}

	reg.MustRegister(
		m.probesSent,
		m.probesDelivered,
		m.probesDropped,
		m.detectionsStarted,
		m.detectionsSkipped,
		m.deadlocksConfirmed,
		m.resourcesAcquired,
		m.resourcesReleased,
		m.requestsPending,
		m.passDuration,
	)

	return m
}

func (m *simMetrics) ProbeSent(initiator int) {
	m.probesSent.WithLabelValues(strconv.Itoa(initiator)).Inc()
}

func (m *simMetrics) ProbeDelivered() { m.probesDelivered.Inc() }
func (m *simMetrics) ProbeDropped()   { m.probesDropped.Inc() }

func (m *simMetrics) DetectionStarted() { m.detectionsStarted.Inc() }
func (m *simMetrics) DetectionSkipped() { m.detectionsSkipped.Inc() }

func (m *simMetrics) DeadlockConfirmed(nodeID int) {
	m.deadlocksConfirmed.WithLabelValues(strconv.Itoa(nodeID)).Inc()
}

func (m *simMetrics) ResourceAcquired() { m.resourcesAcquired.Inc() }
func (m *simMetrics) ResourceReleased() { m.resourcesReleased.Inc() }

func (m *simMetrics) RequestsPending(nodeID int, n int) {
	m.requestsPending.WithLabelValues(strconv.Itoa(nodeID)).Set(float64(n))
}

func (m *simMetrics) PassDuration() metrics.Timer {
	return newTimer(m.passDuration)
}

var _ node.SimMetrics = (*simMetrics)(nil)
