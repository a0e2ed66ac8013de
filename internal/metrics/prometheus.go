package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector with Prometheus vectors.
type PrometheusCollector struct {
	transfers        *prometheus.CounterVec
	transferDuration *prometheus.HistogramVec
	syncs            *prometheus.CounterVec
	reconciled       *prometheus.CounterVec
	circuitState     *prometheus.GaugeVec
}

var circuitStates = []string{"closed", "half-open", "open"}

func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of transfer executions by outcome",
			},
			[]string{"outcome"},
		),
		transferDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer execution latency",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
			},
			[]string{"outcome"},
		),
		syncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "balance_syncs_total",
				Help:      "Total number of balance synchronizations by status",
			},
			[]string{"status"},
		),
		reconciled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconciled_transfers_total",
				Help:      "Total number of orphaned transfers handled by the reconciler, by action",
			},
			[]string{"action"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_circuit_state",
				Help:      "1 for the current ledger store circuit breaker state, 0 otherwise",
			},
			[]string{"state"},
		),
	}
}

// Register registers all collectors with the given registerer.
func (pc *PrometheusCollector) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		pc.transfers,
		pc.transferDuration,
		pc.syncs,
		pc.reconciled,
		pc.circuitState,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	pc.RecordStoreCircuitState("closed")
	return nil
}

func (pc *PrometheusCollector) RecordTransfer(outcome string, duration time.Duration) {
	pc.transfers.WithLabelValues(outcome).Inc()
	pc.transferDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) RecordSync(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	pc.syncs.WithLabelValues(status).Inc()
}

func (pc *PrometheusCollector) RecordReconcile(action string) {
	pc.reconciled.WithLabelValues(action).Inc()
}

func (pc *PrometheusCollector) RecordStoreCircuitState(state string) {
	for _, s := range circuitStates {
		v := 0.0
		if s == state {
			v = 1
		}
		pc.circuitState.WithLabelValues(s).Set(v)
	}
}
