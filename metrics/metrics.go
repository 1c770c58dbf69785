package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ProcessingMetrics struct {
	processedTransactionsCount *prometheus.CounterVec
	rejectedTransactionsCount  *prometheus.CounterVec
	malformedRecordsCount      prometheus.Counter
	accountsGauge              prometheus.Gauge
	lockedAccountsGauge        prometheus.Gauge
}

func NewProcessingMetrics(namespace string, registerer prometheus.Registerer) *ProcessingMetrics {
	factory := promauto.With(registerer)
	namespace = strings.ReplaceAll(namespace, "-", "_")
	m := ProcessingMetrics{
		processedTransactionsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_transactions_total", namespace),
			Help: "The total number of applied transactions",
		}, []string{"kind"}),
		rejectedTransactionsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_rejected_transactions_total", namespace),
			Help: "The total number of rejected transactions",
		}, []string{"kind", "reason"}),
		malformedRecordsCount: factory.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_malformed_records_total", namespace),
			Help: "The total number of input rows that could not be interpreted",
		}),
		accountsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_accounts", namespace),
			Help: "The number of accounts in the final snapshot",
		}),
		lockedAccountsGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_locked_accounts", namespace),
			Help: "The number of locked accounts in the final snapshot",
		}),
	}
	return &m
}

func (metrics *ProcessingMetrics) IncProcessedTransactions(kind string) {
	metrics.processedTransactionsCount.WithLabelValues(kind).Inc()
}

func (metrics *ProcessingMetrics) IncRejectedTransactions(kind string, reason error) {
	metrics.rejectedTransactionsCount.WithLabelValues(kind, reasonLabel(reason)).Inc()
}

func (metrics *ProcessingMetrics) IncMalformedRecords() {
	metrics.malformedRecordsCount.Inc()
}

func (metrics *ProcessingMetrics) SetAccounts(total, locked int) {
	metrics.accountsGauge.Set(float64(total))
	metrics.lockedAccountsGauge.Set(float64(locked))
}

func reasonLabel(reason error) string {
	if reason == nil {
		return "unknown"
	}
	return strings.ReplaceAll(reason.Error(), " ", "_")
}
