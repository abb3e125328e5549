package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks the transaction and settlement hot paths.
type LedgerMetrics struct {
	transactionsRecorded *prometheus.CounterVec
	transactionsDeleted  prometheus.Counter
	settlementsTotal     prometheus.Counter
	settlementBatchSize  prometheus.Histogram
	unsettledBacklog     prometheus.Gauge
}

var (
	ledgerMetricsOnce sync.Once
	ledgerMetrics     *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	return LedgerWithConfig(Config{})
}

func LedgerWithConfig(cfg Config) *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetrics = newLedgerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ledgerMetrics
}

func ResetLedgerMetricsForTest() {
	ledgerMetricsOnce = sync.Once{}
	ledgerMetrics = nil
}

func newLedgerMetrics(registerer prometheus.Registerer, cfg Config) *LedgerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "exchange"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	transactionsRecorded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "exchange_transactions_recorded_total",
			Help:        "Total transactions recorded by type.",
			ConstLabels: constLabels,
		},
		[]string{"type"},
	)

	transactionsDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "exchange_transactions_deleted_total",
			Help:        "Total unsettled transactions deleted.",
			ConstLabels: constLabels,
		},
	)

	settlementsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "exchange_settlements_total",
			Help:        "Total settlements executed.",
			ConstLabels: constLabels,
		},
	)

	settlementBatchSize := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "exchange_settlement_batch_size",
			Help:        "Transactions closed per settlement.",
			Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			ConstLabels: constLabels,
		},
	)

	unsettledBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "exchange_unsettled_backlog",
			Help:        "Transactions currently awaiting settlement.",
			ConstLabels: constLabels,
		},
	)

	registerer.MustRegister(
		transactionsRecorded,
		transactionsDeleted,
		settlementsTotal,
		settlementBatchSize,
		unsettledBacklog,
	)

	return &LedgerMetrics{
		transactionsRecorded: transactionsRecorded,
		transactionsDeleted:  transactionsDeleted,
		settlementsTotal:     settlementsTotal,
		settlementBatchSize:  settlementBatchSize,
		unsettledBacklog:     unsettledBacklog,
	}
}

func (m *LedgerMetrics) IncTransactionRecorded(transactionType string) {
	if m == nil {
		return
	}
	m.transactionsRecorded.WithLabelValues(transactionType).Inc()
}

func (m *LedgerMetrics) IncTransactionDeleted() {
	if m == nil {
		return
	}
	m.transactionsDeleted.Inc()
}

func (m *LedgerMetrics) ObserveSettlement(batchSize int) {
	if m == nil {
		return
	}
	m.settlementsTotal.Inc()
	m.settlementBatchSize.Observe(float64(batchSize))
}

func (m *LedgerMetrics) SetUnsettledBacklog(value int64) {
	if m == nil {
		return
	}
	m.unsettledBacklog.Set(float64(value))
}
