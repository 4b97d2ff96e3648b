// Package metrics exposes prometheus instruments for the ledger node.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks transaction outcomes and the headline counters of
// the three ledgers.
type LedgerMetrics struct {
	txExecuted  *prometheus.CounterVec
	txRejected  *prometheus.CounterVec
	queueLen    *prometheus.GaugeVec
	pool        *prometheus.GaugeVec
	level       prometheus.Gauge
	rngLocked   prometheus.Gauge
	blockHeight prometheus.Gauge
	blockTxs    prometheus.Histogram
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide ledger metrics, registering them with the
// default prometheus registry on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			txExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "purge_tx_executed_total",
				Help: "Transactions applied, by type.",
			}, []string{"type"}),
			txRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "purge_tx_rejected_total",
				Help: "Transactions reverted, by type and error class.",
			}, []string{"type", "class"}),
			queueLen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "purge_queue_length",
				Help: "Occupied slots of each bounded work queue.",
			}, []string{"queue"}),
			pool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "purge_pool_balance",
				Help: "Balance of each prize or jackpot pool.",
			}, []string{"pool"}),
			level: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "purge_game_level",
				Help: "Current game level.",
			}),
			rngLocked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "purge_rng_locked",
				Help: "1 while an RNG request is outstanding.",
			}),
			blockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "purge_block_height",
				Help: "Height of the latest committed block.",
			}),
			blockTxs: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "purge_block_transactions",
				Help:    "Transactions included per produced block.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.txExecuted,
			ledgerRegistry.txRejected,
			ledgerRegistry.queueLen,
			ledgerRegistry.pool,
			ledgerRegistry.level,
			ledgerRegistry.rngLocked,
			ledgerRegistry.blockHeight,
			ledgerRegistry.blockTxs,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveTx(txType, class string) {
	if m == nil {
		return
	}
	if txType == "" {
		txType = "unknown"
	}
	if class == "" || class == "ok" {
		m.txExecuted.WithLabelValues(txType).Inc()
		return
	}
	m.txRejected.WithLabelValues(txType, class).Inc()
}

func (m *LedgerMetrics) SetQueueLen(queue string, n uint64) {
	if m == nil {
		return
	}
	m.queueLen.WithLabelValues(queue).Set(float64(n))
}

func (m *LedgerMetrics) SetPool(pool string, amount uint64) {
	if m == nil {
		return
	}
	m.pool.WithLabelValues(pool).Set(float64(amount))
}

func (m *LedgerMetrics) SetLevel(level uint32) {
	if m == nil {
		return
	}
	m.level.Set(float64(level))
}

func (m *LedgerMetrics) SetRngLocked(locked bool) {
	if m == nil {
		return
	}
	if locked {
		m.rngLocked.Set(1)
		return
	}
	m.rngLocked.Set(0)
}

func (m *LedgerMetrics) ObserveBlock(height int64, txs int) {
	if m == nil {
		return
	}
	m.blockHeight.Set(float64(height))
	m.blockTxs.Observe(float64(txs))
}
