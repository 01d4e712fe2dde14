// Package observability 提供 Prometheus 指標與 zap logger 建構
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "poolledger"

// 交易結果標籤
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// 對帳結果標籤
const (
	ResultConsistent   = "consistent"
	ResultInconsistent = "inconsistent"
)

// Postings 各操作的交易次數
var Postings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "postings_total",
	Help:      "Ledger operations by outcome.",
}, []string{"operation", "outcome"})

// Replays 重放次數 (交易 ID 已提交)
var Replays = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "replays_total",
	Help:      "Operations answered from an already committed transaction.",
}, []string{"operation"})

// LockWait 取得卡片鎖的等待時間
var LockWait = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "lock_wait_seconds",
	Help:      "Time spent waiting for the per-card lock.",
	Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
})

// Reconciliations 對帳次數
var Reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "reconciliations_total",
	Help:      "Reconciliation runs by result.",
}, []string{"result"})
