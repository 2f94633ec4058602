package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bank_core"

// Metrics 核心服務的 Prometheus 指標
type Metrics struct {
	transactions     *prometheus.CounterVec
	transactedAmount *prometheus.CounterVec
	loanTransitions  *prometheus.CounterVec
	rpcHandled       *prometheus.CounterVec
	rpcDuration      *prometheus.HistogramVec
}

// New 在 reg 上註冊所有指標；reg 為 nil 時使用 prometheus.DefaultRegisterer
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Recorded transactions by type and status.",
		}, []string{"type", "status"}),
		transactedAmount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transacted_amount_total",
			Help:      "Sum of successful transaction amounts by type.",
		}, []string{"type"}),
		loanTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loan_transitions_total",
			Help:      "Loan status transitions by resulting status.",
		}, []string{"status"}),
		rpcHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_handled_total",
			Help:      "Handled gRPC calls by method and status code.",
		}, []string{"method", "code"}),
		rpcDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "gRPC handler latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Transaction 記錄一筆交易；只有成功的交易計入金額
func (m *Metrics) Transaction(txType, status string, amount float64, success bool) {
	m.transactions.WithLabelValues(txType, status).Inc()
	if success {
		m.transactedAmount.WithLabelValues(txType).Add(amount)
	}
}

// LoanTransition 記錄貸款狀態轉換
func (m *Metrics) LoanTransition(status string) {
	m.loanTransitions.WithLabelValues(status).Inc()
}

// RPC 記錄一次 gRPC 呼叫
func (m *Metrics) RPC(method, code string, elapsed time.Duration) {
	m.rpcHandled.WithLabelValues(method, code).Inc()
	m.rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler 回傳 /metrics 的 HTTP handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
