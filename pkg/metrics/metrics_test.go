package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transaction("DEPOSIT", "SUCCESS", 100.5, true)
	m.Transaction("DEPOSIT", "FAILED", 70000, false)
	m.Transaction("DEPOSIT", "SUCCESS", 0.5, true)
	m.LoanTransition("APPROVED")
	m.RPC("/bank.v1.Core/Deposit", "OK", 3*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactions.WithLabelValues("DEPOSIT", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactions.WithLabelValues("DEPOSIT", "FAILED")))
	assert.Equal(t, 101.0, testutil.ToFloat64(m.transactedAmount.WithLabelValues("DEPOSIT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loanTransitions.WithLabelValues("APPROVED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcHandled.WithLabelValues("/bank.v1.Core/Deposit", "OK")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.rpcDuration))
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.LoanTransition("CLOSED")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `bank_core_loan_transitions_total{status="CLOSED"} 1`))
}
