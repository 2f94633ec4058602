package metrics

import (
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/metrics"
)

// Recorder 把業務事件轉成 Prometheus 指標
type Recorder struct {
	metrics *metrics.Metrics
}

func NewRecorder(m *metrics.Metrics) *Recorder {
	return &Recorder{metrics: m}
}

func (r *Recorder) TransactionRecorded(tran *domain.Transaction) {
	amount, _ := tran.Amount.Float64()
	r.metrics.Transaction(string(tran.Type), string(tran.Status), amount, tran.IsSuccess())
}

func (r *Recorder) LoanTransitioned(status domain.LoanStatus) {
	r.metrics.LoanTransition(string(status))
}

var _ usecase.Recorder = (*Recorder)(nil)
