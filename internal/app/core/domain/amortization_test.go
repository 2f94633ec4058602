package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateEMI(t *testing.T) {
	tests := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		want      string
		wantErr   error
	}{
		{name: "reference loan", principal: "2000", rate: "13", tenure: 60, want: "45.51"},
		{name: "one year at 12%", principal: "100000", rate: "12", tenure: 12, want: "8884.88"},
		{name: "zero rate divides evenly", principal: "1200", rate: "0", tenure: 12, want: "100"},
		{name: "zero rate rounds half up", principal: "100", rate: "0", tenure: 3, want: "33.33"},
		{name: "zero tenure", principal: "1000", rate: "10", tenure: 0, wantErr: ErrInvalidTenure},
		{name: "negative rate", principal: "1000", rate: "-1", tenure: 12, wantErr: ErrInvalidInterestRate},
		{name: "zero principal", principal: "0", rate: "10", tenure: 12, wantErr: ErrInvalidPrincipal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateEMI(d(tt.principal), d(tt.rate), tt.tenure)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(MoneyScale))
		})
	}
}

func disbursedLoan(t *testing.T, principal, rate string, tenure int, issued time.Time) *Loan {
	t.Helper()
	loan, err := NewLoan(1, d(principal), d(rate), tenure, issued)
	require.NoError(t, err)
	require.NoError(t, loan.Approve(99, issued))
	require.NoError(t, loan.Disburse(issued))
	return loan
}

func repayment(loan *Loan, amount string, at time.Time) *Transaction {
	tran := NewTransaction(TransactionTypeLoanRepayment, d(amount), at).From(loan.AccountID).ForLoan(loan.ID)
	tran.MarkSucceeded()
	return tran
}

func TestOutstandingAmount(t *testing.T) {
	issued := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	t.Run("not disbursed is principal", func(t *testing.T) {
		loan, err := NewLoan(1, d("5000"), d("10"), 12, issued)
		require.NoError(t, err)
		got, err := OutstandingAmount(loan, nil, issued.AddDate(1, 0, 0))
		require.NoError(t, err)
		assert.Equal(t, "5000.00", got.StringFixed(MoneyScale))
	})

	t.Run("same day without repayments", func(t *testing.T) {
		loan := disbursedLoan(t, "100000", "12", 12, issued)
		got, err := OutstandingAmount(loan, nil, issued.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, "100000.00", got.StringFixed(MoneyScale))
	})

	t.Run("one month without repayment adds interest and penalty", func(t *testing.T) {
		loan := disbursedLoan(t, "100000", "12", 12, issued)
		got, err := OutstandingAmount(loan, nil, issued.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Equal(t, "101177.70", got.StringFixed(MoneyScale))
	})

	t.Run("one month paying the EMI", func(t *testing.T) {
		loan := disbursedLoan(t, "100000", "12", 12, issued)
		repayments := []*Transaction{repayment(loan, "8884.88", issued.AddDate(0, 0, 10))}
		got, err := OutstandingAmount(loan, repayments, issued.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Equal(t, "92115.12", got.StringFixed(MoneyScale))
	})

	t.Run("short payment in second month is penalized", func(t *testing.T) {
		loan := disbursedLoan(t, "100000", "12", 12, issued)
		repayments := []*Transaction{
			repayment(loan, "8884.88", issued.AddDate(0, 0, 10)),
			// 滿兩個月才歸屬第 2 個月
			repayment(loan, "5000", issued.AddDate(0, 2, 0)),
		}
		got, err := OutstandingAmount(loan, repayments, issued.AddDate(0, 2, 0))
		require.NoError(t, err)
		assert.Equal(t, "88113.97", got.StringFixed(MoneyScale))
	})

	t.Run("repayment before one month counts as month one", func(t *testing.T) {
		loan := disbursedLoan(t, "100000", "12", 12, issued)
		repayments := []*Transaction{repayment(loan, "8884.88", issued.Add(time.Minute))}
		got, err := OutstandingAmount(loan, repayments, issued.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "92115.12", got.StringFixed(MoneyScale))
	})

	t.Run("ignores failed and foreign transactions", func(t *testing.T) {
		loan := disbursedLoan(t, "100000", "12", 12, issued)
		failed := NewTransaction(TransactionTypeLoanRepayment, d("8884.88"), issued.AddDate(0, 0, 10)).From(1).ForLoan(loan.ID)
		failed.MarkFailed(ReasonInsufficientBalance)
		foreign := repayment(loan, "8884.88", issued.AddDate(0, 0, 10))
		other := uuid.New()
		foreign.LoanID = &other
		got, err := OutstandingAmount(loan, []*Transaction{failed, foreign}, issued.AddDate(0, 1, 0))
		require.NoError(t, err)
		assert.Equal(t, "101177.70", got.StringFixed(MoneyScale))
	})

	t.Run("never negative", func(t *testing.T) {
		loan := disbursedLoan(t, "1000", "0", 10, issued)
		repayments := []*Transaction{repayment(loan, "1500", issued.Add(time.Hour))}
		got, err := OutstandingAmount(loan, repayments, issued.Add(2*time.Hour))
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("idempotent", func(t *testing.T) {
		loan := disbursedLoan(t, "2000", "13", 60, issued)
		repayments := []*Transaction{repayment(loan, "45.51", issued.AddDate(0, 0, 3))}
		now := issued.AddDate(0, 7, 2)
		first, err := OutstandingAmount(loan, repayments, now)
		require.NoError(t, err)
		second, err := OutstandingAmount(loan, repayments, now)
		require.NoError(t, err)
		assert.True(t, first.Equal(second))
		assert.Len(t, repayments, 1)
	})
}

func TestMonthsBetween(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, MonthsBetween(start, start))
	assert.Equal(t, 0, MonthsBetween(start, start.Add(-time.Hour)))
	assert.Equal(t, 0, MonthsBetween(start, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, MonthsBetween(start, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, MonthsBetween(start, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, RepaymentMonth(start, start))
}

func TestIsOverdue(t *testing.T) {
	issued := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	due := issued.AddDate(0, 12, 0)

	pending, err := NewLoan(1, d("1000"), d("10"), 12, issued)
	require.NoError(t, err)
	assert.False(t, IsOverdue(pending, due.AddDate(1, 0, 0)))

	loan := disbursedLoan(t, "1000", "10", 12, issued)
	assert.False(t, IsOverdue(loan, due))
	assert.False(t, IsOverdue(loan, due.Add(13*time.Hour)), "same calendar day is not overdue")
	assert.True(t, IsOverdue(loan, due.AddDate(0, 0, 1)))

	require.NoError(t, loan.MarkDefaulted(issued))
	assert.True(t, IsOverdue(loan, issued))

	closed := disbursedLoan(t, "1000", "10", 12, issued)
	require.NoError(t, closed.Close(issued))
	assert.False(t, IsOverdue(closed, due.AddDate(1, 0, 0)))
}

func TestSummarize(t *testing.T) {
	issued := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	loan := disbursedLoan(t, "2000", "13", 60, issued)

	summary, err := Summarize(loan, nil, issued)
	require.NoError(t, err)
	assert.Equal(t, "45.51", summary.EMI.StringFixed(MoneyScale))
	assert.Equal(t, "2000.00", summary.Outstanding.StringFixed(MoneyScale))
	require.NotNil(t, summary.RepaymentDate)
	assert.Equal(t, issued.AddDate(0, 60, 0), *summary.RepaymentDate)
	assert.False(t, summary.Overdue)

	require.NoError(t, loan.Close(issued))
	summary, err = Summarize(loan, nil, issued.AddDate(0, 3, 0))
	require.NoError(t, err)
	assert.True(t, summary.Outstanding.IsZero())
}
