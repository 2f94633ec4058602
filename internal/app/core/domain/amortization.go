package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// rateScale 月利率的小數位數
	rateScale int32 = 20
	// workingScale 逐月模擬時中間值保留的小數位數，只有最後結果才 RoundMoney
	workingScale int32 = 10
)

var (
	one           = decimal.NewFromInt(1)
	monthsPerYear = decimal.NewFromInt(1200) // 12 個月 × 百分比
	// PenaltyRate 當月還款不足 EMI 時，差額的 2% 作為罰金
	PenaltyRate = decimal.RequireFromString("0.02")
	// ClosingThreshold 還款後未償還金額低於此值即結清
	ClosingThreshold = decimal.NewFromInt(1)
)

// MonthlyRate 年利率百分比轉為月利率: annualRate / 1200
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.DivRound(monthsPerYear, rateScale)
}

// CalculateEMI 計算每月應繳金額 (Equated Monthly Installment)
//
//	EMI = P × r × (1+r)^n / ((1+r)^n − 1)
//
// 結果四捨五入到小數點後 2 位。年利率為 0 時公式無意義，改用 P / n。
func CalculateEMI(principal, annualRate decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if err := ValidateLoanTerms(principal, annualRate, tenureMonths); err != nil {
		return decimal.Zero, err
	}
	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRate.IsZero() {
		return RoundMoney(principal.Div(n)), nil
	}

	r := MonthlyRate(annualRate)
	factor := powInt(one.Add(r), tenureMonths)
	denominator := factor.Sub(one)
	if denominator.IsZero() {
		return decimal.Zero, ErrInvalidInterestRate
	}
	emi := principal.Mul(r).Mul(factor).Div(denominator)
	return RoundMoney(emi), nil
}

// EMI 貸款的每月應繳金額
func (l *Loan) EMI() (decimal.Decimal, error) {
	return CalculateEMI(l.Principal, l.AnnualRate, l.TenureMonths)
}

// OutstandingAmount 由貸款條件與還款紀錄逐月推導截至 now 的未償還金額
//
// 每個經過的月份 m:
//  1. 加計利息 balance += balance × 月利率
//  2. 扣除歸屬第 m 個月的成功還款
//  3. 若 m <= 期數且當月還款不足 EMI，加計 (EMI − 還款) × 2% 罰金
//
// 有還款但尚未滿一個月時，經過月數以 1 計。結果不小於 0，四捨五入到 2 位。
// 不讀寫任何狀態，同樣的輸入永遠得到同樣的結果。
func OutstandingAmount(loan *Loan, repayments []*Transaction, now time.Time) (decimal.Decimal, error) {
	if loan.DateOfIssuance == nil {
		return RoundMoney(loan.Principal), nil
	}
	emi, err := loan.EMI()
	if err != nil {
		return decimal.Zero, err
	}
	issued := *loan.DateOfIssuance
	r := MonthlyRate(loan.AnnualRate)

	payments := make(map[int]decimal.Decimal)
	for _, tran := range repayments {
		if tran.Type != TransactionTypeLoanRepayment || !tran.IsDebit() {
			continue
		}
		if tran.LoanID != nil && *tran.LoanID != loan.ID {
			continue
		}
		m := RepaymentMonth(issued, tran.CreatedAt)
		payments[m] = payments[m].Add(tran.Amount)
	}

	monthsElapsed := MonthsBetween(issued, now)
	if monthsElapsed == 0 && len(payments) > 0 {
		monthsElapsed = 1
	}

	balance := loan.Principal
	for m := 1; m <= monthsElapsed; m++ {
		balance = balance.Add(balance.Mul(r)).Round(workingScale)
		paid := payments[m]
		balance = balance.Sub(paid)
		if m <= loan.TenureMonths && paid.LessThan(emi) {
			penalty := emi.Sub(paid).Mul(PenaltyRate)
			balance = balance.Add(penalty).Round(workingScale)
		}
	}

	if balance.IsNegative() {
		return decimal.Zero, nil
	}
	return RoundMoney(balance), nil
}

// RepaymentMonth 還款歸屬的攤還月份：撥款後經過的整月數，未滿一個月算第 1 個月
func RepaymentMonth(issued, paidAt time.Time) int {
	m := MonthsBetween(issued, paidAt)
	if m < 1 {
		return 1
	}
	return m
}

// MonthsBetween 計算 start 到 end 之間經過的完整月數 (end 早於 start 時為 0)
func MonthsBetween(start, end time.Time) int {
	end = end.In(start.Location())
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	for months > 0 && start.AddDate(0, months, 0).After(end) {
		months--
	}
	return months
}

// IsOverdue 貸款是否逾期
//
// 尚未撥款 (沒有到期日) 一律不算逾期；DEFAULTED 一律逾期；
// DISBURSED 則在今天的日期嚴格晚於到期日時逾期。
func IsOverdue(loan *Loan, now time.Time) bool {
	due := loan.RepaymentDate()
	if due == nil {
		return false
	}
	if loan.Status == LoanStatusDefaulted {
		return true
	}
	if loan.Status != LoanStatusDisbursed {
		return false
	}
	return startOfDay(now.In(due.Location())).After(startOfDay(*due))
}

// LoanSummary 貸款的即時計算結果
type LoanSummary struct {
	Loan          *Loan
	EMI           decimal.Decimal
	Outstanding   decimal.Decimal
	RepaymentDate *time.Time
	Overdue       bool
}

// Summarize 計算貸款的 EMI、未償還金額、到期日與逾期狀態
func Summarize(loan *Loan, repayments []*Transaction, now time.Time) (*LoanSummary, error) {
	emi, err := loan.EMI()
	if err != nil {
		return nil, err
	}
	outstanding, err := OutstandingAmount(loan, repayments, now)
	if err != nil {
		return nil, err
	}
	if loan.Status == LoanStatusClosed {
		outstanding = decimal.Zero
	}
	return &LoanSummary{
		Loan:          loan,
		EMI:           emi,
		Outstanding:   outstanding,
		RepaymentDate: loan.RepaymentDate(),
		Overdue:       IsOverdue(loan, now),
	}, nil
}

// powInt 以平方求冪計算 base^n (n >= 0)
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	const scale int32 = 28
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(scale)
		}
		base = base.Mul(base).Round(scale)
		n >>= 1
	}
	return result
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfDay 回傳 t 在 loc 時區當天 00:00
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return startOfDay(t.In(loc))
}
