package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanStatus 貸款狀態
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "PENDING"
	LoanStatusApproved  LoanStatus = "APPROVED"
	LoanStatusRejected  LoanStatus = "REJECTED"
	LoanStatusDisbursed LoanStatus = "DISBURSED"
	LoanStatusClosed    LoanStatus = "CLOSED"
	LoanStatusDefaulted LoanStatus = "DEFAULTED"
)

// IsActive 貸款是否仍佔用帳戶 (帳戶因此不可結清)
func (s LoanStatus) IsActive() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusDisbursed, LoanStatusDefaulted:
		return true
	}
	return false
}

// Loan 貸款
//
// 未償還金額不儲存，一律由 {本金, 利率, 期數, 撥款日, 成功的還款交易} 推導。
type Loan struct {
	ID           uuid.UUID
	AccountID    int64
	Principal    decimal.Decimal
	AnnualRate   decimal.Decimal // 年利率百分比，例如 13 代表 13%
	TenureMonths int
	Status       LoanStatus
	// DateOfIssuance 撥款時才設定
	DateOfIssuance *time.Time
	// TransactionIDs 撥款與還款交易 (含失敗的還款嘗試)
	TransactionIDs []uuid.UUID
	// ApprovedBy 核准或駁回的行員
	ApprovedBy *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewLoan 建立 PENDING 狀態的貸款申請
func NewLoan(accountID int64, principal, annualRate decimal.Decimal, tenureMonths int, now time.Time) (*Loan, error) {
	if err := ValidateLoanTerms(principal, annualRate, tenureMonths); err != nil {
		return nil, err
	}
	return &Loan{
		ID:           uuid.New(),
		AccountID:    accountID,
		Principal:    principal,
		AnnualRate:   annualRate,
		TenureMonths: tenureMonths,
		Status:       LoanStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateLoanTerms 檢查貸款條件，讓 EMI 與攤還計算不會產生無意義的結果
func ValidateLoanTerms(principal, annualRate decimal.Decimal, tenureMonths int) error {
	if !IsValidAmount(principal) {
		return ErrInvalidPrincipal
	}
	if annualRate.IsNegative() {
		return ErrInvalidInterestRate
	}
	if tenureMonths <= 0 {
		return ErrInvalidTenure
	}
	return nil
}

// Approve PENDING -> APPROVED
func (l *Loan) Approve(employeeID int64, now time.Time) error {
	if l.Status != LoanStatusPending {
		return ErrInvalidLoanState
	}
	l.Status = LoanStatusApproved
	l.ApprovedBy = &employeeID
	l.UpdatedAt = now
	return nil
}

// Reject PENDING -> REJECTED
func (l *Loan) Reject(employeeID int64, now time.Time) error {
	if l.Status != LoanStatusPending {
		return ErrInvalidLoanState
	}
	l.Status = LoanStatusRejected
	l.ApprovedBy = &employeeID
	l.UpdatedAt = now
	return nil
}

// Disburse APPROVED -> DISBURSED，並以撥款當下作為撥款日
func (l *Loan) Disburse(now time.Time) error {
	if l.Status != LoanStatusApproved {
		return ErrInvalidLoanState
	}
	issued := now
	l.Status = LoanStatusDisbursed
	l.DateOfIssuance = &issued
	l.UpdatedAt = now
	return nil
}

// Close DISBURSED -> CLOSED
func (l *Loan) Close(now time.Time) error {
	if l.Status != LoanStatusDisbursed {
		return ErrLoanNotDisbursed
	}
	l.Status = LoanStatusClosed
	l.UpdatedAt = now
	return nil
}

// MarkDefaulted DISBURSED -> DEFAULTED
func (l *Loan) MarkDefaulted(now time.Time) error {
	if l.Status != LoanStatusDisbursed {
		return ErrInvalidLoanState
	}
	l.Status = LoanStatusDefaulted
	l.UpdatedAt = now
	return nil
}

// AttachTransaction 記錄與此貸款相關的交易
func (l *Loan) AttachTransaction(id uuid.UUID) {
	l.TransactionIDs = append(l.TransactionIDs, id)
}

// RepaymentDate 到期日 = 撥款日 + 期數；尚未撥款時回傳 nil
func (l *Loan) RepaymentDate() *time.Time {
	if l.DateOfIssuance == nil {
		return nil
	}
	due := l.DateOfIssuance.AddDate(0, l.TenureMonths, 0)
	return &due
}

// In 將貸款的時間欄位轉到 loc 時區並回傳 l
//
// 撥款日決定月份與到期日的邊界，計算前要先轉到銀行所在時區。
func (l *Loan) In(loc *time.Location) *Loan {
	if loc == nil {
		return l
	}
	if l.DateOfIssuance != nil {
		issued := l.DateOfIssuance.In(loc)
		l.DateOfIssuance = &issued
	}
	l.CreatedAt = l.CreatedAt.In(loc)
	l.UpdatedAt = l.UpdatedAt.In(loc)
	return l
}

// Clone 回傳深拷貝
func (l *Loan) Clone() *Loan {
	cp := *l
	if l.DateOfIssuance != nil {
		issued := *l.DateOfIssuance
		cp.DateOfIssuance = &issued
	}
	if l.ApprovedBy != nil {
		by := *l.ApprovedBy
		cp.ApprovedBy = &by
	}
	cp.TransactionIDs = append([]uuid.UUID(nil), l.TransactionIDs...)
	return &cp
}
