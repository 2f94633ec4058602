package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType 交易類型
type TransactionType string

const (
	// 存款
	TransactionTypeDeposit TransactionType = "DEPOSIT"
	// 提款
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	// 轉帳
	TransactionTypeTransfer TransactionType = "TRANSFERRED"
	// 貸款撥款
	TransactionTypeLoanDisbursement TransactionType = "LOAN_DISBURSEMENT"
	// 貸款還款
	TransactionTypeLoanRepayment TransactionType = "LOAN_REPAYMENT"
	// 手續費
	TransactionTypeCharge TransactionType = "CHARGE"
	// 利息
	TransactionTypeInterest TransactionType = "INTEREST"
)

// TransactionStatus 交易狀態
type TransactionStatus string

const (
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// 失敗原因 (FAILED 交易的 FailureReason)
const (
	ReasonDailyDepositLimitExceeded  = "Daily maximum deposit limit exceeded."
	ReasonDailyWithdrawLimitExceeded = "Daily maximum withdraw limit exceeded."
	ReasonInsufficientBalance        = "Insufficient balance"
	ReasonOverpayment                = "Repayment rejected: overpayment of outstanding loan amount"
)

// Transaction 交易紀錄
//
// 建立並存檔後即不可變更；不論成功或失敗都會存檔，
// 讓每日上限的統計與稽核軌跡完整。帳戶與貸款只以 ID 參照。
type Transaction struct {
	ID                   uuid.UUID
	Type                 TransactionType
	Status               TransactionStatus
	Amount               decimal.Decimal
	SourceAccountID      *int64
	DestinationAccountID *int64
	LoanID               *uuid.UUID
	// FailureReason 只有 Status == FAILED 時才有值
	FailureReason string
	CreatedAt     time.Time
}

// NewTransaction 建立 PENDING 狀態的交易，存檔前必須呼叫 MarkSucceeded 或 MarkFailed
func NewTransaction(txType TransactionType, amount decimal.Decimal, now time.Time) *Transaction {
	return &Transaction{
		ID:        uuid.New(),
		Type:      txType,
		Status:    TransactionStatusPending,
		Amount:    amount,
		CreatedAt: now,
	}
}

// From 設定轉出帳戶
func (t *Transaction) From(accountID int64) *Transaction {
	t.SourceAccountID = &accountID
	return t
}

// To 設定轉入帳戶
func (t *Transaction) To(accountID int64) *Transaction {
	t.DestinationAccountID = &accountID
	return t
}

// ForLoan 設定關聯貸款
func (t *Transaction) ForLoan(loanID uuid.UUID) *Transaction {
	t.LoanID = &loanID
	return t
}

func (t *Transaction) MarkSucceeded() {
	t.Status = TransactionStatusSuccess
	t.FailureReason = ""
}

func (t *Transaction) MarkFailed(reason string) {
	t.Status = TransactionStatusFailed
	t.FailureReason = reason
}

func (t *Transaction) IsSuccess() bool {
	return t.Status == TransactionStatusSuccess
}

// IsDebit 錢離開帳戶的成功交易
func (t *Transaction) IsDebit() bool {
	if !t.IsSuccess() {
		return false
	}
	switch t.Type {
	case TransactionTypeWithdrawal, TransactionTypeCharge, TransactionTypeLoanRepayment:
		return true
	}
	return false
}

// IsCredit 錢進入帳戶的成功交易
func (t *Transaction) IsCredit() bool {
	if !t.IsSuccess() {
		return false
	}
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeInterest, TransactionTypeLoanDisbursement:
		return true
	}
	return false
}

// CountsTowardDailyDebit 是否計入 accountID 當日轉出總額
//
// 貸款還款不受每日上限約束，因此也不計入。
func (t *Transaction) CountsTowardDailyDebit(accountID int64) bool {
	if !t.IsSuccess() || !sameID(t.SourceAccountID, accountID) {
		return false
	}
	switch t.Type {
	case TransactionTypeWithdrawal, TransactionTypeCharge, TransactionTypeTransfer:
		return true
	}
	return false
}

// CountsTowardDailyCredit 是否計入 accountID 當日轉入總額
//
// 貸款撥款不受每日上限約束，因此也不計入。
func (t *Transaction) CountsTowardDailyCredit(accountID int64) bool {
	if !t.IsSuccess() || !sameID(t.DestinationAccountID, accountID) {
		return false
	}
	switch t.Type {
	case TransactionTypeDeposit, TransactionTypeInterest, TransactionTypeTransfer:
		return true
	}
	return false
}

// Touches 交易是否涉及 accountID
func (t *Transaction) Touches(accountID int64) bool {
	return sameID(t.SourceAccountID, accountID) || sameID(t.DestinationAccountID, accountID)
}

// GetLockIDs 回傳需要鎖定的帳號 ID，並確保順序以避免死鎖
func (t *Transaction) GetLockIDs() []int64 {
	ids := make([]int64, 0, 2)
	if t.SourceAccountID != nil {
		ids = append(ids, *t.SourceAccountID)
	}
	if t.DestinationAccountID != nil {
		ids = append(ids, *t.DestinationAccountID)
	}
	return SortLockIDs(ids)
}

// SortLockIDs 排序並去除重複的帳號 ID
//
// 所有需要鎖定多個帳戶的操作都必須依此順序取得鎖，
// 兩筆方向相反的轉帳才不會互相等待。
func SortLockIDs(ids []int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// Clone 回傳深拷貝
func (t *Transaction) Clone() *Transaction {
	cp := *t
	if t.SourceAccountID != nil {
		id := *t.SourceAccountID
		cp.SourceAccountID = &id
	}
	if t.DestinationAccountID != nil {
		id := *t.DestinationAccountID
		cp.DestinationAccountID = &id
	}
	if t.LoanID != nil {
		id := *t.LoanID
		cp.LoanID = &id
	}
	return &cp
}

// FailureReasonOf 將 Ledger 的結果錯誤轉為 FAILED 交易的原因
//
// 回傳 false 表示 err 不是金額相關的結果錯誤，呼叫端應直接回傳 err。
func FailureReasonOf(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return ReasonInsufficientBalance, true
	}
	return "", false
}

func sameID(p *int64, id int64) bool {
	return p != nil && *p == id
}
