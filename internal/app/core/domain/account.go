package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType 帳戶類型
type AccountType string

const (
	AccountTypeSavings AccountType = "SAVINGS"
	AccountTypeCurrent AccountType = "CURRENT"
)

// IsValid 檢查帳戶類型
func (t AccountType) IsValid() bool {
	return t == AccountTypeSavings || t == AccountTypeCurrent
}

// AccountStatus 帳戶狀態
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusClosed   AccountStatus = "CLOSED"
)

// IsValid 檢查帳戶狀態
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusClosed:
		return true
	}
	return false
}

// Account 帳戶
//
// Balance 只能透過 Ledger 實作變更，且任何時刻皆 >= 0。
type Account struct {
	ID         int64
	CustomerID int64
	Type       AccountType
	Status     AccountStatus
	Balance    decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewAccount(id int64, customerID int64, accountType AccountType, now time.Time) *Account {
	return &Account{
		ID:         id,
		CustomerID: customerID,
		Type:       accountType,
		Status:     AccountStatusActive,
		Balance:    decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsActive 帳戶是否可以進行交易
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// Deposit 存款
func (a *Account) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	a.Balance = a.Balance.Add(amount)
	return nil
}

// Withdraw 提款
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	a.Balance = a.Balance.Sub(amount)
	return nil
}

// ChangeStatus 變更帳戶狀態
//
// CLOSED 為終態；結清時餘額必須剛好為零 (是否仍有貸款由上層檢查)。
func (a *Account) ChangeStatus(status AccountStatus) error {
	if !status.IsValid() {
		return ErrInvalidAccountStatus
	}
	if a.Status == AccountStatusClosed {
		return ErrAccountClosed
	}
	if status == AccountStatusClosed && !a.Balance.IsZero() {
		return ErrAccountBalanceNotZero
	}
	a.Status = status
	return nil
}

// Clone 回傳值拷貝，避免呼叫端改寫 Ledger 內部狀態
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
