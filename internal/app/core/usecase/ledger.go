package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// Ledger 是帳務系統的介面，唯一可以變更 Account.Balance 的元件
type Ledger interface {
	// Deposit 存款，回傳新餘額
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
	// Withdraw 提款，回傳新餘額
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
	// Transfer 轉帳，提款失敗時不會入帳
	Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) error
	// Execute 依帳號順序鎖定 accountIDs 後執行 fn；fn 回傳錯誤時所有變更都不生效
	Execute(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx LedgerTx) error) error
	// OpenAccount 建立帳戶 (ID 為 0 時由 Ledger 分配)
	OpenAccount(ctx context.Context, account *domain.Account) error
	// GetAccount 取得帳戶快照
	GetAccount(ctx context.Context, accountID int64) (*domain.Account, error)
	// LoadAllAccounts 載入所有帳戶
	LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error)
}

// LedgerTx 是 Execute 期間對已鎖定帳戶的操作
type LedgerTx interface {
	Account(accountID int64) (*domain.Account, error)
	Deposit(accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(accountID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Transfer(fromID, toID int64, amount decimal.Decimal) error
	SetStatus(accountID int64, status domain.AccountStatus) error
}

// ApplyTransfer 在已鎖定的帳戶上執行轉帳的共用檢查與步驟，供各 Ledger 實作使用
func ApplyTransfer(tx LedgerTx, fromID, toID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if fromID == toID {
		return domain.ErrSameAccountTransaction
	}
	to, err := tx.Account(toID)
	if err != nil {
		return err
	}
	if !to.IsActive() {
		return domain.ErrAccountNotActive
	}
	if _, err := tx.Withdraw(fromID, amount); err != nil {
		return err
	}
	_, err = tx.Deposit(toID, amount)
	return err
}
