package usecase

import (
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// StagedTx 是 LedgerTx 的共用實作：在已鎖定帳戶的副本上變更，
// 由 Ledger 在 fn 成功後以 Changed 取得結果並一次寫回
type StagedTx struct {
	accounts map[int64]*domain.Account
	dirty    map[int64]struct{}
	now      time.Time
}

// NewStagedTx 以 accounts 的副本建立 StagedTx
func NewStagedTx(accounts []*domain.Account, now time.Time) *StagedTx {
	tx := &StagedTx{
		accounts: make(map[int64]*domain.Account, len(accounts)),
		dirty:    make(map[int64]struct{}, len(accounts)),
		now:      now,
	}
	for _, account := range accounts {
		tx.accounts[account.ID] = account.Clone()
	}
	return tx
}

func (tx *StagedTx) locked(accountID int64) (*domain.Account, error) {
	account, ok := tx.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotLocked
	}
	return account, nil
}

func (tx *StagedTx) touch(account *domain.Account) {
	account.UpdatedAt = tx.now
	tx.dirty[account.ID] = struct{}{}
}

func (tx *StagedTx) Account(accountID int64) (*domain.Account, error) {
	account, err := tx.locked(accountID)
	if err != nil {
		return nil, err
	}
	return account.Clone(), nil
}

func (tx *StagedTx) Deposit(accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	account, err := tx.locked(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := account.Deposit(amount); err != nil {
		return decimal.Zero, err
	}
	tx.touch(account)
	return account.Balance, nil
}

func (tx *StagedTx) Withdraw(accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	account, err := tx.locked(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := account.Withdraw(amount); err != nil {
		return decimal.Zero, err
	}
	tx.touch(account)
	return account.Balance, nil
}

func (tx *StagedTx) Transfer(fromID, toID int64, amount decimal.Decimal) error {
	return ApplyTransfer(tx, fromID, toID, amount)
}

func (tx *StagedTx) SetStatus(accountID int64, status domain.AccountStatus) error {
	account, err := tx.locked(accountID)
	if err != nil {
		return err
	}
	if err := account.ChangeStatus(status); err != nil {
		return err
	}
	tx.touch(account)
	return nil
}

// Changed 有變更的帳戶，依帳號排序
func (tx *StagedTx) Changed() []*domain.Account {
	ids := slices.Sorted(maps.Keys(tx.dirty))
	out := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, tx.accounts[id])
	}
	return out
}

var _ LedgerTx = (*StagedTx)(nil)
