package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/mysql"
)

// MySQLLedger 以資料庫交易與悲觀鎖 (SELECT ... FOR UPDATE) 實作的帳本
//
// Execute 期間的 gorm 交易會放進 ctx，repository 透過 mysql.Conn 寫入同一個交易，
// 帳戶變更與交易紀錄一起提交或一起回滾。
type MySQLLedger struct {
	client *mysql.Client
	now    func() time.Time
}

func NewMySQLLedger(client *mysql.Client) *MySQLLedger {
	return &MySQLLedger{
		client: client,
		now:    time.Now,
	}
}

// Execute 鎖定帳戶後執行 fn
//
// 參數:
//
//	ctx: 上下文
//	accountIDs: 要鎖定的帳戶，依帳號遞增順序 FOR UPDATE
//	fn: 在交易內執行的邏輯；回傳錯誤時整個資料庫交易回滾
//
// 回傳:
//
//	error: fn 的錯誤、帳戶不存在或資料庫錯誤
func (ledger *MySQLLedger) Execute(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx usecase.LedgerTx) error) error {
	ids := domain.SortLockIDs(accountIDs)
	return ledger.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 取得鎖定帳號 悲觀鎖，依固定順序避免死鎖
		var rows []sqlAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id ASC").
			Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return domain.ErrAccountNotFound
		}

		accounts := make([]*domain.Account, 0, len(rows))
		for i := range rows {
			accounts = append(accounts, rows[i].toDomain())
		}
		staged := usecase.NewStagedTx(accounts, ledger.now())
		if err := fn(mysql.ContextWithTx(ctx, tx), staged); err != nil {
			return err
		}

		// 更新資料庫
		for _, account := range staged.Changed() {
			if err := tx.Model(&sqlAccount{}).
				Where("id = ?", account.ID).
				Updates(map[string]any{
					"balance":       account.Balance,
					"status":        string(account.Status),
					"updated_at_ms": account.UpdatedAt.UnixMilli(),
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Deposit 存款，回傳新餘額
func (ledger *MySQLLedger) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := ledger.Execute(ctx, []int64{accountID}, func(_ context.Context, tx usecase.LedgerTx) error {
		var err error
		balance, err = tx.Deposit(accountID, amount)
		return err
	})
	return balance, err
}

// Withdraw 提款，回傳新餘額
func (ledger *MySQLLedger) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := ledger.Execute(ctx, []int64{accountID}, func(_ context.Context, tx usecase.LedgerTx) error {
		var err error
		balance, err = tx.Withdraw(accountID, amount)
		return err
	})
	return balance, err
}

// Transfer 轉帳
func (ledger *MySQLLedger) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) error {
	if fromID == toID {
		return domain.ErrSameAccountTransaction
	}
	return ledger.Execute(ctx, []int64{fromID, toID}, func(_ context.Context, tx usecase.LedgerTx) error {
		return tx.Transfer(fromID, toID, amount)
	})
}

// OpenAccount 建立帳戶，account.ID 為 0 時由資料庫分配並寫回 account
func (ledger *MySQLLedger) OpenAccount(ctx context.Context, account *domain.Account) error {
	db := mysql.Conn(ctx, ledger.client.DB())
	if account.ID != 0 {
		var count int64
		if err := db.Model(&sqlAccount{}).Where("id = ?", account.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrAccountAlreadyExists
		}
	}
	row := toSQLAccount(account)
	if err := db.Create(row).Error; err != nil {
		return err
	}
	account.ID = row.ID
	return nil
}

// GetAccount 取得帳戶
func (ledger *MySQLLedger) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var row sqlAccount
	err := mysql.Conn(ctx, ledger.client.DB()).Where("id = ?", accountID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// LoadAllAccounts 載入所有帳戶
func (ledger *MySQLLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	var rows []sqlAccount
	if err := mysql.Conn(ctx, ledger.client.DB()).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[int64]*domain.Account, len(rows))
	for i := range rows {
		out[rows[i].ID] = rows[i].toDomain()
	}
	return out, nil
}

var _ usecase.Ledger = (*MySQLLedger)(nil)
