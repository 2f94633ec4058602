package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/keymutex"
	"github.com/JoeShih716/go-bank-core/pkg/wal"
)

// MutexLedger 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	accounts: 帳戶資料 Map，mu 只保護 Map 本身
//	locks: 每個帳戶一把鎖，Execute 期間持有
//	wal: Write-Ahead Log 實例 (可為 nil)
//
// 帳戶物件是 copy-on-write：Execute 在副本上變更，寫入 WAL 後才換掉 Map 中的指標。
type MutexLedger struct {
	accounts map[int64]*domain.Account
	mu       sync.RWMutex
	locks    *keymutex.KeyMutex[int64]
	nextID   atomic.Int64
	wal      *wal.WAL
	now      func() time.Time
}

// NewMutexLedger 建立一個新的 MutexLedger 實例
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (可為 nil)
//	w: Write-Ahead Log 實例 (可為 nil，代表不落地)
//
// 回傳:
//
//	*MutexLedger: MutexLedger 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewMutexLedger(accounts map[int64]*domain.Account, w *wal.WAL) (*MutexLedger, error) {
	ledger := &MutexLedger{
		accounts: make(map[int64]*domain.Account, len(accounts)),
		locks:    keymutex.New[int64](),
		wal:      w,
		now:      time.Now,
	}
	for id, account := range accounts {
		ledger.put(id, account.Clone())
	}
	if err := replayAccounts(w, func(a *domain.Account) { ledger.put(a.ID, a) }); err != nil {
		return nil, err
	}
	return ledger, nil
}

// put 只在初始化與提交時呼叫
func (m *MutexLedger) put(id int64, account *domain.Account) {
	m.accounts[id] = account
	for {
		cur := m.nextID.Load()
		if id <= cur || m.nextID.CompareAndSwap(cur, id) {
			return
		}
	}
}

func (m *MutexLedger) lookup(id int64) (*domain.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[id]
	return account, ok
}

// Execute 依帳號遞增順序鎖定帳戶後執行 fn
//
// 參數:
//
//	ctx: 上下文
//	accountIDs: 要鎖定的帳戶 (重複的只鎖一次)
//	fn: 在鎖內執行的邏輯；回傳錯誤時所有帳戶變更與 store 寫入都丟棄
//
// 回傳:
//
//	error: fn 的錯誤、帳戶不存在或 WAL 寫入失敗
func (m *MutexLedger) Execute(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx usecase.LedgerTx) error) error {
	ids := domain.SortLockIDs(accountIDs)
	unlock := m.locks.LockAll(ids)
	defer unlock()

	tx, err := stage(ids, m.lookup, m.now())
	if err != nil {
		return err
	}
	ctx, records := withPendingRecords(ctx)
	if err := fn(ctx, tx); err != nil {
		return err
	}

	changed := tx.Changed()
	// 1. 寫入 WAL (Critical Path)
	if err := writeJournal(m.wal, journalOpCommit, changed, records); err != nil {
		return err
	}
	// 2. 換入新版本
	m.mu.Lock()
	for _, account := range changed {
		m.accounts[account.ID] = account
	}
	m.mu.Unlock()
	records.commit()
	return nil
}

// Deposit 存款，回傳新餘額
func (m *MutexLedger) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := m.Execute(ctx, []int64{accountID}, func(_ context.Context, tx usecase.LedgerTx) error {
		var err error
		balance, err = tx.Deposit(accountID, amount)
		return err
	})
	return balance, err
}

// Withdraw 提款，回傳新餘額
func (m *MutexLedger) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := m.Execute(ctx, []int64{accountID}, func(_ context.Context, tx usecase.LedgerTx) error {
		var err error
		balance, err = tx.Withdraw(accountID, amount)
		return err
	})
	return balance, err
}

// Transfer 轉帳
func (m *MutexLedger) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) error {
	if fromID == toID {
		return domain.ErrSameAccountTransaction
	}
	return m.Execute(ctx, []int64{fromID, toID}, func(_ context.Context, tx usecase.LedgerTx) error {
		return tx.Transfer(fromID, toID, amount)
	})
}

// OpenAccount 建立帳戶，account.ID 為 0 時分配新帳號並寫回 account
func (m *MutexLedger) OpenAccount(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if account.ID == 0 {
		account.ID = m.nextID.Add(1)
	} else if _, ok := m.accounts[account.ID]; ok {
		return domain.ErrAccountAlreadyExists
	}
	stored := account.Clone()
	if err := writeJournal(m.wal, journalOpOpen, []*domain.Account{stored}, nil); err != nil {
		return err
	}
	m.put(stored.ID, stored)
	return nil
}

// GetAccount 取得帳戶快照
func (m *MutexLedger) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	account, ok := m.lookup(accountID)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return account.Clone(), nil
}

// LoadAllAccounts 載入系統所有帳戶資料的快照
func (m *MutexLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int64]*domain.Account, len(m.accounts))
	for id, account := range m.accounts {
		out[id] = account.Clone()
	}
	return out, nil
}

var _ usecase.Ledger = (*MutexLedger)(nil)
