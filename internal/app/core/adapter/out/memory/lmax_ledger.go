package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/wal"
)

// ErrLedgerStopped 核心引擎已停止，不再接受請求
var ErrLedgerStopped = errors.New("ledger stopped")

// request 包裝一個要在核心 goroutine 上執行的工作，讓呼叫端可以等待結果
type request struct {
	ctx    context.Context
	run    func(ctx context.Context) error
	result chan error
}

// LMAXLedger 單一 goroutine 擁有所有帳戶狀態的帳本
//
// 所有讀寫都排進輸送帶，由 run loop 依序執行，因此帳戶本身不需要鎖。
// 使用前必須呼叫 Start。
//
// 注意: 在 Execute 的 fn 裡不能再呼叫同一個 LMAXLedger 的方法，否則會自己等自己。
type LMAXLedger struct {
	accounts map[int64]*domain.Account
	nextID   int64
	// Write-Ahead Logging
	wal *wal.WAL
	// 輸送帶 負責接收請求
	requests chan *request
	// Pool 減少 GC 壓力
	requestPool sync.Pool
	stopping    chan struct{}
	stopped     chan struct{}
	now         func() time.Time
}

// NewLMAXLedger 建立一個新的 LMAXLedger 實例
//
// 參數:
//
//	accounts: 初始帳戶資料 Map (可為 nil)
//	w: Write-Ahead Log 實例 (可為 nil)
//
// 回傳:
//
//	*LMAXLedger: LMAXLedger 實例
//	error: 初始化錯誤
func NewLMAXLedger(accounts map[int64]*domain.Account, w *wal.WAL) (*LMAXLedger, error) {
	ledger := &LMAXLedger{
		accounts: make(map[int64]*domain.Account, len(accounts)),
		wal:      w,
		requests: make(chan *request, 1000), // Buffer 1000
		requestPool: sync.Pool{
			New: func() any {
				return &request{result: make(chan error, 1)}
			},
		},
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
	for id, account := range accounts {
		ledger.put(id, account.Clone())
	}

	// 在啟動前先恢復資料
	if err := replayAccounts(w, func(a *domain.Account) { ledger.put(a.ID, a) }); err != nil {
		return nil, err
	}
	return ledger, nil
}

// put 只能在 run loop 或啟動前呼叫
func (l *LMAXLedger) put(id int64, account *domain.Account) {
	l.accounts[id] = account
	if id > l.nextID {
		l.nextID = id
	}
}

func (l *LMAXLedger) lookup(id int64) (*domain.Account, bool) {
	account, ok := l.accounts[id]
	return account, ok
}

// Start 啟動核心引擎 (非同步)；ctx 結束後處理完已排入的請求就停止
func (l *LMAXLedger) Start(ctx context.Context) {
	go l.run(ctx)
}

// Wait 等待 run loop 處理完剩餘請求並結束
func (l *LMAXLedger) Wait() {
	<-l.stopped
}

func (l *LMAXLedger) run(ctx context.Context) {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			// 收到關閉信號，把剩下的請求處理完
			close(l.stopping)
			l.drain()
			return
		case req := <-l.requests:
			l.process(req)
		}
	}
}

func (l *LMAXLedger) drain() {
	for {
		select {
		case req := <-l.requests:
			l.process(req)
		default:
			return
		}
	}
}

func (l *LMAXLedger) process(req *request) {
	req.result <- req.run(req.ctx)
}

// submit 放入輸送帶並等待結果
//
// PostRequest(等待) -> Channel -> Run Loop (核心) -> WAL -> Map Update -> Result Channel -> 呼叫端
func (l *LMAXLedger) submit(ctx context.Context, run func(ctx context.Context) error) error {
	req := l.requestPool.Get().(*request)
	req.ctx = ctx
	req.run = run

	select {
	case l.requests <- req:
	case <-l.stopping:
		return ErrLedgerStopped
	}

	select {
	case err := <-req.result:
		req.ctx, req.run = nil, nil
		l.requestPool.Put(req)
		return err
	case <-l.stopped:
		// drain 與送出之間的空窗：結果可能已經在 channel 裡
		select {
		case err := <-req.result:
			return err
		default:
			return ErrLedgerStopped
		}
	}
}

// Execute 在核心 goroutine 上執行 fn；fn 回傳錯誤時所有帳戶變更與 store 寫入都丟棄
//
// 參數:
//
//	ctx: 上下文
//	accountIDs: fn 可以操作的帳戶
//	fn: 要執行的邏輯
//
// 回傳:
//
//	error: fn 的錯誤、帳戶不存在、WAL 寫入失敗或引擎已停止
func (l *LMAXLedger) Execute(ctx context.Context, accountIDs []int64, fn func(ctx context.Context, tx usecase.LedgerTx) error) error {
	ids := domain.SortLockIDs(accountIDs)
	return l.submit(ctx, func(ctx context.Context) error {
		tx, err := stage(ids, l.lookup, l.now())
		if err != nil {
			return err
		}
		ctx, records := withPendingRecords(ctx)
		if err := fn(ctx, tx); err != nil {
			return err
		}
		changed := tx.Changed()
		// 1. 寫入 WAL (Critical Path)
		if err := writeJournal(l.wal, journalOpCommit, changed, records); err != nil {
			return err
		}
		// 2. 更新 State
		for _, account := range changed {
			l.accounts[account.ID] = account
		}
		records.commit()
		return nil
	})
}

// Deposit 存款，回傳新餘額
func (l *LMAXLedger) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.Execute(ctx, []int64{accountID}, func(_ context.Context, tx usecase.LedgerTx) error {
		var err error
		balance, err = tx.Deposit(accountID, amount)
		return err
	})
	return balance, err
}

// Withdraw 提款，回傳新餘額
func (l *LMAXLedger) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.Execute(ctx, []int64{accountID}, func(_ context.Context, tx usecase.LedgerTx) error {
		var err error
		balance, err = tx.Withdraw(accountID, amount)
		return err
	})
	return balance, err
}

// Transfer 轉帳
func (l *LMAXLedger) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) error {
	if fromID == toID {
		return domain.ErrSameAccountTransaction
	}
	return l.Execute(ctx, []int64{fromID, toID}, func(_ context.Context, tx usecase.LedgerTx) error {
		return tx.Transfer(fromID, toID, amount)
	})
}

// OpenAccount 建立帳戶，account.ID 為 0 時分配新帳號並寫回 account
func (l *LMAXLedger) OpenAccount(ctx context.Context, account *domain.Account) error {
	return l.submit(ctx, func(context.Context) error {
		stored := account.Clone()
		if stored.ID == 0 {
			stored.ID = l.nextID + 1
		} else if _, ok := l.accounts[stored.ID]; ok {
			return domain.ErrAccountAlreadyExists
		}
		if err := writeJournal(l.wal, journalOpOpen, []*domain.Account{stored}, nil); err != nil {
			return err
		}
		l.put(stored.ID, stored)
		account.ID = stored.ID
		return nil
	})
}

// GetAccount 取得帳戶快照
func (l *LMAXLedger) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var out *domain.Account
	err := l.submit(ctx, func(context.Context) error {
		account, ok := l.accounts[accountID]
		if !ok {
			return domain.ErrAccountNotFound
		}
		out = account.Clone()
		return nil
	})
	return out, err
}

// LoadAllAccounts 載入系統所有帳戶資料的快照
func (l *LMAXLedger) LoadAllAccounts(ctx context.Context) (map[int64]*domain.Account, error) {
	var out map[int64]*domain.Account
	err := l.submit(ctx, func(context.Context) error {
		out = make(map[int64]*domain.Account, len(l.accounts))
		for id, account := range l.accounts {
			out[id] = account.Clone()
		}
		return nil
	})
	return out, err
}

var _ usecase.Ledger = (*LMAXLedger)(nil)
