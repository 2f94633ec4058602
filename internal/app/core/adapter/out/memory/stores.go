package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/wal"
)

// pendingRecords 是 Execute 期間暫存的交易與貸款寫入
//
// 帳本提交時和帳戶變更寫進同一行 WAL 後才套用到 store；fn 失敗時整批丟棄。
type pendingRecords struct {
	transactions []*domain.Transaction
	loans        []*domain.Loan
	apply        []func()
}

type pendingKey struct{}

func withPendingRecords(ctx context.Context) (context.Context, *pendingRecords) {
	records := &pendingRecords{}
	return context.WithValue(ctx, pendingKey{}, records), records
}

func pendingFrom(ctx context.Context) (*pendingRecords, bool) {
	records, ok := ctx.Value(pendingKey{}).(*pendingRecords)
	return records, ok
}

// commit 套用到 store，只能在 WAL 寫入成功後呼叫
func (p *pendingRecords) commit() {
	for _, apply := range p.apply {
		apply()
	}
}

// RecoverStores 由 WAL 重播交易與貸款紀錄，之後 Execute 以外的寫入也會落地到同一個 WAL
//
// 參數:
//
//	w: 帳本使用的同一個 Write-Ahead Log
//
// 回傳:
//
//	*TransactionStore: 交易紀錄
//	*LoanStore: 貸款
//	error: WAL 重播失敗
func RecoverStores(w *wal.WAL) (*TransactionStore, *LoanStore, error) {
	transactions, loans := NewTransactionStore(), NewLoanStore()
	transactions.wal, loans.wal = w, w
	err := replayJournal(w, func(entry *journalEntry) {
		for _, r := range entry.Transactions {
			transactions.put(r.toDomain())
		}
		for _, r := range entry.Loans {
			loans.put(r.toDomain())
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return transactions, loans, nil
}

// TransactionStore 記憶體中的交易紀錄，存取時一律複製
type TransactionStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*domain.Transaction
	order []uuid.UUID
	// wal 為 nil 時不落地
	wal *wal.WAL
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{byID: make(map[uuid.UUID]*domain.Transaction)}
}

// Save 在帳本的 Execute 內呼叫時，跟著帳戶變更一起提交
func (s *TransactionStore) Save(ctx context.Context, tran *domain.Transaction) error {
	cp := tran.Clone()
	if records, ok := pendingFrom(ctx); ok {
		records.transactions = append(records.transactions, cp)
		records.apply = append(records.apply, func() { s.put(cp) })
		return nil
	}
	if err := writeJournal(s.wal, journalOpRecords, nil, &pendingRecords{transactions: []*domain.Transaction{cp}}); err != nil {
		return err
	}
	s.put(cp)
	return nil
}

func (s *TransactionStore) put(tran *domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[tran.ID]; !ok {
		s.order = append(s.order, tran.ID)
	}
	s.byID[tran.ID] = tran
}

func (s *TransactionStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tran, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tran.Clone(), nil
}

func (s *TransactionStore) FindByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.Transaction, error) {
	return s.filter(func(t *domain.Transaction) bool {
		return t.Touches(accountID) && !t.CreatedAt.Before(from) && t.CreatedAt.Before(to)
	}), nil
}

func (s *TransactionStore) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Transaction, error) {
	return s.filter(func(t *domain.Transaction) bool {
		return t.LoanID != nil && *t.LoanID == loanID
	}), nil
}

func (s *TransactionStore) filter(match func(*domain.Transaction) bool) []*domain.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Transaction, 0)
	for _, id := range s.order {
		if t := s.byID[id]; match(t) {
			out = append(out, t.Clone())
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.Transaction) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// LoanStore 記憶體中的貸款
type LoanStore struct {
	mu    sync.RWMutex
	loans map[uuid.UUID]*domain.Loan
	wal   *wal.WAL
}

func NewLoanStore() *LoanStore {
	return &LoanStore{loans: make(map[uuid.UUID]*domain.Loan)}
}

// Save 在帳本的 Execute 內呼叫時，跟著帳戶變更一起提交
func (s *LoanStore) Save(ctx context.Context, loan *domain.Loan) error {
	cp := loan.Clone()
	if records, ok := pendingFrom(ctx); ok {
		records.loans = append(records.loans, cp)
		records.apply = append(records.apply, func() { s.put(cp) })
		return nil
	}
	if err := writeJournal(s.wal, journalOpRecords, nil, &pendingRecords{loans: []*domain.Loan{cp}}); err != nil {
		return err
	}
	s.put(cp)
	return nil
}

func (s *LoanStore) put(loan *domain.Loan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans[loan.ID] = loan
}

func (s *LoanStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loan, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}
	return loan.Clone(), nil
}

func (s *LoanStore) FindByAccount(ctx context.Context, accountID int64) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Loan, 0)
	for _, loan := range s.loans {
		if loan.AccountID == accountID {
			out = append(out, loan.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *domain.Loan) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

var (
	_ usecase.TransactionRepository = (*TransactionStore)(nil)
	_ usecase.LoanRepository        = (*LoanStore)(nil)
)
