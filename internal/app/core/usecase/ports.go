package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// TransactionRepository 交易紀錄的存取
//
// 實作必須保證同一個 ctx (同一個邏輯操作) 內讀得到自己先前的寫入。
type TransactionRepository interface {
	Save(ctx context.Context, tran *domain.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// FindByAccount 回傳涉及 accountID 且 from <= CreatedAt < to 的交易，依時間排序
	FindByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.Transaction, error)
	// FindByLoan 回傳關聯到 loanID 的所有交易，依時間排序
	FindByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Transaction, error)
}

// LoanRepository 貸款的存取
type LoanRepository interface {
	Save(ctx context.Context, loan *domain.Loan) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	FindByAccount(ctx context.Context, accountID int64) ([]*domain.Loan, error)
}

// Notifier 客戶通知 (fire-and-forget，送達與否不影響交易)
type Notifier interface {
	Notify(ctx context.Context, customerID int64, category domain.NotificationCategory, message string)
}

// Recorder 業務指標
type Recorder interface {
	TransactionRecorded(tran *domain.Transaction)
	LoanTransitioned(status domain.LoanStatus)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, int64, domain.NotificationCategory, string) {}

type nopRecorder struct{}

func (nopRecorder) TransactionRecorded(*domain.Transaction) {}
func (nopRecorder) LoanTransitioned(domain.LoanStatus)      {}
