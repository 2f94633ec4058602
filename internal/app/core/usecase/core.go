package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// Dependencies 核心業務邏輯需要的外部元件
//
// Notifier、Recorder、Logger、Clock、Location 可省略，會套用預設值。
type Dependencies struct {
	Ledger       Ledger
	Transactions TransactionRepository
	Loans        LoanRepository
	Notifier     Notifier
	Recorder     Recorder
	Logger       *zap.Logger
	// Clock 目前時間，測試時可替換
	Clock func() time.Time
	// Location 計算「同一天」的時區
	Location *time.Location
	// DailyLimit 每日上限，零值代表 domain.DailyTransactionLimit
	DailyLimit decimal.Decimal
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if !d.DailyLimit.IsPositive() {
		d.DailyLimit = domain.DailyTransactionLimit
	}
	return d
}

// CoreUseCase 是核心業務邏輯層，給 inbound adapter 使用的單一入口
type CoreUseCase struct {
	Accounts  *AccountService
	Processor *Processor
	Loans     *LoanService
}

func NewCoreUseCase(deps Dependencies) *CoreUseCase {
	deps = deps.withDefaults()
	processor := NewProcessor(deps)
	return &CoreUseCase{
		Accounts:  NewAccountService(deps),
		Processor: processor,
		Loans:     NewLoanService(deps, processor),
	}
}

// OpenAccount 開戶
func (c *CoreUseCase) OpenAccount(ctx context.Context, actor domain.Actor, customerID int64, accountType domain.AccountType) (*domain.Account, error) {
	return c.Accounts.Open(ctx, actor, customerID, accountType)
}

// GetAccount 取得帳戶
func (c *CoreUseCase) GetAccount(ctx context.Context, actor domain.Actor, accountID int64) (*domain.Account, error) {
	return c.Accounts.Get(ctx, actor, accountID)
}

// CloseAccount 結清帳戶
func (c *CoreUseCase) CloseAccount(ctx context.Context, actor domain.Actor, accountID int64) (*domain.Account, error) {
	return c.Accounts.Close(ctx, actor, accountID)
}

// Deposit 存款
func (c *CoreUseCase) Deposit(ctx context.Context, actor domain.Actor, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	return c.Processor.Deposit(ctx, actor, accountID, amount)
}

// Withdraw 提款
func (c *CoreUseCase) Withdraw(ctx context.Context, actor domain.Actor, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	return c.Processor.Withdraw(ctx, actor, accountID, amount)
}

// Transfer 轉帳
func (c *CoreUseCase) Transfer(ctx context.Context, actor domain.Actor, fromID, toID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	return c.Processor.Transfer(ctx, actor, fromID, toID, amount)
}

// ApplyLoan 申請貸款
func (c *CoreUseCase) ApplyLoan(ctx context.Context, actor domain.Actor, accountID int64, principal, annualRate decimal.Decimal, tenureMonths int) (*domain.Loan, error) {
	return c.Loans.Apply(ctx, actor, accountID, principal, annualRate, tenureMonths)
}

// ApproveLoan 核准貸款
func (c *CoreUseCase) ApproveLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	return c.Loans.Approve(ctx, actor, loanID)
}

// RejectLoan 駁回貸款
func (c *CoreUseCase) RejectLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	return c.Loans.Reject(ctx, actor, loanID)
}

// DisburseLoan 撥款
func (c *CoreUseCase) DisburseLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Transaction, error) {
	return c.Loans.Disburse(ctx, actor, loanID)
}

// RepayLoan 還款
func (c *CoreUseCase) RepayLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	return c.Loans.Repay(ctx, actor, loanID, amount)
}

// GetLoanSummary 貸款即時資訊
func (c *CoreUseCase) GetLoanSummary(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.LoanSummary, error) {
	return c.Loans.Summary(ctx, actor, loanID)
}
