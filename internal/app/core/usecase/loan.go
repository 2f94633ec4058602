package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/pkg/keymutex"
)

// LoanService 貸款生命週期：申請、核准、撥款、還款與即時攤還計算
//
// 未償還金額每次都由交易紀錄重新推導，不會寫回任何地方。
// 同一筆貸款的狀態變更以 loan ID 互斥；月份與到期日一律以 location 時區計算。
type LoanService struct {
	ledger       Ledger
	loans        LoanRepository
	transactions TransactionRepository
	processor    *Processor
	notifier     Notifier
	recorder     Recorder
	logger       *zap.Logger
	location     *time.Location
	clock        func() time.Time
	locks        *keymutex.KeyMutex[string]
}

func NewLoanService(deps Dependencies, processor *Processor) *LoanService {
	deps = deps.withDefaults()
	return &LoanService{
		ledger:       deps.Ledger,
		loans:        deps.Loans,
		transactions: deps.Transactions,
		processor:    processor,
		notifier:     deps.Notifier,
		recorder:     deps.Recorder,
		logger:       deps.Logger.Named("loan"),
		location:     deps.Location,
		clock:        deps.Clock,
		locks:        keymutex.New[string](),
	}
}

func (s *LoanService) now() time.Time {
	return s.clock().In(s.location)
}

// find 讀取貸款並轉到銀行時區
func (s *LoanService) find(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return loan.In(s.location), nil
}

func (s *LoanService) findByAccount(ctx context.Context, accountID int64) ([]*domain.Loan, error) {
	loans, err := s.loans.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	for _, loan := range loans {
		loan.In(s.location)
	}
	return loans, nil
}

// Apply 申請貸款
//
// 帳戶上任何一筆既有貸款逾期，就不允許再申請 (ErrOverdueLoanExists)。
// 檢查與存檔都在帳戶鎖內，和 AccountService.Close 互斥。
func (s *LoanService) Apply(ctx context.Context, actor domain.Actor, accountID int64, principal, annualRate decimal.Decimal, tenureMonths int) (*domain.Loan, error) {
	now := s.now()
	loan, err := domain.NewLoan(accountID, principal, annualRate, tenureMonths, now)
	if err != nil {
		return nil, err
	}
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}

	err = s.ledger.Execute(ctx, []int64{accountID}, func(ctx context.Context, tx LedgerTx) error {
		if err := requireActive(tx, accountID); err != nil {
			return err
		}
		existing, err := s.findByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("load loans of account %d: %w", accountID, err)
		}
		for _, l := range existing {
			if domain.IsOverdue(l, now) {
				return fmt.Errorf("%w: loan %s", domain.ErrOverdueLoanExists, l.ID)
			}
		}
		return s.loans.Save(ctx, loan)
	})
	if err != nil {
		return nil, err
	}
	s.recorder.LoanTransitioned(loan.Status)
	s.logger.Info("loan applied",
		zap.Stringer("loan_id", loan.ID),
		zap.Int64("account_id", accountID),
		zap.String("principal", principal.String()))
	return loan, nil
}

// Approve 行員核准貸款
func (s *LoanService) Approve(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	return s.review(ctx, actor, loanID, func(loan *domain.Loan, now time.Time) error {
		return loan.Approve(actor.ID, now)
	})
}

// Reject 行員駁回貸款
func (s *LoanService) Reject(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	return s.review(ctx, actor, loanID, func(loan *domain.Loan, now time.Time) error {
		return loan.Reject(actor.ID, now)
	})
}

// MarkDefaulted 行員將貸款標記為呆帳
func (s *LoanService) MarkDefaulted(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	return s.review(ctx, actor, loanID, func(loan *domain.Loan, now time.Time) error {
		return loan.MarkDefaulted(now)
	})
}

func (s *LoanService) review(ctx context.Context, actor domain.Actor, loanID uuid.UUID, transition func(*domain.Loan, time.Time) error) (*domain.Loan, error) {
	if !actor.IsEmployee() {
		return nil, domain.ErrAccessDenied
	}
	unlock := s.locks.Lock(loanID.String())
	defer unlock()

	loan, err := s.find(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := transition(loan, s.now()); err != nil {
		return nil, err
	}
	if err := s.loans.Save(ctx, loan); err != nil {
		return nil, err
	}
	s.recorder.LoanTransitioned(loan.Status)
	s.notifyOwner(ctx, loan.AccountID, domain.NotificationLoanStatus,
		fmt.Sprintf("Loan %s is now %s", loan.ID, loan.Status))
	return loan, nil
}

// Disburse 行員撥款：APPROVED -> DISBURSED，入帳到貸款帳戶 (不受每日上限約束)
func (s *LoanService) Disburse(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Transaction, error) {
	if !actor.IsEmployee() {
		return nil, domain.ErrAccessDenied
	}
	unlock := s.locks.Lock(loanID.String())
	defer unlock()

	loan, err := s.find(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusApproved {
		return nil, domain.ErrInvalidLoanState
	}

	now := s.now()
	tran, err := s.processor.disburse(ctx, loan, now, func(ctx context.Context, tran *domain.Transaction) error {
		if err := loan.Disburse(now); err != nil {
			return err
		}
		loan.AttachTransaction(tran.ID)
		return s.loans.Save(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.LoanTransitioned(loan.Status)
	s.notifyOwner(ctx, loan.AccountID, domain.NotificationLoanDisbursement,
		fmt.Sprintf("Loan %s of %s has been disbursed to account %d",
			loan.ID, loan.Principal.StringFixed(domain.MoneyScale), loan.AccountID))
	return tran, nil
}

// Repay 還款
//
// 前置條件錯誤：金額 <= 0 或超過 2 位小數 (ErrInvalidAmount)、貸款非 DISBURSED (ErrLoanNotDisbursed)。
// 餘額不足或溢繳會得到 FAILED 的交易。還款後未償還金額低於 1 時結清貸款，
// 並改發「貸款已結清」通知。
func (s *LoanService) Repay(ctx context.Context, actor domain.Actor, loanID uuid.UUID, amount decimal.Decimal) (*domain.Transaction, error) {
	if !domain.IsValidAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	unlock := s.locks.Lock(loanID.String())
	defer unlock()

	loan, err := s.find(ctx, loanID)
	if err != nil {
		return nil, err
	}
	account, err := s.ledger.GetAccount(ctx, loan.AccountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}
	if loan.Status != domain.LoanStatusDisbursed {
		return nil, domain.ErrLoanNotDisbursed
	}

	now := s.now()
	repayments, err := s.transactions.FindByLoan(ctx, loan.ID)
	if err != nil {
		return nil, fmt.Errorf("load repayments of loan %s: %w", loan.ID, err)
	}
	outstanding, err := domain.OutstandingAmount(loan, repayments, now)
	if err != nil {
		return nil, err
	}

	closed := false
	tran, err := s.processor.repay(ctx, loan, amount, outstanding, now, func(ctx context.Context, tran *domain.Transaction) error {
		loan.AttachTransaction(tran.ID)
		if tran.IsSuccess() {
			remaining, err := domain.OutstandingAmount(loan, append(repayments, tran), now)
			if err != nil {
				return err
			}
			if remaining.LessThan(domain.ClosingThreshold) {
				if err := loan.Close(now); err != nil {
					return err
				}
				closed = true
			}
		}
		return s.loans.Save(ctx, loan)
	})
	if err != nil {
		return nil, err
	}

	switch {
	case closed:
		s.recorder.LoanTransitioned(loan.Status)
		s.notifier.Notify(ctx, account.CustomerID, domain.NotificationLoanClosed,
			fmt.Sprintf("Loan %s has been fully repaid", loan.ID))
	case tran.IsSuccess():
		s.notifier.Notify(ctx, account.CustomerID, domain.NotificationLoanRepayment,
			fmt.Sprintf("Repayment of %s received for loan %s",
				amount.StringFixed(domain.MoneyScale), loan.ID))
	}
	return tran, nil
}

// Summary 貸款即時資訊 (EMI、未償還金額、到期日、是否逾期)
func (s *LoanService) Summary(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.LoanSummary, error) {
	loan, err := s.authorizedLoan(ctx, actor, loanID)
	if err != nil {
		return nil, err
	}
	repayments, err := s.transactions.FindByLoan(ctx, loan.ID)
	if err != nil {
		return nil, err
	}
	return domain.Summarize(loan, repayments, s.now())
}

// OutstandingAmount 截至目前的未償還金額
func (s *LoanService) OutstandingAmount(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (decimal.Decimal, error) {
	summary, err := s.Summary(ctx, actor, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.Outstanding, nil
}

// IsOverdue 貸款是否逾期
func (s *LoanService) IsOverdue(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (bool, error) {
	loan, err := s.authorizedLoan(ctx, actor, loanID)
	if err != nil {
		return false, err
	}
	return domain.IsOverdue(loan, s.now()), nil
}

// ListByAccount 帳戶的所有貸款
func (s *LoanService) ListByAccount(ctx context.Context, actor domain.Actor, accountID int64) ([]*domain.Loan, error) {
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}
	return s.findByAccount(ctx, accountID)
}

func (s *LoanService) authorizedLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := s.find(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if actor.IsEmployee() {
		return loan, nil
	}
	account, err := s.ledger.GetAccount(ctx, loan.AccountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}
	return loan, nil
}

func (s *LoanService) notifyOwner(ctx context.Context, accountID int64, category domain.NotificationCategory, message string) {
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		s.logger.Warn("skip notification, account lookup failed", zap.Int64("account_id", accountID), zap.Error(err))
		return
	}
	s.notifier.Notify(ctx, account.CustomerID, category, message)
}
