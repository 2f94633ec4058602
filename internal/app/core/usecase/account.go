package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// AccountService 帳戶的開立、查詢與狀態管理
type AccountService struct {
	ledger   Ledger
	loans    LoanRepository
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewAccountService(deps Dependencies) *AccountService {
	deps = deps.withDefaults()
	return &AccountService{
		ledger:   deps.Ledger,
		loans:    deps.Loans,
		notifier: deps.Notifier,
		logger:   deps.Logger.Named("account"),
		now:      deps.Clock,
	}
}

// Open 開戶，餘額為零、狀態為 ACTIVE
//
// 客戶只能替自己開戶，行員可以替任何客戶開戶。
func (s *AccountService) Open(ctx context.Context, actor domain.Actor, customerID int64, accountType domain.AccountType) (*domain.Account, error) {
	if !accountType.IsValid() {
		return nil, domain.ErrInvalidAccountType
	}
	if !actor.IsEmployee() && actor.ID != customerID {
		return nil, domain.ErrAccessDenied
	}

	account := domain.NewAccount(0, customerID, accountType, s.now())
	if err := s.ledger.OpenAccount(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("account opened",
		zap.Int64("account_id", account.ID),
		zap.Int64("customer_id", customerID),
		zap.String("type", string(accountType)))
	s.notifier.Notify(ctx, customerID, domain.NotificationAccount,
		fmt.Sprintf("%s account %d has been opened", accountType, account.ID))
	return account, nil
}

// Get 取得帳戶快照
func (s *AccountService) Get(ctx context.Context, actor domain.Actor, accountID int64) (*domain.Account, error) {
	account, err := s.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}
	return account, nil
}

// SetStatus 行員啟用或停用帳戶；結清請使用 Close
func (s *AccountService) SetStatus(ctx context.Context, actor domain.Actor, accountID int64, status domain.AccountStatus) (*domain.Account, error) {
	if !actor.IsEmployee() {
		return nil, domain.ErrAccessDenied
	}
	if status != domain.AccountStatusActive && status != domain.AccountStatusInactive {
		return nil, domain.ErrInvalidAccountStatus
	}
	return s.changeStatus(ctx, accountID, status, nil)
}

// Close 結清帳戶
//
// 餘額必須剛好為零，且帳戶上沒有未結束的貸款。
func (s *AccountService) Close(ctx context.Context, actor domain.Actor, accountID int64) (*domain.Account, error) {
	account, err := s.Get(ctx, actor, accountID)
	if err != nil {
		return nil, err
	}
	closed, err := s.changeStatus(ctx, account.ID, domain.AccountStatusClosed, func(ctx context.Context) error {
		loans, err := s.loans.FindByAccount(ctx, accountID)
		if err != nil {
			return fmt.Errorf("load loans of account %d: %w", accountID, err)
		}
		for _, loan := range loans {
			if loan.Status.IsActive() {
				return domain.ErrAccountHasActiveLoans
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, closed.CustomerID, domain.NotificationAccount,
		fmt.Sprintf("Account %d has been closed", closed.ID))
	return closed, nil
}

func (s *AccountService) changeStatus(ctx context.Context, accountID int64, status domain.AccountStatus, guard func(context.Context) error) (*domain.Account, error) {
	var account *domain.Account
	err := s.ledger.Execute(ctx, []int64{accountID}, func(ctx context.Context, tx LedgerTx) error {
		if guard != nil {
			if err := guard(ctx); err != nil {
				return err
			}
		}
		if err := tx.SetStatus(accountID, status); err != nil {
			return err
		}
		var err error
		account, err = tx.Account(accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account status changed",
		zap.Int64("account_id", accountID),
		zap.String("status", string(status)))
	return account, nil
}
