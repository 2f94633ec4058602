package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// direction 每日上限的統計方向
type direction int

const (
	inbound direction = iota
	outbound
)

// Processor 將存款、提款、轉帳包裝成有紀錄的交易，並在變更 Ledger 前檢查每日上限
//
// 前置條件錯誤直接回傳 error；金額相關的失敗 (餘額不足、超過上限) 一律
// 存成 FAILED 的交易並回傳，error 為 nil。
type Processor struct {
	ledger       Ledger
	transactions TransactionRepository
	notifier     Notifier
	recorder     Recorder
	logger       *zap.Logger
	now          func() time.Time
	location     *time.Location
	dailyLimit   decimal.Decimal
}

func NewProcessor(deps Dependencies) *Processor {
	deps = deps.withDefaults()
	return &Processor{
		ledger:       deps.Ledger,
		transactions: deps.Transactions,
		notifier:     deps.Notifier,
		recorder:     deps.Recorder,
		logger:       deps.Logger.Named("processor"),
		now:          deps.Clock,
		location:     deps.Location,
		dailyLimit:   deps.DailyLimit,
	}
}

// Deposit 存款
func (p *Processor) Deposit(ctx context.Context, actor domain.Actor, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if !domain.IsValidAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	account, err := p.activeAccount(ctx, actor, accountID)
	if err != nil {
		return nil, err
	}

	var (
		tran    *domain.Transaction
		balance decimal.Decimal
	)
	err = p.ledger.Execute(ctx, []int64{accountID}, func(ctx context.Context, tx LedgerTx) error {
		if err := requireActive(tx, accountID); err != nil {
			return err
		}
		now := p.now()
		tran = domain.NewTransaction(domain.TransactionTypeDeposit, amount, now).To(accountID)

		exceeded, err := p.exceedsDailyLimit(ctx, accountID, amount, inbound, now)
		if err != nil {
			return err
		}
		if exceeded {
			tran.MarkFailed(domain.ReasonDailyDepositLimitExceeded)
			return p.transactions.Save(ctx, tran)
		}

		balance, err = tx.Deposit(accountID, amount)
		if err := settle(tran, err); err != nil {
			return err
		}
		return p.transactions.Save(ctx, tran)
	})
	if err != nil {
		return nil, err
	}

	p.recorded(tran)
	if tran.IsSuccess() {
		p.notifier.Notify(ctx, account.CustomerID, domain.NotificationDeposit,
			fmt.Sprintf("%s deposited to account %d. Available balance: %s",
				amount.StringFixed(domain.MoneyScale), accountID, balance.StringFixed(domain.MoneyScale)))
	}
	return tran, nil
}

// Withdraw 提款
func (p *Processor) Withdraw(ctx context.Context, actor domain.Actor, accountID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if !domain.IsValidAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	account, err := p.activeAccount(ctx, actor, accountID)
	if err != nil {
		return nil, err
	}

	var (
		tran    *domain.Transaction
		balance decimal.Decimal
	)
	err = p.ledger.Execute(ctx, []int64{accountID}, func(ctx context.Context, tx LedgerTx) error {
		if err := requireActive(tx, accountID); err != nil {
			return err
		}
		now := p.now()
		tran = domain.NewTransaction(domain.TransactionTypeWithdrawal, amount, now).From(accountID)

		exceeded, err := p.exceedsDailyLimit(ctx, accountID, amount, outbound, now)
		if err != nil {
			return err
		}
		if exceeded {
			tran.MarkFailed(domain.ReasonDailyWithdrawLimitExceeded)
			return p.transactions.Save(ctx, tran)
		}

		balance, err = tx.Withdraw(accountID, amount)
		if err := settle(tran, err); err != nil {
			return err
		}
		return p.transactions.Save(ctx, tran)
	})
	if err != nil {
		return nil, err
	}

	p.recorded(tran)
	if tran.IsSuccess() {
		p.notifier.Notify(ctx, account.CustomerID, domain.NotificationWithdrawal,
			fmt.Sprintf("%s withdrawn from account %d. Available balance: %s",
				amount.StringFixed(domain.MoneyScale), accountID, balance.StringFixed(domain.MoneyScale)))
	}
	return tran, nil
}

// Transfer 轉帳
//
// 兩個帳戶都必須是 ACTIVE，才會進行每日上限與餘額檢查。
// 轉出端以轉出總額檢查，轉入端以轉入總額檢查。
func (p *Processor) Transfer(ctx context.Context, actor domain.Actor, fromID, toID int64, amount decimal.Decimal) (*domain.Transaction, error) {
	if fromID == toID {
		return nil, domain.ErrSameAccountTransaction
	}
	if !domain.IsValidAmount(amount) {
		return nil, domain.ErrInvalidAmount
	}
	from, err := p.activeAccount(ctx, actor, fromID)
	if err != nil {
		return nil, err
	}
	to, err := p.ledger.GetAccount(ctx, toID)
	if err != nil {
		return nil, err
	}
	if !to.IsActive() {
		return nil, domain.ErrAccountNotActive
	}

	var tran *domain.Transaction
	err = p.ledger.Execute(ctx, []int64{fromID, toID}, func(ctx context.Context, tx LedgerTx) error {
		if err := requireActive(tx, fromID); err != nil {
			return err
		}
		if err := requireActive(tx, toID); err != nil {
			return err
		}
		now := p.now()
		tran = domain.NewTransaction(domain.TransactionTypeTransfer, amount, now).From(fromID).To(toID)

		exceeded, err := p.exceedsDailyLimit(ctx, fromID, amount, outbound, now)
		if err != nil {
			return err
		}
		if exceeded {
			tran.MarkFailed(domain.ReasonDailyWithdrawLimitExceeded)
			return p.transactions.Save(ctx, tran)
		}
		exceeded, err = p.exceedsDailyLimit(ctx, toID, amount, inbound, now)
		if err != nil {
			return err
		}
		if exceeded {
			tran.MarkFailed(domain.ReasonDailyDepositLimitExceeded)
			return p.transactions.Save(ctx, tran)
		}

		if err := settle(tran, tx.Transfer(fromID, toID, amount)); err != nil {
			return err
		}
		return p.transactions.Save(ctx, tran)
	})
	if err != nil {
		return nil, err
	}

	p.recorded(tran)
	if tran.IsSuccess() {
		formatted := amount.StringFixed(domain.MoneyScale)
		p.notifier.Notify(ctx, from.CustomerID, domain.NotificationTransfer,
			fmt.Sprintf("%s transferred from account %d to account %d", formatted, fromID, toID))
		p.notifier.Notify(ctx, to.CustomerID, domain.NotificationTransfer,
			fmt.Sprintf("%s received in account %d from account %d", formatted, toID, fromID))
	}
	return tran, nil
}

// GetTransaction 查詢單筆交易
func (p *Processor) GetTransaction(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Transaction, error) {
	tran, err := p.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsEmployee() {
		return tran, nil
	}
	for _, accountID := range tran.GetLockIDs() {
		account, err := p.ledger.GetAccount(ctx, accountID)
		if err == nil && actor.CanAccess(account) {
			return tran, nil
		}
	}
	return nil, domain.ErrAccessDenied
}

// ListAccountTransactions 查詢帳戶在 [from, to) 期間的交易
func (p *Processor) ListAccountTransactions(ctx context.Context, actor domain.Actor, accountID int64, from, to time.Time) ([]*domain.Transaction, error) {
	account, err := p.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}
	return p.transactions.FindByAccount(ctx, accountID, from, to)
}

// loanSettler 在入帳或扣款的同一個 Execute 內更新貸款
//
// 回傳錯誤時帳戶變更與交易紀錄一併丟棄。
type loanSettler func(ctx context.Context, tran *domain.Transaction) error

// disburse 貸款撥款：直接入帳，不受每日上限約束
func (p *Processor) disburse(ctx context.Context, loan *domain.Loan, now time.Time, onSettled loanSettler) (*domain.Transaction, error) {
	var tran *domain.Transaction
	err := p.ledger.Execute(ctx, []int64{loan.AccountID}, func(ctx context.Context, tx LedgerTx) error {
		if err := requireActive(tx, loan.AccountID); err != nil {
			return err
		}
		tran = domain.NewTransaction(domain.TransactionTypeLoanDisbursement, loan.Principal, now).
			To(loan.AccountID).
			ForLoan(loan.ID)
		if _, err := tx.Deposit(loan.AccountID, loan.Principal); err != nil {
			return err
		}
		tran.MarkSucceeded()
		if err := onSettled(ctx, tran); err != nil {
			return err
		}
		return p.transactions.Save(ctx, tran)
	})
	if err != nil {
		return nil, err
	}
	p.recorded(tran)
	return tran, nil
}

// repay 貸款還款：從貸款帳戶扣款，不受每日上限約束
//
// 餘額不足優先於溢繳判斷；兩者都會產生 FAILED 的交易。
func (p *Processor) repay(ctx context.Context, loan *domain.Loan, amount, outstanding decimal.Decimal, now time.Time, onSettled loanSettler) (*domain.Transaction, error) {
	var tran *domain.Transaction
	err := p.ledger.Execute(ctx, []int64{loan.AccountID}, func(ctx context.Context, tx LedgerTx) error {
		account, err := tx.Account(loan.AccountID)
		if err != nil {
			return err
		}
		if !account.IsActive() {
			return domain.ErrAccountNotActive
		}
		tran = domain.NewTransaction(domain.TransactionTypeLoanRepayment, amount, now).
			From(loan.AccountID).
			ForLoan(loan.ID)

		switch {
		case account.Balance.LessThan(amount):
			tran.MarkFailed(domain.ReasonInsufficientBalance)
		case amount.GreaterThan(outstanding):
			tran.MarkFailed(domain.ReasonOverpayment)
		default:
			_, err := tx.Withdraw(loan.AccountID, amount)
			if err := settle(tran, err); err != nil {
				return err
			}
		}
		if err := onSettled(ctx, tran); err != nil {
			return err
		}
		return p.transactions.Save(ctx, tran)
	})
	if err != nil {
		return nil, err
	}
	p.recorded(tran)
	return tran, nil
}

// exceedsDailyLimit 當日同方向成功交易總額加上本次金額是否超過上限
//
// 必須在帳戶鎖內呼叫，讀到的才是一致的當日紀錄。now 必須是交易本身的時間。
func (p *Processor) exceedsDailyLimit(ctx context.Context, accountID int64, amount decimal.Decimal, dir direction, now time.Time) (bool, error) {
	start := domain.StartOfDay(now, p.location)
	end := start.AddDate(0, 0, 1)
	history, err := p.transactions.FindByAccount(ctx, accountID, start, end)
	if err != nil {
		return false, fmt.Errorf("load daily transactions of account %d: %w", accountID, err)
	}

	total := amount
	for _, tran := range history {
		switch {
		case dir == inbound && tran.CountsTowardDailyCredit(accountID):
			total = total.Add(tran.Amount)
		case dir == outbound && tran.CountsTowardDailyDebit(accountID):
			total = total.Add(tran.Amount)
		}
	}
	return total.GreaterThan(p.dailyLimit), nil
}

// activeAccount 前置條件：帳戶存在、呼叫者有權限、帳戶為 ACTIVE
func (p *Processor) activeAccount(ctx context.Context, actor domain.Actor, accountID int64) (*domain.Account, error) {
	account, err := p.ledger.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(account) {
		return nil, domain.ErrAccessDenied
	}
	if !account.IsActive() {
		return nil, domain.ErrAccountNotActive
	}
	return account, nil
}

func (p *Processor) recorded(tran *domain.Transaction) {
	p.recorder.TransactionRecorded(tran)
	fields := []zap.Field{
		zap.Stringer("transaction_id", tran.ID),
		zap.String("type", string(tran.Type)),
		zap.String("status", string(tran.Status)),
		zap.String("amount", tran.Amount.String()),
	}
	if tran.IsSuccess() {
		p.logger.Debug("transaction recorded", fields...)
		return
	}
	p.logger.Info("transaction rejected", append(fields, zap.String("reason", tran.FailureReason))...)
}

// settle 依 Ledger 結果決定交易狀態；非金額相關的錯誤原樣回傳
func settle(tran *domain.Transaction, ledgerErr error) error {
	if ledgerErr == nil {
		tran.MarkSucceeded()
		return nil
	}
	reason, ok := domain.FailureReasonOf(ledgerErr)
	if !ok {
		return ledgerErr
	}
	tran.MarkFailed(reason)
	return nil
}

func requireActive(tx LedgerTx, accountID int64) error {
	account, err := tx.Account(accountID)
	if err != nil {
		return err
	}
	if !account.IsActive() {
		return domain.ErrAccountNotActive
	}
	return nil
}
