package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
)

func TestProcessor_DepositDailyLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)

	for i := 0; i < 9; i++ {
		tran, err := h.core.Deposit(ctx, alice, account.ID, money("5000"))
		require.NoError(t, err)
		require.True(t, tran.IsSuccess())
	}

	rejected, err := h.core.Deposit(ctx, alice, account.ID, money("5001"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, rejected.Status)
	assert.Equal(t, domain.ReasonDailyDepositLimitExceeded, rejected.FailureReason)

	// 剛好等於上限仍然允許
	accepted, err := h.core.Deposit(ctx, alice, account.ID, money("5000"))
	require.NoError(t, err)
	assert.True(t, accepted.IsSuccess())
	assert.True(t, h.balance(t, account.ID).Equal(money("50000")))

	// 失敗的交易也會留下紀錄
	stored, err := h.transactions.FindByID(ctx, rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)

	// 隔天重新計算
	h.clock.AddDate(0, 0, 1)
	next, err := h.core.Deposit(ctx, alice, account.ID, money("5001"))
	require.NoError(t, err)
	assert.True(t, next.IsSuccess())
}

func TestProcessor_WithdrawDailyLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	h.fund(t, account.ID, "50000")
	h.clock.AddDate(0, 0, -2)
	tran, err := h.core.Deposit(ctx, teller, account.ID, money("20000"))
	require.NoError(t, err)
	require.True(t, tran.IsSuccess())
	h.clock.AddDate(0, 0, 2)

	for i := 0; i < 9; i++ {
		tran, err := h.core.Withdraw(ctx, alice, account.ID, money("5000"))
		require.NoError(t, err)
		require.True(t, tran.IsSuccess())
	}
	rejected, err := h.core.Withdraw(ctx, alice, account.ID, money("5001"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonDailyWithdrawLimitExceeded, rejected.FailureReason)

	accepted, err := h.core.Withdraw(ctx, alice, account.ID, money("5000"))
	require.NoError(t, err)
	assert.True(t, accepted.IsSuccess())
	assert.True(t, h.balance(t, account.ID).Equal(money("20000")))
}

func TestProcessor_WithdrawInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	h.fund(t, account.ID, "100")
	h.notifier.Reset()

	tran, err := h.core.Withdraw(ctx, alice, account.ID, money("100.01"))
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, tran.Status)
	assert.Equal(t, domain.ReasonInsufficientBalance, tran.FailureReason)
	assert.True(t, h.balance(t, account.ID).Equal(money("100")))
	assert.Empty(t, h.notifier.Categories(alice.ID))
}

func TestProcessor_RoundTripIsExact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	h.fund(t, account.ID, "0.10")

	_, err := h.core.Withdraw(ctx, alice, account.ID, money("0.07"))
	require.NoError(t, err)
	_, err = h.core.Deposit(ctx, alice, account.ID, money("0.07"))
	require.NoError(t, err)
	assert.Equal(t, "0.10", h.balance(t, account.ID).StringFixed(domain.MoneyScale))
}

func TestProcessor_Preconditions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	other := h.open(t, bob)

	_, err := h.core.Deposit(ctx, alice, account.ID, money("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = h.core.Withdraw(ctx, alice, account.ID, money("-5"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = h.core.Deposit(ctx, alice, 12345, money("1"))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, err = h.core.Deposit(ctx, alice, other.ID, money("1"))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = h.core.Accounts.SetStatus(ctx, teller, account.ID, domain.AccountStatusInactive)
	require.NoError(t, err)
	_, err = h.core.Deposit(ctx, alice, account.ID, money("1"))
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)

	all, err := h.transactions.FindByAccount(ctx, account.ID, time.Time{}, h.clock.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, all, "precondition failures must not be recorded")
}

func TestProcessor_Transfer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	from := h.open(t, alice)
	to := h.open(t, bob)
	h.fund(t, from.ID, "300")
	h.notifier.Reset()

	tran, err := h.core.Transfer(ctx, alice, from.ID, to.ID, money("120.50"))
	require.NoError(t, err)
	require.True(t, tran.IsSuccess())
	assert.Equal(t, domain.TransactionTypeTransfer, tran.Type)
	assert.True(t, h.balance(t, from.ID).Equal(money("179.50")))
	assert.True(t, h.balance(t, to.ID).Equal(money("120.50")))
	assert.Equal(t, []domain.NotificationCategory{domain.NotificationTransfer}, h.notifier.Categories(alice.ID))
	assert.Equal(t, []domain.NotificationCategory{domain.NotificationTransfer}, h.notifier.Categories(bob.ID))

	h.notifier.Reset()
	failed, err := h.core.Transfer(ctx, alice, from.ID, to.ID, money("1000"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonInsufficientBalance, failed.FailureReason)
	assert.True(t, h.balance(t, from.ID).Equal(money("179.50")))
	assert.True(t, h.balance(t, to.ID).Equal(money("120.50")))
	assert.Empty(t, h.notifier.Categories(alice.ID))

	// 客戶不能從別人的帳戶轉出
	_, err = h.core.Transfer(ctx, alice, to.ID, from.ID, money("1"))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestProcessor_TransferSameAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)

	// 即使餘額為零、金額非法或帳戶停用，也先回報同帳戶錯誤
	_, err := h.core.Transfer(ctx, alice, account.ID, account.ID, money("10"))
	assert.ErrorIs(t, err, domain.ErrSameAccountTransaction)
	_, err = h.core.Transfer(ctx, alice, account.ID, account.ID, money("-1"))
	assert.ErrorIs(t, err, domain.ErrSameAccountTransaction)

	_, err = h.core.Accounts.SetStatus(ctx, teller, account.ID, domain.AccountStatusInactive)
	require.NoError(t, err)
	_, err = h.core.Transfer(ctx, alice, account.ID, account.ID, money("10"))
	assert.ErrorIs(t, err, domain.ErrSameAccountTransaction)
}

func TestProcessor_TransferToInactiveAccount(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	from := h.open(t, alice)
	to := h.open(t, bob)
	h.fund(t, from.ID, "100")
	_, err := h.core.Accounts.SetStatus(ctx, teller, to.ID, domain.AccountStatusInactive)
	require.NoError(t, err)

	_, err = h.core.Transfer(ctx, alice, from.ID, to.ID, money("10"))
	assert.ErrorIs(t, err, domain.ErrAccountNotActive)
	assert.True(t, h.balance(t, from.ID).Equal(money("100")))
}

func TestProcessor_TransferLimitsPerDirection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	from := h.open(t, alice)
	to := h.open(t, bob)
	h.fund(t, from.ID, "40000")

	// 收款方今天已入帳 45,000：轉入端超過上限
	for i := 0; i < 9; i++ {
		_, err := h.core.Deposit(ctx, bob, to.ID, money("5000"))
		require.NoError(t, err)
	}
	rejected, err := h.core.Transfer(ctx, alice, from.ID, to.ID, money("5001"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonDailyDepositLimitExceeded, rejected.FailureReason)

	accepted, err := h.core.Transfer(ctx, alice, from.ID, to.ID, money("5000"))
	require.NoError(t, err)
	assert.True(t, accepted.IsSuccess())

	// 轉出端的額度只算轉出
	third := h.open(t, domain.Customer(3))
	h.clock.AddDate(0, 0, 1)
	_, err = h.core.Deposit(ctx, alice, from.ID, money("50000"))
	require.NoError(t, err)
	tran, err := h.core.Transfer(ctx, alice, from.ID, third.ID, money("50000"))
	require.NoError(t, err)
	assert.True(t, tran.IsSuccess(), tran.FailureReason)
	tran, err = h.core.Transfer(ctx, alice, from.ID, third.ID, money("0.01"))
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonDailyWithdrawLimitExceeded, tran.FailureReason)
}

func TestProcessor_ConcurrentDepositsRespectLimit(t *testing.T) {
	mutexLedger, err := memory.NewMutexLedger(nil, nil)
	require.NoError(t, err)
	lmaxLedger, err := memory.NewLMAXLedger(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lmaxLedger.Start(ctx)

	for name, ledger := range map[string]usecase.Ledger{"mutex": mutexLedger, "lmax": lmaxLedger} {
		t.Run(name, func(t *testing.T) {
			h := newHarnessWithLedger(t, ledger)
			account := h.open(t, alice)

			const workers = 25
			results := make(chan *domain.Transaction, workers)
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tran, err := h.core.Deposit(context.Background(), alice, account.ID, money("4000"))
					assert.NoError(t, err)
					results <- tran
				}()
			}
			wg.Wait()
			close(results)

			succeeded := 0
			for tran := range results {
				if tran.IsSuccess() {
					succeeded++
				} else {
					assert.Equal(t, domain.ReasonDailyDepositLimitExceeded, tran.FailureReason)
				}
			}
			// 50,000 / 4,000 = 12 筆放得下
			assert.Equal(t, 12, succeeded)
			assert.True(t, h.balance(t, account.ID).Equal(money("48000")))
		})
	}
}

func TestProcessor_Queries(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	tran, err := h.core.Deposit(ctx, alice, account.ID, money("10"))
	require.NoError(t, err)

	got, err := h.core.Processor.GetTransaction(ctx, alice, tran.ID)
	require.NoError(t, err)
	assert.Equal(t, tran.ID, got.ID)

	_, err = h.core.Processor.GetTransaction(ctx, bob, tran.ID)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	now := h.clock.Now()
	list, err := h.core.Processor.ListAccountTransactions(ctx, teller, account.ID, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestProcessor_RejectsSubCentAmounts(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)
	other := h.open(t, alice)
	h.fund(t, account.ID, "100")

	_, err := h.core.Deposit(ctx, alice, account.ID, money("0.001"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = h.core.Withdraw(ctx, alice, account.ID, money("1.005"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = h.core.Transfer(ctx, alice, account.ID, other.ID, money("0.999"))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.True(t, h.balance(t, account.ID).Equal(money("100")))

	// 尾端的 0 不影響
	tran, err := h.core.Deposit(ctx, alice, account.ID, money("10.500"))
	require.NoError(t, err)
	assert.True(t, tran.IsSuccess())
	assert.Equal(t, "110.50", h.balance(t, account.ID).StringFixed(domain.MoneyScale))
}

func TestProcessor_DailyWindowUsesTransactionTime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	account := h.open(t, alice)

	midnight := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	nextDay := domain.NewTransaction(domain.TransactionTypeDeposit, money("50000"), midnight.Add(time.Second)).To(account.ID)
	nextDay.MarkSucceeded()
	require.NoError(t, h.transactions.Save(ctx, nextDay))

	// 每讀一次時間就跨過午夜；交易與每日額度必須落在同一天
	h.clock.Set(midnight.Add(-time.Millisecond), time.Second)
	tran, err := h.core.Deposit(ctx, alice, account.ID, money("100"))
	require.NoError(t, err)
	assert.True(t, tran.CreatedAt.Before(midnight))
	assert.True(t, tran.IsSuccess(), tran.FailureReason)
}
