package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
)

var (
	teller = domain.Employee(900)
	alice  = domain.Customer(1)
	bob    = domain.Customer(2)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
	// tick 每次讀取後推進的時間
	tick time.Duration
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.tick)
	return now
}

func (c *clock) Set(now time.Time, tick time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now, c.tick = now, tick
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *clock) AddDate(years, months, days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(years, months, days)
}

type notification struct {
	CustomerID int64
	Category   domain.NotificationCategory
	Message    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(_ context.Context, customerID int64, category domain.NotificationCategory, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{customerID, category, message})
}

func (n *recordingNotifier) Categories(customerID int64) []domain.NotificationCategory {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationCategory
	for _, s := range n.sent {
		if s.CustomerID == customerID {
			out = append(out, s.Category)
		}
	}
	return out
}

func (n *recordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type harness struct {
	core         *usecase.CoreUseCase
	ledger       usecase.Ledger
	transactions *memory.TransactionStore
	loans        usecase.LoanRepository
	notifier     *recordingNotifier
	clock        *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ledger, err := memory.NewMutexLedger(nil, nil)
	require.NoError(t, err)
	return newHarnessWithLedger(t, ledger)
}

func newHarnessWithLedger(t *testing.T, ledger usecase.Ledger) *harness {
	t.Helper()
	return buildHarness(t, ledger, memory.NewLoanStore(), time.UTC)
}

func buildHarness(t *testing.T, ledger usecase.Ledger, loans usecase.LoanRepository, loc *time.Location) *harness {
	t.Helper()
	h := &harness{
		ledger:       ledger,
		transactions: memory.NewTransactionStore(),
		loans:        loans,
		notifier:     &recordingNotifier{},
		clock:        &clock{now: time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)},
	}
	h.core = usecase.NewCoreUseCase(usecase.Dependencies{
		Ledger:       h.ledger,
		Transactions: h.transactions,
		Loans:        h.loans,
		Notifier:     h.notifier,
		Clock:        h.clock.Now,
		Location:     loc,
	})
	return h
}

func (h *harness) open(t *testing.T, owner domain.Actor) *domain.Account {
	t.Helper()
	account, err := h.core.OpenAccount(context.Background(), owner, owner.ID, domain.AccountTypeSavings)
	require.NoError(t, err)
	return account
}

// fund 以行員身分存款並推進一天，不佔用測試當天的每日額度
func (h *harness) fund(t *testing.T, accountID int64, amount string) {
	t.Helper()
	h.clock.AddDate(0, 0, -1)
	defer h.clock.AddDate(0, 0, 1)
	tran, err := h.core.Deposit(context.Background(), teller, accountID, money(amount))
	require.NoError(t, err)
	require.True(t, tran.IsSuccess(), tran.FailureReason)
}

func (h *harness) balance(t *testing.T, accountID int64) decimal.Decimal {
	t.Helper()
	account, err := h.ledger.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.Balance
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
