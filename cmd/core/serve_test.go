package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/notify"
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/internal/config"
)

func TestWireLedger_MemoryEnginesRecoverFromWAL(t *testing.T) {
	for _, engine := range []config.LedgerEngine{config.LedgerMutex, config.LedgerLMAX} {
		t.Run(string(engine), func(t *testing.T) {
			cfg, err := config.Parse([]byte("{}"))
			require.NoError(t, err)
			cfg.Ledger.Engine = engine
			cfg.Ledger.WALPath = filepath.Join(t.TempDir(), "wal", "ledger.log")
			ctx := context.Background()

			var (
				deps    usecase.Dependencies
				cleanup closer
			)
			require.NoError(t, wireLedger(ctx, cfg, zap.NewNop(), &deps, &cleanup))
			core := usecase.NewCoreUseCase(deps)
			teller := domain.Employee(1)
			account, err := core.OpenAccount(ctx, teller, 7, domain.AccountTypeSavings)
			require.NoError(t, err)
			deposit, err := core.Deposit(ctx, teller, account.ID, decimal.RequireFromString("250.50"))
			require.NoError(t, err)
			require.True(t, deposit.IsSuccess())
			loan, err := core.ApplyLoan(ctx, teller, account.ID, decimal.RequireFromString("1000"), decimal.RequireFromString("12"), 12)
			require.NoError(t, err)
			cleanup.closeAll()

			deps, cleanup = usecase.Dependencies{}, nil
			require.NoError(t, wireLedger(ctx, cfg, zap.NewNop(), &deps, &cleanup))
			defer cleanup.closeAll()
			recovered, err := deps.Ledger.GetAccount(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(7), recovered.CustomerID)
			assert.True(t, recovered.Balance.Equal(decimal.RequireFromString("250.50")))

			// 交易紀錄與貸款也要跟著帳戶一起恢復
			tran, err := deps.Transactions.FindByID(ctx, deposit.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.TransactionStatusSuccess, tran.Status)
			gotLoan, err := deps.Loans.FindByID(ctx, loan.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.LoanStatusPending, gotLoan.Status)
		})
	}
}

func TestBuildNotifier_LogSink(t *testing.T) {
	cfg, err := config.Parse([]byte("notify:\n  sink: log\n"))
	require.NoError(t, err)

	var cleanup closer
	n, err := buildNotifier(context.Background(), cfg, zap.NewNop(), &cleanup)
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)
	assert.Empty(t, cleanup)
}

func TestCloser_ReverseOrder(t *testing.T) {
	var (
		order   []int
		cleanup closer
	)
	cleanup.add(func() { order = append(order, 1) })
	cleanup.add(func() { order = append(order, 2) })
	cleanup.closeAll()
	assert.Equal(t, []int{2, 1}, order)
}
