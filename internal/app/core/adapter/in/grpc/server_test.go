package grpc_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	coregrpc "github.com/JoeShih716/go-bank-core/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-core/internal/app/core/adapter/out/memory"
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/metrics"
)

var (
	teller = domain.Employee(900)
	alice  = domain.Customer(1)
	bob    = domain.Customer(2)
)

func newClient(t *testing.T) *coregrpc.Client {
	t.Helper()
	ledger, err := memory.NewMutexLedger(nil, nil)
	require.NoError(t, err)
	core := usecase.NewCoreUseCase(usecase.Dependencies{
		Ledger:       ledger,
		Transactions: memory.NewTransactionStore(),
		Loans:        memory.NewLoanStore(),
	})

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(
		coregrpc.UnaryServerInterceptor(zap.NewNop(), metrics.New(prometheus.NewRegistry()))))
	coregrpc.RegisterCoreServiceServer(server, coregrpc.NewGrpcServer(core, zap.NewNop()))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return coregrpc.NewClient(conn)
}

func as(actor domain.Actor) context.Context {
	return coregrpc.WithActor(context.Background(), actor)
}

func TestGrpc_AccountAndMoneyFlow(t *testing.T) {
	client := newClient(t)

	from, err := client.OpenAccount(as(alice), &coregrpc.OpenAccountRequest{CustomerID: 1, Type: "SAVINGS"})
	require.NoError(t, err)
	to, err := client.OpenAccount(as(teller), &coregrpc.OpenAccountRequest{CustomerID: 2, Type: "CURRENT"})
	require.NoError(t, err)
	assert.Equal(t, "0.00", from.Balance)
	assert.Equal(t, "ACTIVE", from.Status)

	tran, err := client.Deposit(as(alice), &coregrpc.AmountRequest{AccountID: from.ID, Amount: "1000"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", tran.Status)
	assert.Equal(t, "1000.00", tran.Amount)

	tran, err = client.Withdraw(as(alice), &coregrpc.AmountRequest{AccountID: from.ID, Amount: "5000"})
	require.NoError(t, err, "amount failures are normal responses")
	assert.Equal(t, "FAILED", tran.Status)
	assert.Equal(t, domain.ReasonInsufficientBalance, tran.FailureReason)

	tran, err = client.Transfer(as(alice), &coregrpc.TransferRequest{FromAccountID: from.ID, ToAccountID: to.ID, Amount: "250.50"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", tran.Status)

	got, err := client.GetTransaction(as(bob), &coregrpc.TransactionRequest{TransactionID: tran.ID})
	require.NoError(t, err, "destination owner can read the transfer")
	assert.Equal(t, "TRANSFERRED", got.Type)

	account, err := client.GetAccount(as(alice), &coregrpc.AccountRequest{AccountID: from.ID})
	require.NoError(t, err)
	assert.Equal(t, "749.50", account.Balance)

	now := time.Now()
	list, err := client.ListTransactions(as(alice), &coregrpc.ListTransactionsRequest{
		AccountID: from.ID,
		FromMs:    now.Add(-time.Hour).UnixMilli(),
		ToMs:      now.Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)
	assert.Len(t, list.Transactions, 3)

	inactive, err := client.SetAccountStatus(as(teller), &coregrpc.SetAccountStatusRequest{AccountID: to.ID, Status: "INACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, "INACTIVE", inactive.Status)
}

func TestGrpc_LoanFlow(t *testing.T) {
	client := newClient(t)
	account, err := client.OpenAccount(as(alice), &coregrpc.OpenAccountRequest{CustomerID: 1, Type: "SAVINGS"})
	require.NoError(t, err)

	loan, err := client.ApplyLoan(as(alice), &coregrpc.ApplyLoanRequest{
		AccountID: account.ID, Principal: "1200", AnnualRate: "0", TenureMonths: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "PENDING", loan.Status)

	_, err = client.ApproveLoan(as(alice), &coregrpc.LoanRequest{LoanID: loan.ID})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	approved, err := client.ApproveLoan(as(teller), &coregrpc.LoanRequest{LoanID: loan.ID})
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, int64(900), *approved.ApprovedBy)

	disbursement, err := client.DisburseLoan(as(teller), &coregrpc.LoanRequest{LoanID: loan.ID})
	require.NoError(t, err)
	assert.Equal(t, "LOAN_DISBURSEMENT", disbursement.Type)
	assert.Equal(t, loan.ID, disbursement.LoanID)

	repayment, err := client.RepayLoan(as(alice), &coregrpc.RepayLoanRequest{LoanID: loan.ID, Amount: "100"})
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", repayment.Status)

	summary, err := client.GetLoanSummary(as(alice), &coregrpc.LoanRequest{LoanID: loan.ID})
	require.NoError(t, err)
	assert.Equal(t, "100.00", summary.EMI)
	assert.Equal(t, "DISBURSED", summary.Loan.Status)
	assert.Len(t, summary.Loan.TransactionIDs, 2)
	assert.False(t, summary.Overdue)
	require.NotNil(t, summary.RepaymentDateMs)
	outstanding := decimal.RequireFromString(summary.Outstanding)
	assert.True(t, outstanding.LessThan(decimal.NewFromInt(1200)), summary.Outstanding)

	loans, err := client.ListLoans(as(alice), &coregrpc.AccountRequest{AccountID: account.ID})
	require.NoError(t, err)
	require.Len(t, loans.Loans, 1)

	_, err = client.CloseAccount(as(alice), &coregrpc.AccountRequest{AccountID: account.ID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGrpc_ErrorMapping(t *testing.T) {
	client := newClient(t)
	account, err := client.OpenAccount(as(alice), &coregrpc.OpenAccountRequest{CustomerID: 1, Type: "SAVINGS"})
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"missing actor", func() error {
			_, err := client.GetAccount(context.Background(), &coregrpc.AccountRequest{AccountID: account.ID})
			return err
		}, codes.Unauthenticated},
		{"unknown account", func() error {
			_, err := client.GetAccount(as(teller), &coregrpc.AccountRequest{AccountID: 404})
			return err
		}, codes.NotFound},
		{"other customer", func() error {
			_, err := client.GetAccount(as(bob), &coregrpc.AccountRequest{AccountID: account.ID})
			return err
		}, codes.PermissionDenied},
		{"non positive amount", func() error {
			_, err := client.Deposit(as(alice), &coregrpc.AmountRequest{AccountID: account.ID, Amount: "-1"})
			return err
		}, codes.InvalidArgument},
		{"unparsable amount", func() error {
			_, err := client.Deposit(as(alice), &coregrpc.AmountRequest{AccountID: account.ID, Amount: "ten"})
			return err
		}, codes.InvalidArgument},
		{"same account transfer", func() error {
			_, err := client.Transfer(as(alice), &coregrpc.TransferRequest{FromAccountID: account.ID, ToAccountID: account.ID, Amount: "1"})
			return err
		}, codes.InvalidArgument},
		{"bad loan id", func() error {
			_, err := client.GetLoanSummary(as(alice), &coregrpc.LoanRequest{LoanID: "nope"})
			return err
		}, codes.InvalidArgument},
		{"invalid tenure", func() error {
			_, err := client.ApplyLoan(as(alice), &coregrpc.ApplyLoanRequest{AccountID: account.ID, Principal: "100", AnnualRate: "5", TenureMonths: 0})
			return err
		}, codes.InvalidArgument},
		{"empty window", func() error {
			_, err := client.ListTransactions(as(alice), &coregrpc.ListTransactionsRequest{AccountID: account.ID, FromMs: 10, ToMs: 10})
			return err
		}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.call()))
		})
	}
}
