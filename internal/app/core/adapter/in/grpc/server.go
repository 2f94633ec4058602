package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
)

// GrpcServer 把 gRPC 請求轉給 CoreUseCase
//
// 前置條件錯誤轉成 gRPC status；金額相關的失敗是正常回應 (Status=FAILED 的交易)。
type GrpcServer struct {
	core   *usecase.CoreUseCase
	logger *zap.Logger
}

func NewGrpcServer(core *usecase.CoreUseCase, logger *zap.Logger) *GrpcServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrpcServer{
		core:   core,
		logger: logger.Named("grpc"),
	}
}

func (s *GrpcServer) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*AccountResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.core.OpenAccount(ctx, actor, req.CustomerID, domain.AccountType(req.Type))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toAccountResponse(account), nil
}

func (s *GrpcServer) GetAccount(ctx context.Context, req *AccountRequest) (*AccountResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.core.GetAccount(ctx, actor, req.AccountID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toAccountResponse(account), nil
}

func (s *GrpcServer) SetAccountStatus(ctx context.Context, req *SetAccountStatusRequest) (*AccountResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.core.Accounts.SetStatus(ctx, actor, req.AccountID, domain.AccountStatus(req.Status))
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toAccountResponse(account), nil
}

func (s *GrpcServer) CloseAccount(ctx context.Context, req *AccountRequest) (*AccountResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	account, err := s.core.CloseAccount(ctx, actor, req.AccountID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toAccountResponse(account), nil
}

func (s *GrpcServer) Deposit(ctx context.Context, req *AmountRequest) (*TransactionResponse, error) {
	actor, amount, err := actorAndAmount(ctx, req.Amount)
	if err != nil {
		return nil, err
	}
	tran, err := s.core.Deposit(ctx, actor, req.AccountID, amount)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toTransactionResponse(tran), nil
}

func (s *GrpcServer) Withdraw(ctx context.Context, req *AmountRequest) (*TransactionResponse, error) {
	actor, amount, err := actorAndAmount(ctx, req.Amount)
	if err != nil {
		return nil, err
	}
	tran, err := s.core.Withdraw(ctx, actor, req.AccountID, amount)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toTransactionResponse(tran), nil
}

func (s *GrpcServer) Transfer(ctx context.Context, req *TransferRequest) (*TransactionResponse, error) {
	actor, amount, err := actorAndAmount(ctx, req.Amount)
	if err != nil {
		return nil, err
	}
	tran, err := s.core.Transfer(ctx, actor, req.FromAccountID, req.ToAccountID, amount)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toTransactionResponse(tran), nil
}

func (s *GrpcServer) GetTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID("transaction_id", req.TransactionID)
	if err != nil {
		return nil, err
	}
	tran, err := s.core.Processor.GetTransaction(ctx, actor, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toTransactionResponse(tran), nil
}

func (s *GrpcServer) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*TransactionListResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if req.ToMs <= req.FromMs {
		return nil, status.Error(codes.InvalidArgument, "to_ms must be after from_ms")
	}
	trans, err := s.core.Processor.ListAccountTransactions(ctx, actor, req.AccountID,
		time.UnixMilli(req.FromMs), time.UnixMilli(req.ToMs))
	if err != nil {
		return nil, s.toStatus(err)
	}
	resp := &TransactionListResponse{Transactions: make([]*TransactionResponse, 0, len(trans))}
	for _, tran := range trans {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tran))
	}
	return resp, nil
}

func (s *GrpcServer) ApplyLoan(ctx context.Context, req *ApplyLoanRequest) (*LoanResponse, error) {
	actor, principal, err := actorAndAmount(ctx, req.Principal)
	if err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(req.AnnualRate)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid annual_rate: %v", err)
	}
	loan, err := s.core.ApplyLoan(ctx, actor, req.AccountID, principal, rate, req.TenureMonths)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toLoanResponse(loan), nil
}

func (s *GrpcServer) ApproveLoan(ctx context.Context, req *LoanRequest) (*LoanResponse, error) {
	return s.reviewLoan(ctx, req, s.core.ApproveLoan)
}

func (s *GrpcServer) RejectLoan(ctx context.Context, req *LoanRequest) (*LoanResponse, error) {
	return s.reviewLoan(ctx, req, s.core.RejectLoan)
}

func (s *GrpcServer) DefaultLoan(ctx context.Context, req *LoanRequest) (*LoanResponse, error) {
	return s.reviewLoan(ctx, req, s.core.Loans.MarkDefaulted)
}

func (s *GrpcServer) reviewLoan(ctx context.Context, req *LoanRequest, review func(context.Context, domain.Actor, uuid.UUID) (*domain.Loan, error)) (*LoanResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	loan, err := review(ctx, actor, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toLoanResponse(loan), nil
}

func (s *GrpcServer) DisburseLoan(ctx context.Context, req *LoanRequest) (*TransactionResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	tran, err := s.core.DisburseLoan(ctx, actor, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toTransactionResponse(tran), nil
}

func (s *GrpcServer) RepayLoan(ctx context.Context, req *RepayLoanRequest) (*TransactionResponse, error) {
	actor, amount, err := actorAndAmount(ctx, req.Amount)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	tran, err := s.core.RepayLoan(ctx, actor, id, amount)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toTransactionResponse(tran), nil
}

func (s *GrpcServer) GetLoanSummary(ctx context.Context, req *LoanRequest) (*LoanSummaryResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID("loan_id", req.LoanID)
	if err != nil {
		return nil, err
	}
	summary, err := s.core.GetLoanSummary(ctx, actor, id)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return toLoanSummaryResponse(summary), nil
}

func (s *GrpcServer) ListLoans(ctx context.Context, req *AccountRequest) (*LoanListResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.core.Loans.ListByAccount(ctx, actor, req.AccountID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	resp := &LoanListResponse{Loans: make([]*LoanResponse, 0, len(loans))}
	for _, loan := range loans {
		resp.Loans = append(resp.Loans, toLoanResponse(loan))
	}
	return resp, nil
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := actorFromContext(ctx)
	if !ok {
		return domain.Actor{}, status.Error(codes.Unauthenticated, "missing or invalid actor metadata")
	}
	return actor, nil
}

func actorAndAmount(ctx context.Context, raw string) (domain.Actor, decimal.Decimal, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Actor{}, decimal.Zero, err
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Actor{}, decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid amount %q", raw)
	}
	return actor, amount, nil
}

func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s: %v", field, err)
	}
	return id, nil
}

// toStatus 將 domain 錯誤轉成 gRPC status code
func (s *GrpcServer) toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrLoanNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrAccessDenied):
		code = codes.PermissionDenied
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccountTransaction),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidAccountStatus),
		errors.Is(err, domain.ErrInvalidPrincipal),
		errors.Is(err, domain.ErrInvalidInterestRate),
		errors.Is(err, domain.ErrInvalidTenure):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrOverdueLoanExists),
		errors.Is(err, domain.ErrAccountAlreadyExists):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrAccountNotActive),
		errors.Is(err, domain.ErrAccountClosed),
		errors.Is(err, domain.ErrAccountBalanceNotZero),
		errors.Is(err, domain.ErrAccountHasActiveLoans),
		errors.Is(err, domain.ErrLoanNotDisbursed),
		errors.Is(err, domain.ErrInvalidLoanState),
		errors.Is(err, domain.ErrInsufficientBalance):
		code = codes.FailedPrecondition
	}
	if code == codes.Internal {
		s.logger.Error("unexpected core error", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

var _ CoreServiceServer = (*GrpcServer)(nil)
