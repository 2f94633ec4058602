package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName gRPC 服務全名
const ServiceName = "bank.v1.CoreService"

// CoreServiceServer 核心服務的 gRPC 介面
type CoreServiceServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*AccountResponse, error)
	GetAccount(context.Context, *AccountRequest) (*AccountResponse, error)
	SetAccountStatus(context.Context, *SetAccountStatusRequest) (*AccountResponse, error)
	CloseAccount(context.Context, *AccountRequest) (*AccountResponse, error)

	Deposit(context.Context, *AmountRequest) (*TransactionResponse, error)
	Withdraw(context.Context, *AmountRequest) (*TransactionResponse, error)
	Transfer(context.Context, *TransferRequest) (*TransactionResponse, error)
	GetTransaction(context.Context, *TransactionRequest) (*TransactionResponse, error)
	ListTransactions(context.Context, *ListTransactionsRequest) (*TransactionListResponse, error)

	ApplyLoan(context.Context, *ApplyLoanRequest) (*LoanResponse, error)
	ApproveLoan(context.Context, *LoanRequest) (*LoanResponse, error)
	RejectLoan(context.Context, *LoanRequest) (*LoanResponse, error)
	DefaultLoan(context.Context, *LoanRequest) (*LoanResponse, error)
	DisburseLoan(context.Context, *LoanRequest) (*TransactionResponse, error)
	RepayLoan(context.Context, *RepayLoanRequest) (*TransactionResponse, error)
	GetLoanSummary(context.Context, *LoanRequest) (*LoanSummaryResponse, error)
	ListLoans(context.Context, *AccountRequest) (*LoanListResponse, error)
}

// FullMethod 回傳 /bank.v1.CoreService/<method>
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary 產生一個 MethodDesc，負責解碼請求並套用攔截器
func unary[Req, Resp any](name string, call func(CoreServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CoreServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CoreServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc 手寫的服務描述 (訊息以 JSON codec 編碼)
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoreServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenAccount", CoreServiceServer.OpenAccount),
		unary("GetAccount", CoreServiceServer.GetAccount),
		unary("SetAccountStatus", CoreServiceServer.SetAccountStatus),
		unary("CloseAccount", CoreServiceServer.CloseAccount),
		unary("Deposit", CoreServiceServer.Deposit),
		unary("Withdraw", CoreServiceServer.Withdraw),
		unary("Transfer", CoreServiceServer.Transfer),
		unary("GetTransaction", CoreServiceServer.GetTransaction),
		unary("ListTransactions", CoreServiceServer.ListTransactions),
		unary("ApplyLoan", CoreServiceServer.ApplyLoan),
		unary("ApproveLoan", CoreServiceServer.ApproveLoan),
		unary("RejectLoan", CoreServiceServer.RejectLoan),
		unary("DefaultLoan", CoreServiceServer.DefaultLoan),
		unary("DisburseLoan", CoreServiceServer.DisburseLoan),
		unary("RepayLoan", CoreServiceServer.RepayLoan),
		unary("GetLoanSummary", CoreServiceServer.GetLoanSummary),
		unary("ListLoans", CoreServiceServer.ListLoans),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "bank/v1/core.json",
}

// RegisterCoreServiceServer 註冊服務
func RegisterCoreServiceServer(s grpc.ServiceRegistrar, srv CoreServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
