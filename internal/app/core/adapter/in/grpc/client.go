package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// Client CoreService 的客戶端，訊息以 JSON codec 編碼
//
// 呼叫前用 WithActor 把身分放進 ctx。
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.conn.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) OpenAccount(ctx context.Context, req *OpenAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, "OpenAccount", req, opts...)
}

func (c *Client) GetAccount(ctx context.Context, req *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, "GetAccount", req, opts...)
}

func (c *Client) SetAccountStatus(ctx context.Context, req *SetAccountStatusRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, "SetAccountStatus", req, opts...)
}

func (c *Client) CloseAccount(ctx context.Context, req *AccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	return invoke[AccountResponse](ctx, c, "CloseAccount", req, opts...)
}

func (c *Client) Deposit(ctx context.Context, req *AmountRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c, "Deposit", req, opts...)
}

func (c *Client) Withdraw(ctx context.Context, req *AmountRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c, "Withdraw", req, opts...)
}

func (c *Client) Transfer(ctx context.Context, req *TransferRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c, "Transfer", req, opts...)
}

func (c *Client) GetTransaction(ctx context.Context, req *TransactionRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c, "GetTransaction", req, opts...)
}

func (c *Client) ListTransactions(ctx context.Context, req *ListTransactionsRequest, opts ...grpc.CallOption) (*TransactionListResponse, error) {
	return invoke[TransactionListResponse](ctx, c, "ListTransactions", req, opts...)
}

func (c *Client) ApplyLoan(ctx context.Context, req *ApplyLoanRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c, "ApplyLoan", req, opts...)
}

func (c *Client) ApproveLoan(ctx context.Context, req *LoanRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c, "ApproveLoan", req, opts...)
}

func (c *Client) RejectLoan(ctx context.Context, req *LoanRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c, "RejectLoan", req, opts...)
}

func (c *Client) DefaultLoan(ctx context.Context, req *LoanRequest, opts ...grpc.CallOption) (*LoanResponse, error) {
	return invoke[LoanResponse](ctx, c, "DefaultLoan", req, opts...)
}

func (c *Client) DisburseLoan(ctx context.Context, req *LoanRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c, "DisburseLoan", req, opts...)
}

func (c *Client) RepayLoan(ctx context.Context, req *RepayLoanRequest, opts ...grpc.CallOption) (*TransactionResponse, error) {
	return invoke[TransactionResponse](ctx, c, "RepayLoan", req, opts...)
}

func (c *Client) GetLoanSummary(ctx context.Context, req *LoanRequest, opts ...grpc.CallOption) (*LoanSummaryResponse, error) {
	return invoke[LoanSummaryResponse](ctx, c, "GetLoanSummary", req, opts...)
}

func (c *Client) ListLoans(ctx context.Context, req *AccountRequest, opts ...grpc.CallOption) (*LoanListResponse, error) {
	return invoke[LoanListResponse](ctx, c, "ListLoans", req, opts...)
}
