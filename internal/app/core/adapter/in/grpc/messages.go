package grpc

import (
	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// 金額一律以字串傳遞 (小數兩位)，避免浮點誤差

type OpenAccountRequest struct {
	CustomerID int64  `json:"customer_id"`
	Type       string `json:"type"`
}

type AccountRequest struct {
	AccountID int64 `json:"account_id"`
}

type SetAccountStatusRequest struct {
	AccountID int64  `json:"account_id"`
	Status    string `json:"status"`
}

type AccountResponse struct {
	ID          int64  `json:"id"`
	CustomerID  int64  `json:"customer_id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	Balance     string `json:"balance"`
	CreatedAtMs int64  `json:"created_at_ms"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

type AmountRequest struct {
	AccountID int64  `json:"account_id"`
	Amount    string `json:"amount"`
}

type TransferRequest struct {
	FromAccountID int64  `json:"from_account_id"`
	ToAccountID   int64  `json:"to_account_id"`
	Amount        string `json:"amount"`
}

type TransactionRequest struct {
	TransactionID string `json:"transaction_id"`
}

type ListTransactionsRequest struct {
	AccountID int64 `json:"account_id"`
	FromMs    int64 `json:"from_ms"`
	ToMs      int64 `json:"to_ms"`
}

type TransactionResponse struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Status               string `json:"status"`
	Amount               string `json:"amount"`
	SourceAccountID      *int64 `json:"source_account_id,omitempty"`
	DestinationAccountID *int64 `json:"destination_account_id,omitempty"`
	LoanID               string `json:"loan_id,omitempty"`
	FailureReason        string `json:"failure_reason,omitempty"`
	CreatedAtMs          int64  `json:"created_at_ms"`
}

type TransactionListResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
}

type ApplyLoanRequest struct {
	AccountID    int64  `json:"account_id"`
	Principal    string `json:"principal"`
	AnnualRate   string `json:"annual_rate"`
	TenureMonths int    `json:"tenure_months"`
}

type LoanRequest struct {
	LoanID string `json:"loan_id"`
}

type RepayLoanRequest struct {
	LoanID string `json:"loan_id"`
	Amount string `json:"amount"`
}

type LoanResponse struct {
	ID             string   `json:"id"`
	AccountID      int64    `json:"account_id"`
	Principal      string   `json:"principal"`
	AnnualRate     string   `json:"annual_rate"`
	TenureMonths   int      `json:"tenure_months"`
	Status         string   `json:"status"`
	IssuedAtMs     *int64   `json:"issued_at_ms,omitempty"`
	ApprovedBy     *int64   `json:"approved_by,omitempty"`
	TransactionIDs []string `json:"transaction_ids"`
	CreatedAtMs    int64    `json:"created_at_ms"`
	UpdatedAtMs    int64    `json:"updated_at_ms"`
}

type LoanListResponse struct {
	Loans []*LoanResponse `json:"loans"`
}

type LoanSummaryResponse struct {
	Loan            *LoanResponse `json:"loan"`
	EMI             string        `json:"emi"`
	Outstanding     string        `json:"outstanding"`
	RepaymentDateMs *int64        `json:"repayment_date_ms,omitempty"`
	Overdue         bool          `json:"overdue"`
}

func toAccountResponse(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		CustomerID:  a.CustomerID,
		Type:        string(a.Type),
		Status:      string(a.Status),
		Balance:     a.Balance.StringFixed(domain.MoneyScale),
		CreatedAtMs: a.CreatedAt.UnixMilli(),
		UpdatedAtMs: a.UpdatedAt.UnixMilli(),
	}
}

func toTransactionResponse(t *domain.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:                   t.ID.String(),
		Type:                 string(t.Type),
		Status:               string(t.Status),
		Amount:               t.Amount.StringFixed(domain.MoneyScale),
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		FailureReason:        t.FailureReason,
		CreatedAtMs:          t.CreatedAt.UnixMilli(),
	}
	if t.LoanID != nil {
		resp.LoanID = t.LoanID.String()
	}
	return resp
}

func toLoanResponse(l *domain.Loan) *LoanResponse {
	resp := &LoanResponse{
		ID:             l.ID.String(),
		AccountID:      l.AccountID,
		Principal:      l.Principal.StringFixed(domain.MoneyScale),
		AnnualRate:     l.AnnualRate.String(),
		TenureMonths:   l.TenureMonths,
		Status:         string(l.Status),
		ApprovedBy:     l.ApprovedBy,
		TransactionIDs: make([]string, 0, len(l.TransactionIDs)),
		CreatedAtMs:    l.CreatedAt.UnixMilli(),
		UpdatedAtMs:    l.UpdatedAt.UnixMilli(),
	}
	if l.DateOfIssuance != nil {
		ms := l.DateOfIssuance.UnixMilli()
		resp.IssuedAtMs = &ms
	}
	for _, id := range l.TransactionIDs {
		resp.TransactionIDs = append(resp.TransactionIDs, id.String())
	}
	return resp
}

func toLoanSummaryResponse(s *domain.LoanSummary) *LoanSummaryResponse {
	resp := &LoanSummaryResponse{
		Loan:        toLoanResponse(s.Loan),
		EMI:         s.EMI.StringFixed(domain.MoneyScale),
		Outstanding: s.Outstanding.StringFixed(domain.MoneyScale),
		Overdue:     s.Overdue,
	}
	if s.RepaymentDate != nil {
		ms := s.RepaymentDate.UnixMilli()
		resp.RepaymentDateMs = &ms
	}
	return resp
}
