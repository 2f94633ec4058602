package memory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/pkg/wal"
)

const (
	journalOpOpen    = "open"
	journalOpCommit  = "commit"
	journalOpRecords = "records"
)

// journalEntry 是 WAL 中的一行：一次開戶、一次 Execute 提交，或一次 Execute 以外的紀錄寫入
//
// 記錄的是變更後的完整狀態而不是差額，重播多次結果相同。
// 同一次 Execute 的帳戶、交易與貸款寫在同一行，一起落地。
type journalEntry struct {
	Op           string              `json:"op"`
	Accounts     []accountRecord     `json:"accounts,omitempty"`
	Transactions []transactionRecord `json:"transactions,omitempty"`
	Loans        []loanRecord        `json:"loans,omitempty"`
}

func (e *journalEntry) empty() bool {
	return len(e.Accounts) == 0 && len(e.Transactions) == 0 && len(e.Loans) == 0
}

type accountRecord struct {
	ID          int64           `json:"id"`
	CustomerID  int64           `json:"customer_id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAtMs int64           `json:"created_at_ms"`
	UpdatedAtMs int64           `json:"updated_at_ms"`
}

func toRecord(a *domain.Account) accountRecord {
	return accountRecord{
		ID:          a.ID,
		CustomerID:  a.CustomerID,
		Type:        string(a.Type),
		Status:      string(a.Status),
		Balance:     a.Balance,
		CreatedAtMs: a.CreatedAt.UnixMilli(),
		UpdatedAtMs: a.UpdatedAt.UnixMilli(),
	}
}

func (r accountRecord) toDomain() *domain.Account {
	return &domain.Account{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Type:       domain.AccountType(r.Type),
		Status:     domain.AccountStatus(r.Status),
		Balance:    r.Balance,
		CreatedAt:  time.UnixMilli(r.CreatedAtMs),
		UpdatedAt:  time.UnixMilli(r.UpdatedAtMs),
	}
}

type transactionRecord struct {
	ID                   uuid.UUID       `json:"id"`
	Type                 string          `json:"type"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	SourceAccountID      *int64          `json:"source_account_id,omitempty"`
	DestinationAccountID *int64          `json:"destination_account_id,omitempty"`
	LoanID               *uuid.UUID      `json:"loan_id,omitempty"`
	FailureReason        string          `json:"failure_reason,omitempty"`
	CreatedAtMs          int64           `json:"created_at_ms"`
}

func toTransactionRecord(t *domain.Transaction) transactionRecord {
	return transactionRecord{
		ID:                   t.ID,
		Type:                 string(t.Type),
		Status:               string(t.Status),
		Amount:               t.Amount,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		LoanID:               t.LoanID,
		FailureReason:        t.FailureReason,
		CreatedAtMs:          t.CreatedAt.UnixMilli(),
	}
}

func (r transactionRecord) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:                   r.ID,
		Type:                 domain.TransactionType(r.Type),
		Status:               domain.TransactionStatus(r.Status),
		Amount:               r.Amount,
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		LoanID:               r.LoanID,
		FailureReason:        r.FailureReason,
		CreatedAt:            time.UnixMilli(r.CreatedAtMs),
	}
}

type loanRecord struct {
	ID             uuid.UUID       `json:"id"`
	AccountID      int64           `json:"account_id"`
	Principal      decimal.Decimal `json:"principal"`
	AnnualRate     decimal.Decimal `json:"annual_rate"`
	TenureMonths   int             `json:"tenure_months"`
	Status         string          `json:"status"`
	IssuedAtMs     *int64          `json:"issued_at_ms,omitempty"`
	TransactionIDs []uuid.UUID     `json:"transaction_ids,omitempty"`
	ApprovedBy     *int64          `json:"approved_by,omitempty"`
	CreatedAtMs    int64           `json:"created_at_ms"`
	UpdatedAtMs    int64           `json:"updated_at_ms"`
}

func toLoanRecord(l *domain.Loan) loanRecord {
	r := loanRecord{
		ID:             l.ID,
		AccountID:      l.AccountID,
		Principal:      l.Principal,
		AnnualRate:     l.AnnualRate,
		TenureMonths:   l.TenureMonths,
		Status:         string(l.Status),
		TransactionIDs: l.TransactionIDs,
		ApprovedBy:     l.ApprovedBy,
		CreatedAtMs:    l.CreatedAt.UnixMilli(),
		UpdatedAtMs:    l.UpdatedAt.UnixMilli(),
	}
	if l.DateOfIssuance != nil {
		ms := l.DateOfIssuance.UnixMilli()
		r.IssuedAtMs = &ms
	}
	return r
}

func (r loanRecord) toDomain() *domain.Loan {
	loan := &domain.Loan{
		ID:             r.ID,
		AccountID:      r.AccountID,
		Principal:      r.Principal,
		AnnualRate:     r.AnnualRate,
		TenureMonths:   r.TenureMonths,
		Status:         domain.LoanStatus(r.Status),
		TransactionIDs: r.TransactionIDs,
		ApprovedBy:     r.ApprovedBy,
		CreatedAt:      time.UnixMilli(r.CreatedAtMs),
		UpdatedAt:      time.UnixMilli(r.UpdatedAtMs),
	}
	if r.IssuedAtMs != nil {
		issued := time.UnixMilli(*r.IssuedAtMs)
		loan.DateOfIssuance = &issued
	}
	return loan
}

// writeJournal 寫入一筆 journal；w 為 nil 或沒有任何變更時不落地
func writeJournal(w *wal.WAL, op string, accounts []*domain.Account, records *pendingRecords) error {
	if w == nil {
		return nil
	}
	entry := journalEntry{Op: op}
	for _, a := range accounts {
		entry.Accounts = append(entry.Accounts, toRecord(a))
	}
	if records != nil {
		for _, t := range records.transactions {
			entry.Transactions = append(entry.Transactions, toTransactionRecord(t))
		}
		for _, l := range records.loans {
			entry.Loans = append(entry.Loans, toLoanRecord(l))
		}
	}
	if entry.empty() {
		return nil
	}
	if err := w.Write(entry); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWALWriteFailed, err)
	}
	return nil
}

// replayJournal 依序重播 WAL，將每一行交給 apply
func replayJournal(w *wal.WAL, apply func(entry *journalEntry)) error {
	if w == nil {
		return nil
	}
	return w.ReadAll(func(raw []byte) error {
		var entry journalEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode journal entry: %w", err)
		}
		apply(&entry)
		return nil
	})
}

// replayAccounts 只重播帳戶狀態
func replayAccounts(w *wal.WAL, apply func(*domain.Account)) error {
	return replayJournal(w, func(entry *journalEntry) {
		for _, r := range entry.Accounts {
			apply(r.toDomain())
		}
	})
}
