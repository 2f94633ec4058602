package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	CustomerID  int64           `gorm:"index;not null"`
	Type        string          `gorm:"type:varchar(16);not null"`
	Status      string          `gorm:"type:varchar(16);not null"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	CreatedAtMs int64           `gorm:"column:created_at_ms;not null"`
	UpdatedAtMs int64           `gorm:"column:updated_at_ms;not null"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

// sqlTransaction 對應資料庫的 transactions 表
type sqlTransaction struct {
	ID                   string          `gorm:"primaryKey;type:char(36)"`
	Type                 string          `gorm:"type:varchar(32);not null"`
	Status               string          `gorm:"type:varchar(16);not null"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	SourceAccountID      *int64          `gorm:"index:idx_transactions_source"`
	DestinationAccountID *int64          `gorm:"index:idx_transactions_destination"`
	LoanID               *string         `gorm:"type:char(36);index"`
	FailureReason        string          `gorm:"type:varchar(255)"`
	CreatedAtMs          int64           `gorm:"column:created_at_ms;index;not null"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

// sqlLoan 對應資料庫的 loans 表
//
// 交易 ID 不另外存，由 transactions.loan_id 反查。
type sqlLoan struct {
	ID           string          `gorm:"primaryKey;type:char(36)"`
	AccountID    int64           `gorm:"index;not null"`
	Principal    decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	AnnualRate   decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	TenureMonths int             `gorm:"not null"`
	Status       string          `gorm:"type:varchar(16);not null"`
	IssuedAtMs   *int64          `gorm:"column:issued_at_ms"`
	ApprovedBy   *int64
	CreatedAtMs  int64 `gorm:"column:created_at_ms;not null"`
	UpdatedAtMs  int64 `gorm:"column:updated_at_ms;not null"`
}

func (*sqlLoan) TableName() string {
	return "loans"
}

// AutoMigrate 建立或更新資料表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&sqlAccount{}, &sqlTransaction{}, &sqlLoan{})
}

func toSQLAccount(a *domain.Account) *sqlAccount {
	return &sqlAccount{
		ID:          a.ID,
		CustomerID:  a.CustomerID,
		Type:        string(a.Type),
		Status:      string(a.Status),
		Balance:     a.Balance,
		CreatedAtMs: a.CreatedAt.UnixMilli(),
		UpdatedAtMs: a.UpdatedAt.UnixMilli(),
	}
}

func (r *sqlAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Type:       domain.AccountType(r.Type),
		Status:     domain.AccountStatus(r.Status),
		Balance:    r.Balance,
		CreatedAt:  time.UnixMilli(r.CreatedAtMs).UTC(),
		UpdatedAt:  time.UnixMilli(r.UpdatedAtMs).UTC(),
	}
}

func toSQLTransaction(t *domain.Transaction) *sqlTransaction {
	row := &sqlTransaction{
		ID:                   t.ID.String(),
		Type:                 string(t.Type),
		Status:               string(t.Status),
		Amount:               t.Amount,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		FailureReason:        t.FailureReason,
		CreatedAtMs:          t.CreatedAt.UnixMilli(),
	}
	if t.LoanID != nil {
		id := t.LoanID.String()
		row.LoanID = &id
	}
	return row
}

func (r *sqlTransaction) toDomain() (*domain.Transaction, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	t := &domain.Transaction{
		ID:                   id,
		Type:                 domain.TransactionType(r.Type),
		Status:               domain.TransactionStatus(r.Status),
		Amount:               r.Amount,
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		FailureReason:        r.FailureReason,
		CreatedAt:            time.UnixMilli(r.CreatedAtMs).UTC(),
	}
	if r.LoanID != nil {
		loanID, err := uuid.Parse(*r.LoanID)
		if err != nil {
			return nil, err
		}
		t.LoanID = &loanID
	}
	return t, nil
}

func toSQLLoan(l *domain.Loan) *sqlLoan {
	row := &sqlLoan{
		ID:           l.ID.String(),
		AccountID:    l.AccountID,
		Principal:    l.Principal,
		AnnualRate:   l.AnnualRate,
		TenureMonths: l.TenureMonths,
		Status:       string(l.Status),
		ApprovedBy:   l.ApprovedBy,
		CreatedAtMs:  l.CreatedAt.UnixMilli(),
		UpdatedAtMs:  l.UpdatedAt.UnixMilli(),
	}
	if l.DateOfIssuance != nil {
		ms := l.DateOfIssuance.UnixMilli()
		row.IssuedAtMs = &ms
	}
	return row
}

func (r *sqlLoan) toDomain(transactionIDs []uuid.UUID) (*domain.Loan, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, err
	}
	l := &domain.Loan{
		ID:             id,
		AccountID:      r.AccountID,
		Principal:      r.Principal,
		AnnualRate:     r.AnnualRate,
		TenureMonths:   r.TenureMonths,
		Status:         domain.LoanStatus(r.Status),
		TransactionIDs: transactionIDs,
		ApprovedBy:     r.ApprovedBy,
		CreatedAt:      time.UnixMilli(r.CreatedAtMs).UTC(),
		UpdatedAt:      time.UnixMilli(r.UpdatedAtMs).UTC(),
	}
	if r.IssuedAtMs != nil {
		issued := time.UnixMilli(*r.IssuedAtMs).UTC()
		l.DateOfIssuance = &issued
	}
	return l, nil
}
