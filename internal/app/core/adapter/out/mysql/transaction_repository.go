package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/mysql"
)

// TransactionRepository 交易紀錄的 gorm 實作
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(client *mysql.Client) *TransactionRepository {
	return &TransactionRepository{db: client.DB()}
}

func (r *TransactionRepository) Save(ctx context.Context, tran *domain.Transaction) error {
	return mysql.Conn(ctx, r.db).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toSQLTransaction(tran)).Error
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var row sqlTransaction
	err := mysql.Conn(ctx, r.db).Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *TransactionRepository) FindByAccount(ctx context.Context, accountID int64, from, to time.Time) ([]*domain.Transaction, error) {
	var rows []sqlTransaction
	err := mysql.Conn(ctx, r.db).
		Where("(source_account_id = ? OR destination_account_id = ?) AND created_at_ms >= ? AND created_at_ms < ?",
			accountID, accountID, from.UnixMilli(), to.UnixMilli()).
		Order("created_at_ms ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainTransactions(rows)
}

func (r *TransactionRepository) FindByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Transaction, error) {
	var rows []sqlTransaction
	err := mysql.Conn(ctx, r.db).
		Where("loan_id = ?", loanID.String()).
		Order("created_at_ms ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainTransactions(rows)
}

func toDomainTransactions(rows []sqlTransaction) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

var _ usecase.TransactionRepository = (*TransactionRepository)(nil)
