package mysql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-core/pkg/mysql"
)

// LoanRepository 貸款的 gorm 實作
type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(client *mysql.Client) *LoanRepository {
	return &LoanRepository{db: client.DB()}
}

func (r *LoanRepository) Save(ctx context.Context, loan *domain.Loan) error {
	return mysql.Conn(ctx, r.db).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(toSQLLoan(loan)).Error
}

func (r *LoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	db := mysql.Conn(ctx, r.db)
	var row sqlLoan
	err := db.Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, err
	}
	loans, err := r.attach(db, []sqlLoan{row})
	if err != nil {
		return nil, err
	}
	return loans[0], nil
}

func (r *LoanRepository) FindByAccount(ctx context.Context, accountID int64) ([]*domain.Loan, error) {
	db := mysql.Conn(ctx, r.db)
	var rows []sqlLoan
	if err := db.Where("account_id = ?", accountID).Order("created_at_ms ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.attach(db, rows)
}

// attach 一次查出所有貸款的交易 ID
func (r *LoanRepository) attach(db *gorm.DB, rows []sqlLoan) ([]*domain.Loan, error) {
	if len(rows) == 0 {
		return []*domain.Loan{}, nil
	}
	loanIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		loanIDs = append(loanIDs, row.ID)
	}

	var links []struct {
		ID     string
		LoanID string
	}
	err := db.Model(&sqlTransaction{}).
		Select("id", "loan_id").
		Where("loan_id IN ?", loanIDs).
		Order("created_at_ms ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}
	byLoan := make(map[string][]uuid.UUID, len(rows))
	for _, link := range links {
		id, err := uuid.Parse(link.ID)
		if err != nil {
			return nil, err
		}
		byLoan[link.LoanID] = append(byLoan[link.LoanID], id)
	}

	out := make([]*domain.Loan, 0, len(rows))
	for i := range rows {
		loan, err := rows[i].toDomain(byLoan[rows[i].ID])
		if err != nil {
			return nil, err
		}
		out = append(out, loan)
	}
	return out, nil
}

var _ usecase.LoanRepository = (*LoanRepository)(nil)
