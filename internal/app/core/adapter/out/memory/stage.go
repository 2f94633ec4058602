package memory

import (
	"time"

	"github.com/JoeShih716/go-bank-core/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-core/internal/app/core/usecase"
)

// stage 取出 ids 對應的帳戶建立 StagedTx；任何一個帳戶不存在就回傳 ErrAccountNotFound
func stage(ids []int64, lookup func(id int64) (*domain.Account, bool), now time.Time) (*usecase.StagedTx, error) {
	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		account, ok := lookup(id)
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		accounts = append(accounts, account)
	}
	return usecase.NewStagedTx(accounts, now), nil
}
