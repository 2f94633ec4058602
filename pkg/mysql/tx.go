package mysql

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// ContextWithTx 把進行中的 gorm 交易放進 ctx，同一個邏輯操作的 repository 都寫進同一個交易
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Conn 回傳 ctx 中的交易；沒有交易時回傳 db
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
