package domain

import "github.com/shopspring/decimal"

// MoneyScale 金額一律保留小數點後 2 位 (四捨五入，half-up)
const MoneyScale int32 = 2

// DailyTransactionLimit 每個帳戶每日同方向成功交易的總額上限 (含邊界)
var DailyTransactionLimit = decimal.NewFromInt(50000)

// RoundMoney 將金額四捨五入到 MoneyScale
//
// decimal.Round 對 .5 採遠離零的方向進位，對正數等同 half-up。
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// IsValidAmount 金額必須大於 0，且小數位數不超過 MoneyScale
//
// "10.50" 與 "10.5" 都合法；"0.001" 不合法。
func IsValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(RoundMoney(d))
}
