package domain

import "errors"

// 前置條件錯誤 (Precondition failures)：直接回傳給呼叫端，不會產生任何交易紀錄。
// 金額相關的結果 (餘額不足、超過每日上限、溢繳) 則一律落地為 FAILED 的 Transaction。
var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance 餘額不足 (Ledger 層級)
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrAccountNotActive 帳戶非 ACTIVE 狀態
	ErrAccountNotActive = errors.New("account is not active")

	// ErrAccountClosed 帳戶已結清，無法變更狀態
	ErrAccountClosed = errors.New("account is closed")

	// ErrAccountBalanceNotZero 結清帳戶前餘額必須為零
	ErrAccountBalanceNotZero = errors.New("account balance must be zero to close")

	// ErrAccountHasActiveLoans 帳戶仍有未結清的貸款
	ErrAccountHasActiveLoans = errors.New("account has active loans")

	// ErrAccountNotLocked 在 Execute 內操作了未鎖定的帳戶
	ErrAccountNotLocked = errors.New("account is not locked by this operation")

	// ErrInvalidAccountType 帳戶類型錯誤
	ErrInvalidAccountType = errors.New("invalid account type")

	// ErrInvalidAccountStatus 帳戶狀態錯誤
	ErrInvalidAccountStatus = errors.New("invalid account status")

	// ErrSameAccountTransaction 轉出與轉入帳戶相同
	ErrSameAccountTransaction = errors.New("source and destination accounts must differ")

	// ErrTransactionNotFound 找不到交易紀錄
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrLoanNotFound 找不到貸款
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanNotDisbursed 貸款非 DISBURSED 狀態 (無法還款)
	ErrLoanNotDisbursed = errors.New("loan is not disbursed")

	// ErrInvalidLoanState 不允許的貸款狀態轉換
	ErrInvalidLoanState = errors.New("operation not allowed in current loan state")

	// ErrOverdueLoanExists 帳戶已有逾期貸款，不可再申請
	ErrOverdueLoanExists = errors.New("account has an overdue loan")

	// ErrInvalidPrincipal 本金必須為正數
	ErrInvalidPrincipal = errors.New("principal must be positive")

	// ErrInvalidInterestRate 年利率不可為負數
	ErrInvalidInterestRate = errors.New("annual interest rate must not be negative")

	// ErrInvalidTenure 期數必須為正整數
	ErrInvalidTenure = errors.New("tenure must be a positive number of months")

	// ErrAccessDenied 呼叫者無權操作此資源
	ErrAccessDenied = errors.New("access denied")

	// ErrWALWriteFailed 寫入 WAL 失敗
	ErrWALWriteFailed = errors.New("wal write failed")
)
