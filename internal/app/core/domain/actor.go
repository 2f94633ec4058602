package domain

// Role 呼叫者角色 (已由上游完成驗證)
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleEmployee Role = "EMPLOYEE"
)

// Actor 已驗證的呼叫者身分
type Actor struct {
	ID   int64
	Role Role
}

func Customer(id int64) Actor {
	return Actor{ID: id, Role: RoleCustomer}
}

func Employee(id int64) Actor {
	return Actor{ID: id, Role: RoleEmployee}
}

func (a Actor) IsEmployee() bool {
	return a.Role == RoleEmployee
}

// CanAccess 行員可操作任何帳戶，客戶只能操作自己的帳戶
func (a Actor) CanAccess(account *Account) bool {
	if a.IsEmployee() {
		return true
	}
	return a.Role == RoleCustomer && a.ID == account.CustomerID
}

// NotificationCategory 通知類別
type NotificationCategory string

const (
	NotificationDeposit          NotificationCategory = "DEPOSIT"
	NotificationWithdrawal       NotificationCategory = "WITHDRAWAL"
	NotificationTransfer         NotificationCategory = "TRANSFER"
	NotificationLoanStatus       NotificationCategory = "LOAN_STATUS"
	NotificationLoanDisbursement NotificationCategory = "LOAN_DISBURSEMENT"
	NotificationLoanRepayment    NotificationCategory = "LOAN_REPAYMENT"
	NotificationLoanClosed       NotificationCategory = "LOAN_CLOSED"
	NotificationAccount          NotificationCategory = "ACCOUNT"
)
