package model

import (
	"time"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionTypeWithdrawal = "WITHDRAWAL" // 提现
	TransactionTypeCredit     = "CREDIT"     // 入账（版税结算）
	TransactionTypeDebit      = "DEBIT"      // 扣款
	TransactionTypePayment    = "PAYMENT"    // 分发费支付
)

const (
	TransactionStatusPending    = "PENDING"
	TransactionStatusProcessing = "PROCESSING"
	TransactionStatusSuccess    = "SUCCESS"
	TransactionStatusComplete   = "COMPLETE"
	TransactionStatusFailed     = "FAILED"
)

var ValidTransactionTransitions = map[string][]string{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusFailed},
	TransactionStatusProcessing: {TransactionStatusSuccess, TransactionStatusComplete, TransactionStatusFailed},
	TransactionStatusSuccess:    {TransactionStatusComplete},
}

func CanTransactionTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidTransactionTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// ============================================================================
// 流水负载（按交易类型区分）
// ============================================================================

// ExchangeRateQuote 汇率报价
// 由调用方（汇率接口的外围代码）传入，这里原样落库，不做二次校验
type ExchangeRateQuote struct {
	Rate           float64 `json:"rate"`
	SourceAmount   int64   `json:"source_amount"`
	SourceCurrency string  `json:"source_currency"`
	TargetAmount   int64   `json:"target_amount"`
	TargetCurrency string  `json:"target_currency"`
}

// WithdrawalDetail 提现流水负载
type WithdrawalDetail struct {
	PayoutMethodID int64             `json:"payout_method_id"` // 用户保存的收款方式ID
	AccountName    string            `json:"account_name"`
	AccountNumber  string            `json:"account_number"`
	BankName       string            `json:"bank_name"`
	Currency       string            `json:"currency"`
	Narration      string            `json:"narration"`
	Quote          ExchangeRateQuote `json:"quote"`
}

// PaymentDetail 支付流水负载，内嵌下单时的购物车快照
type PaymentDetail struct {
	PaymentNo   string             `json:"payment_no"`
	Reference   string             `json:"reference"` // 支付渠道回传的凭证号
	Items       []CartItemSnapshot `json:"items"`
	TotalAmount int64              `json:"total_amount"`
	PaidAmount  int64              `json:"paid_amount"`
}

// ============================================================================
// 流水实体
// ============================================================================

// Transaction 账户流水表
// 记录账户的每一笔资金事件，是对账的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加业务字段不修改，不删除 —— 保证审计可追溯（status 除外，
//    提现流水由管理端按状态机推进）
// 2. 记录交易前后余额 —— 便于校验余额一致性
// 3. 负载按交易类型分列存储，提现和支付各有独立的结构化负载，
//    避免一个松散的大字段里什么都塞
type Transaction struct {
	ID            int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string            `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID        int64             `gorm:"index;not null" json:"user_id"`
	Email         string            `gorm:"type:varchar(128);not null" json:"email"`
	Type          string            `gorm:"type:varchar(20);not null" json:"type"`
	Amount        int64             `gorm:"not null" json:"amount"` // 正数入账，负数出账
	Description   string            `gorm:"type:varchar(256)" json:"description"`
	Status        string            `gorm:"type:varchar(20);index;not null" json:"status"`
	BalanceBefore int64             `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64             `gorm:"not null" json:"balance_after"`
	Withdrawal    *WithdrawalDetail `gorm:"serializer:json" json:"withdrawal,omitempty"`
	Payment       *PaymentDetail    `gorm:"serializer:json" json:"payment,omitempty"`
	CreatedAt     time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}
