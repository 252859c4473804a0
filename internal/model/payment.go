package model

import (
	"time"
)

// Payment 支付单表
// 一次结算（购物车整单）对应一条支付单，发行记录通过 payment_no 反向关联
type Payment struct {
	ID          int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentNo   string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"payment_no"`
	UserID      int64              `gorm:"index;not null" json:"user_id"`
	Reference   string             `gorm:"type:varchar(128);not null" json:"reference"` // 支付渠道凭证号
	Items       []CartItemSnapshot `gorm:"serializer:json" json:"items"`
	TotalAmount int64              `gorm:"not null" json:"total_amount"` // 条目价格合计（分）
	PaidAmount  int64              `gorm:"not null" json:"paid_amount"`  // 实付金额（分），用券后可能小于合计
	CreatedAt   time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Payment) TableName() string {
	return "payment"
}
