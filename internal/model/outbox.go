package model

import (
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// 邮件模板标识，payload 里带的 template 字段取这些值
// 邮件服务消费 Kafka 消息后按模板渲染，这里只负责投递
const (
	MailTemplateReminderNudge    = "release_reminder_nudge" // 第一档轻提醒
	MailTemplateReminder24h      = "release_reminder_24h"
	MailTemplateReminder3d       = "release_reminder_3d"
	MailTemplateReminder7d       = "release_reminder_7d"
	MailTemplateCouponApproved   = "coupon_approved"
	MailTemplateCouponRejected   = "coupon_rejected"
	MailTemplatePaymentReceipt   = "payment_receipt"
	MailTemplateWithdrawalIntake = "withdrawal_received"
	MailTemplateResetCode        = "password_reset_code"
)

// OutboxMessage 通知发件箱
// 业务操作在本地事务里只写一行发件箱记录，后台任务再投递到 Kafka，
// 邮件服务挂了不影响资金操作本身（通知是尽力而为）
type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}
