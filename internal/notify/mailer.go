package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"musicdist/internal/config"
	"musicdist/internal/model"
	"musicdist/internal/repository"

	"gorm.io/gorm"
)

// Mailer 通知出口
// 所有业务邮件都先写发件箱（outbox_message），由 job.NotificationSender
// 异步投递到 Kafka，邮件服务在下游消费渲染。
// 资金/核销操作把发件箱写入放进自己的事务里，通知和业务数据同生共死；
// 事务外的调用方（催办任务等）失败只记日志，不影响业务结果。
type Mailer struct {
	outboxRepo *repository.OutboxRepository
	topic      string
}

func NewMailer(db *gorm.DB, cfg *config.Config) *Mailer {
	return &Mailer{
		outboxRepo: repository.NewOutboxRepository(db),
		topic:      cfg.Kafka.Topic.Notification,
	}
}

// enqueue 组装标准信封并写入发件箱
// tx 可以为 nil，此时单独落库
func (m *Mailer) enqueue(ctx context.Context, tx *gorm.DB, messageKey, template, email, name string, params map[string]interface{}) error {
	envelope := map[string]interface{}{
		"template": template,
		"to":       email,
		"name":     name,
		"params":   params,
	}
	payloadBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}

	msg := &model.OutboxMessage{
		MessageKey: messageKey,
		Topic:      m.topic,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	return m.outboxRepo.Create(ctx, tx, msg)
}

// SendReleaseReminder 催办提醒，link 是按发行类型拼好的深链接
func (m *Mailer) SendReleaseReminder(ctx context.Context, template, email, name string, releaseID int64, title, link string) error {
	key := fmt.Sprintf("reminder:%d:%s", releaseID, template)
	return m.enqueue(ctx, nil, key, template, email, name, map[string]interface{}{
		"release_id": releaseID,
		"title":      title,
		"link":       link,
	})
}

// SendCouponApproved 优惠券批准通知，带券码和金额明细
func (m *Mailer) SendCouponApproved(ctx context.Context, email, name, code string, discountPercent int, totalAmount, discountedAmount, payableAmount int64) error {
	return m.enqueue(ctx, nil, "coupon:"+code, model.MailTemplateCouponApproved, email, name, map[string]interface{}{
		"code":              code,
		"discount_percent":  discountPercent,
		"total_amount":      totalAmount,
		"discounted_amount": discountedAmount,
		"payable_amount":    payableAmount,
	})
}

// SendCouponRejected 优惠券驳回通知
func (m *Mailer) SendCouponRejected(ctx context.Context, email, name string, couponID int64) error {
	key := fmt.Sprintf("coupon:rejected:%d", couponID)
	return m.enqueue(ctx, nil, key, model.MailTemplateCouponRejected, email, name, nil)
}

// SendPaymentReceipt 支付回执，在支付事务内写入
func (m *Mailer) SendPaymentReceipt(ctx context.Context, tx *gorm.DB, email, name, paymentNo string, paidAmount int64) error {
	return m.enqueue(ctx, tx, "payment:"+paymentNo, model.MailTemplatePaymentReceipt, email, name, map[string]interface{}{
		"payment_no":  paymentNo,
		"paid_amount": paidAmount,
	})
}

// SendWithdrawalReceived 提现受理通知，在提现事务内写入
func (m *Mailer) SendWithdrawalReceived(ctx context.Context, tx *gorm.DB, email, name, transactionNo string, amount int64, currency string) error {
	return m.enqueue(ctx, tx, "withdrawal:"+transactionNo, model.MailTemplateWithdrawalIntake, email, name, map[string]interface{}{
		"transaction_no": transactionNo,
		"amount":         amount,
		"currency":       currency,
	})
}

// SendResetCode 密码重置验证码
func (m *Mailer) SendResetCode(ctx context.Context, email, name, code string) error {
	return m.enqueue(ctx, nil, "reset:"+email, model.MailTemplateResetCode, email, name, map[string]interface{}{
		"code": code,
	})
}
