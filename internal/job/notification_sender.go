package job

import (
	"context"
	"log"
	"time"

	"musicdist/internal/config"
	"musicdist/internal/infrastructure/mq"
	"musicdist/internal/model"
	"musicdist/internal/repository"

	"gorm.io/gorm"
)

// NotificationSender 通知发件箱投递任务
// 轮询 outbox_message 的 PENDING 记录发到 Kafka，
// 发送失败累计重试，超过上限标记 FAILED 等人工处理
type NotificationSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewNotificationSender(db *gorm.DB, cfg *config.Config) *NotificationSender {
	return &NotificationSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   200 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *NotificationSender) Start(ctx context.Context) {
	log.Println("[NotificationSender] 通知投递任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[NotificationSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[NotificationSender] 任务停止")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *NotificationSender) Stop() {
	close(s.stopCh)
}

func (s *NotificationSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.Printf("[NotificationSender] 查询通知失败: %v", err)
		return
	}

	if len(messages) == 0 {
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *NotificationSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)

	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			log.Printf("[NotificationSender] 更新通知状态失败: id=%d, err=%v", msg.ID, updateErr)
		}
		return
	}

	log.Printf("[NotificationSender] 通知投递失败: id=%d, err=%v", msg.ID, err)

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.Printf("[NotificationSender] 标记通知失败状态失败: id=%d, err=%v", msg.ID, err)
		} else {
			log.Printf("[NotificationSender] 通知超过最大重试次数，标记为失败: id=%d", msg.ID)
		}
		return
	}

	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.Printf("[NotificationSender] 增加重试次数失败: id=%d, err=%v", msg.ID, err)
	}
}
