package job

import (
	"context"
	"fmt"
	"log"
	"time"

	"musicdist/internal/config"
	"musicdist/internal/model"
	"musicdist/internal/notify"
	"musicdist/internal/repository"

	"gorm.io/gorm"
)

// ============================================================================
// 发行催办任务
// ============================================================================
//
// 艺人建了发行却迟迟不填完资料/不付款，按时间档位发提醒邮件：
//
//   档位1: 创建后 2-3 小时，轻提醒
//   档位2: 超过 1 天
//   档位3: 超过 3 天
//   档位4: 超过 7 天
//   档位5: 超过 30 天
//
// 每个发行带一个 reminders_sent 计数，查询精确匹配 reminders_sent = 档位-1，
// 所以一次扫描每个发行最多前进一档，重启/重复扫描天然幂等。
// 先写通知再推进计数（at-least-once）：两步之间崩溃会在下次扫描重发
// 这一封提醒——多发一封无害，静默跳过一档才是问题
// ============================================================================

type reminderStage struct {
	Stage    int
	MinAge   time.Duration
	MaxAge   time.Duration // 0 表示没有上限
	Template string
}

var reminderStages = []reminderStage{
	{Stage: 1, MinAge: 2 * time.Hour, MaxAge: 3 * time.Hour, Template: model.MailTemplateReminderNudge},
	{Stage: 2, MinAge: 24 * time.Hour, Template: model.MailTemplateReminder24h},
	{Stage: 3, MinAge: 3 * 24 * time.Hour, Template: model.MailTemplateReminder3d},
	{Stage: 4, MinAge: 7 * 24 * time.Hour, Template: model.MailTemplateReminder7d},
	// 30天档沿用3天的邮件模板，与线上文案保持一致（模板归内容团队管）
	{Stage: 5, MinAge: 30 * 24 * time.Hour, Template: model.MailTemplateReminder3d},
}

// ReleaseStore 任务需要的发行查询/推进能力
type ReleaseStore interface {
	GetStaleReleases(ctx context.Context, remindersSent int, minAge, maxAge time.Duration, now time.Time, limit int) ([]*model.Release, error)
	AdvanceReminderStage(ctx context.Context, releaseID int64, stage int) error
}

// UserStore 收件人查询
type UserStore interface {
	GetByID(ctx context.Context, userID int64) (*model.User, error)
}

// ReminderNotifier 提醒出口
type ReminderNotifier interface {
	SendReleaseReminder(ctx context.Context, template, email, name string, releaseID int64, title, link string) error
}

// ReleaseReminderJob 发行催办任务
// 扫描在 ticker 循环里同步执行，单实例内不可能有两次扫描并发；
// 多实例部署时靠 AdvanceReminderStage 的条件更新保证每档只发一次
type ReleaseReminderJob struct {
	releaseStore ReleaseStore
	userStore    UserStore
	notifier     ReminderNotifier
	baseURL      string
	stopCh       chan struct{}
	interval     time.Duration
	batchSize    int
	now          func() time.Time // 测试时注入固定时钟
}

func NewReleaseReminderJob(db *gorm.DB, cfg *config.Config) *ReleaseReminderJob {
	interval := time.Duration(cfg.Business.ReminderIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}
	batchSize := cfg.Business.ReminderBatchSize
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ReleaseReminderJob{
		releaseStore: repository.NewReleaseRepository(db),
		userStore:    repository.NewUserRepository(db),
		notifier:     notify.NewMailer(db, cfg),
		baseURL:      cfg.App.BaseURL,
		stopCh:       make(chan struct{}),
		interval:     interval,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

func (j *ReleaseReminderJob) Start(ctx context.Context) {
	log.Println("[ReleaseReminderJob] 发行催办任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ReleaseReminderJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[ReleaseReminderJob] 任务停止")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *ReleaseReminderJob) Stop() {
	close(j.stopCh)
}

// sweep 按档位升序扫一遍
// handled 记录本次扫描已处理过的发行：一个发行刚在低档位前进过，
// 它的新计数可能立刻满足下一档的查询条件，必须跳过，
// 保证一次扫描每个发行最多前进一档
func (j *ReleaseReminderJob) sweep(ctx context.Context) {
	now := j.now()
	handled := make(map[int64]struct{})

	for _, stage := range reminderStages {
		releases, err := j.releaseStore.GetStaleReleases(ctx, stage.Stage-1, stage.MinAge, stage.MaxAge, now, j.batchSize)
		if err != nil {
			log.Printf("[ReleaseReminderJob] 查询待催办发行失败: stage=%d, err=%v", stage.Stage, err)
			continue
		}

		if len(releases) == 0 {
			continue
		}

		log.Printf("[ReleaseReminderJob] 档位%d 待催办 %d 个发行", stage.Stage, len(releases))

		for _, release := range releases {
			if _, ok := handled[release.ID]; ok {
				continue
			}
			handled[release.ID] = struct{}{}
			j.remind(ctx, release, stage)
		}
	}
}

// remind 处理单个发行，任何一步失败只影响它自己
func (j *ReleaseReminderJob) remind(ctx context.Context, release *model.Release, stage reminderStage) {
	// 用户查不到不挡催办，收件人字段留空交给下游处理
	var email, name string
	user, err := j.userStore.GetByID(ctx, release.UserID)
	if err != nil {
		log.Printf("[ReleaseReminderJob] 查询用户失败，按空收件人继续: releaseID=%d, userID=%d, err=%v",
			release.ID, release.UserID, err)
	} else {
		email = user.Email
		name = user.FullName()
	}

	link := buildReleaseLink(j.baseURL, release)

	if err := j.notifier.SendReleaseReminder(ctx, stage.Template, email, name, release.ID, release.Title, link); err != nil {
		// 通知没写成功就不推进档位，下次扫描重试这一档
		log.Printf("[ReleaseReminderJob] 写入提醒失败: releaseID=%d, stage=%d, err=%v", release.ID, stage.Stage, err)
		return
	}

	if err := j.releaseStore.AdvanceReminderStage(ctx, release.ID, stage.Stage); err != nil {
		// 推进失败说明别的实例抢先推进了，或者下次扫描会重发——都可接受
		log.Printf("[ReleaseReminderJob] 推进档位失败: releaseID=%d, stage=%d, err=%v", release.ID, stage.Stage, err)
		return
	}

	log.Printf("[ReleaseReminderJob] 已发送档位%d提醒: releaseID=%d, template=%s", stage.Stage, release.ID, stage.Template)
}

// buildReleaseLink 按发行类型拼深链接，单曲和专辑的编辑页路径不同
func buildReleaseLink(baseURL string, release *model.Release) string {
	if release.Type == model.ReleaseTypeAlbum {
		return fmt.Sprintf("%s/release/album/%d", baseURL, release.ID)
	}
	return fmt.Sprintf("%s/release/single/%d", baseURL, release.ID)
}
