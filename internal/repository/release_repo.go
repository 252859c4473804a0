package repository

import (
	"context"
	"errors"
	"time"

	"musicdist/internal/model"

	"gorm.io/gorm"
)

var (
	ErrReleaseNotFound      = errors.New("发行记录不存在")
	ErrReleaseStatusInvalid = errors.New("发行状态不合法")
)

type ReleaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

func (r *ReleaseRepository) Create(ctx context.Context, tx *gorm.DB, release *model.Release) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(release).Error
}

func (r *ReleaseRepository) GetByID(ctx context.Context, releaseID int64) (*model.Release, error) {
	var release model.Release
	err := r.db.WithContext(ctx).Where("id = ?", releaseID).First(&release).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReleaseNotFound
		}
		return nil, err
	}
	return &release, nil
}

// UpdateStatus 状态流转，带前置状态校验
func (r *ReleaseRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, releaseID int64, fromStatus, toStatus string) error {
	if !model.CanReleaseTransitionTo(fromStatus, toStatus) {
		return ErrReleaseStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Release{}).
		Where("id = ? AND status = ?", releaseID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReleaseStatusInvalid
	}

	return nil
}

// MarkProcessing 支付成功后把发行推进到审核中，并回填支付单号
// 支付事务提交后逐条调用，单条失败不回滚支付（履约是独立环节）
func (r *ReleaseRepository) MarkProcessing(ctx context.Context, releaseID int64, paymentNo string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Release{}).
		Where("id = ? AND status = ?", releaseID, model.ReleaseStatusUnpaid).
		Updates(map[string]interface{}{
			"status":     model.ReleaseStatusProcessing,
			"payment_no": paymentNo,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReleaseStatusInvalid
	}

	return nil
}

// GetStaleReleases 查询某一档位待催办的发行
//
// 查询条件用 reminders_sent = stage-1 精确匹配，保证：
// 1. 每次扫描一个发行最多前进一档
// 2. 已经推进过的发行不会被更早档位的查询再次命中
// maxAge 为零值表示该档位没有时间上限（1天以上的档位都是开区间）
func (r *ReleaseRepository) GetStaleReleases(ctx context.Context, remindersSent int, minAge, maxAge time.Duration, now time.Time, limit int) ([]*model.Release, error) {
	query := r.db.WithContext(ctx).
		Where("status IN ?", []string{model.ReleaseStatusIncomplete, model.ReleaseStatusUnpaid}).
		Where("reminders_sent = ?", remindersSent).
		Where("created_at < ?", now.Add(-minAge))

	if maxAge > 0 {
		query = query.Where("created_at > ?", now.Add(-maxAge))
	}

	var releases []*model.Release
	err := query.Order("created_at ASC").Limit(limit).Find(&releases).Error
	return releases, err
}

// AdvanceReminderStage 推进催办档位
// 条件更新保证计数只会 +1，多实例并发扫描时只有一个写成功
func (r *ReleaseRepository) AdvanceReminderStage(ctx context.Context, releaseID int64, stage int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Release{}).
		Where("id = ? AND reminders_sent = ?", releaseID, stage-1).
		Update("reminders_sent", stage)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrReleaseStatusInvalid
	}

	return nil
}

func (r *ReleaseRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.Release, int64, error) {
	var releases []*model.Release
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Release{}).Where("user_id = ?", userID)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&releases).Error

	return releases, total, err
}
