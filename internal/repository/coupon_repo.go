package repository

import (
	"context"
	"errors"
	"time"

	"musicdist/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCouponNotFound = errors.New("优惠券不存在")
	ErrCouponConflict = errors.New("优惠券状态已变更，请重试")
	ErrCouponCodeDup  = errors.New("券码已存在")
)

type CouponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) Create(ctx context.Context, coupon *model.CouponApplication) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *CouponRepository) GetByID(ctx context.Context, couponID int64) (*model.CouponApplication, error) {
	var coupon model.CouponApplication
	err := r.db.WithContext(ctx).Where("id = ?", couponID).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*model.CouponApplication, error) {
	var coupon model.CouponApplication
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// Approve 批准申请：写入券码和折扣金额，PENDING -> APPROVED
//
// WHERE 限定 status = PENDING，两个管理员同时审批只有一个生效；
// code 列有唯一索引，撞码返回 ErrCouponCodeDup，由上层换码重试
func (r *CouponRepository) Approve(ctx context.Context, couponID int64, code string, discountPercent int, totalAmount, discountedAmount, payableAmount int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.CouponApplication{}).
		Where("id = ? AND status = ?", couponID, model.CouponStatusPending).
		Updates(map[string]interface{}{
			"status":            model.CouponStatusApproved,
			"code":              code,
			"discount_percent":  discountPercent,
			"total_amount":      totalAmount,
			"discounted_amount": discountedAmount,
			"payable_amount":    payableAmount,
		})

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrCouponCodeDup
		}
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCouponConflict
	}

	return nil
}

// Reject 驳回申请：PENDING -> REJECTED，清空券码和折扣字段
func (r *CouponRepository) Reject(ctx context.Context, couponID int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.CouponApplication{}).
		Where("id = ? AND status = ?", couponID, model.CouponStatusPending).
		Updates(map[string]interface{}{
			"status":            model.CouponStatusRejected,
			"code":              nil,
			"discount_percent":  0,
			"discounted_amount": 0,
			"payable_amount":    0,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCouponConflict
	}

	return nil
}

// MarkUsed 核销：APPROVED -> USED，盖上使用时间
//
// 【关键点】单条条件更新就是整个核销的原子点：
// 两个并发核销请求只有一个 RowsAffected=1，另一个拿到 ErrCouponConflict，
// 已核销的券无论提交多少次都不会再次成功
func (r *CouponRepository) MarkUsed(ctx context.Context, couponID int64, usedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.CouponApplication{}).
		Where("id = ? AND status = ?", couponID, model.CouponStatusApproved).
		Updates(map[string]interface{}{
			"status":  model.CouponStatusUsed,
			"used_at": usedAt,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCouponConflict
	}

	return nil
}

func (r *CouponRepository) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.CouponApplication, int64, error) {
	var coupons []*model.CouponApplication
	var total int64

	query := r.db.WithContext(ctx).Model(&model.CouponApplication{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&coupons).Error

	return coupons, total, err
}
