package model

import (
	"time"
)

const (
	CouponStatusPending  = "PENDING"  // 待人工审核
	CouponStatusApproved = "APPROVED" // 已批准，生成了券码
	CouponStatusRejected = "REJECTED" // 已驳回
	CouponStatusUsed     = "USED"     // 已核销，不可再用
)

// 券的状态机：PENDING -> APPROVED/REJECTED，APPROVED -> USED，其余一律非法
var ValidCouponTransitions = map[string][]string{
	CouponStatusPending:  {CouponStatusApproved, CouponStatusRejected},
	CouponStatusApproved: {CouponStatusUsed},
}

func CanCouponTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidCouponTransitions[currentStatus]
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

// CouponApplication 优惠券申请表
//
// Items 是申请时购物车的按值快照，之后购物车怎么变都不影响这里；
// 核销时要求当前购物车与快照完全对得上（见 service/coupon_service.go）
type CouponApplication struct {
	ID               int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64              `gorm:"index;not null" json:"user_id"`
	Email            string             `gorm:"type:varchar(128);not null" json:"email"`
	Name             string             `gorm:"type:varchar(128)" json:"name"`
	Items            []CartItemSnapshot `gorm:"serializer:json" json:"items"`
	SocialLink1      string             `gorm:"type:varchar(512);not null" json:"social_link1"`
	SocialLink2      string             `gorm:"type:varchar(512);not null" json:"social_link2"`
	SocialLink3      string             `gorm:"type:varchar(512);not null" json:"social_link3"`
	Status           string             `gorm:"type:varchar(20);index;not null" json:"status"`
	Code             string             `gorm:"type:varchar(16);uniqueIndex;default:null" json:"code"` // 批准后生成，未批准时为 NULL
	DiscountPercent  int                `gorm:"not null;default:0" json:"discount_percent"`
	TotalAmount      int64              `gorm:"not null;default:0" json:"total_amount"`      // 快照合计（分）
	DiscountedAmount int64              `gorm:"not null;default:0" json:"discounted_amount"` // 减免金额（分）
	PayableAmount    int64              `gorm:"not null;default:0" json:"payable_amount"`    // 用券后应付（分）
	UsedAt           *time.Time         `json:"used_at"`
	CreatedAt        time.Time          `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CouponApplication) TableName() string {
	return "coupon_application"
}
