package model

import (
	"time"
)

const (
	ReleaseStatusIncomplete = "INCOMPLETE" // 资料未填完
	ReleaseStatusUnpaid     = "UNPAID"     // 资料齐全但未支付
	ReleaseStatusProcessing = "PROCESSING" // 已支付，等待审核分发
	ReleaseStatusApproved   = "APPROVED"   // 审核通过
	ReleaseStatusLive       = "LIVE"       // 已上线各平台
	ReleaseStatusRejected   = "REJECTED"   // 审核驳回
)

var ValidReleaseTransitions = map[string][]string{
	ReleaseStatusIncomplete: {ReleaseStatusUnpaid},
	ReleaseStatusUnpaid:     {ReleaseStatusProcessing},
	ReleaseStatusProcessing: {ReleaseStatusApproved, ReleaseStatusRejected},
	ReleaseStatusApproved:   {ReleaseStatusLive},
	ReleaseStatusRejected:   {ReleaseStatusProcessing},
}

func CanReleaseTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidReleaseTransitions[currentStatus]
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

const (
	ReleaseTypeSingle = "SINGLE"
	ReleaseTypeAlbum  = "ALBUM"
)

// Release 音乐发行表
// RemindersSent 记录已发送到第几档催办提醒，定时任务按档位推进，
// 每档只发一次（见 job/release_reminder.go）
type Release struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	Title         string    `gorm:"type:varchar(256);not null" json:"title"`
	Type          string    `gorm:"type:varchar(16);not null" json:"type"`
	Status        string    `gorm:"type:varchar(20);index;not null" json:"status"`
	RemindersSent int       `gorm:"not null;default:0" json:"reminders_sent"`
	PaymentNo     string    `gorm:"type:varchar(64);index" json:"payment_no"` // 支付后回填
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Release) TableName() string {
	return "release"
}
