package model

import (
	"time"
)

// User 用户表
// 记录艺人/厂牌的基础信息和钱包余额，余额是整个结算系统的核心数据
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"type:varchar(64)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(64)" json:"last_name"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"` // 可提现余额（分）
	Version   int       `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// FullName 拼接展示名，提醒邮件个性化用
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
