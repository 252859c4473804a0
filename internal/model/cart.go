package model

import (
	"time"
)

// CartItem 购物车条目
// 一条记录对应一个待支付的发行，支付成功后删除
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	ReleaseID int64     `gorm:"index;not null" json:"release_id"`
	Price     int64     `gorm:"not null" json:"price"` // 分发费用（分）
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CartItem) TableName() string {
	return "cart_item"
}

// CartItemSnapshot 购物车快照条目
// 优惠券申请和支付流水里保存的都是按值拷贝的快照，
// 之后购物车再怎么变都不影响已存的记录
type CartItemSnapshot struct {
	ReleaseID int64  `json:"release_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
}

// SnapshotTotal 计算快照条目的价格总和
func SnapshotTotal(items []CartItemSnapshot) int64 {
	var total int64
	for _, item := range items {
		total += item.Price
	}
	return total
}
