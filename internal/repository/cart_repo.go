package repository

import (
	"context"
	"errors"

	"musicdist/internal/model"

	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("购物车条目不存在")
)

type CartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Add(ctx context.Context, item *model.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *CartRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *CartRepository) Remove(ctx context.Context, userID, itemID int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, userID).
		Delete(&model.CartItem{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

// RemoveByReleaseID 按发行维度清除购物车条目，支付成功后逐条调用
func (r *CartRepository) RemoveByReleaseID(ctx context.Context, userID, releaseID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND release_id = ?", userID, releaseID).
		Delete(&model.CartItem{}).Error
}
