package service

import (
	"context"
	"errors"

	"musicdist/internal/model"
	"musicdist/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrReleaseNotPayable = errors.New("发行不在可支付状态")
	ErrReleaseNotOwner   = errors.New("无权操作他人的发行")
	ErrInvalidType       = errors.New("发行类型不合法")
)

// ReleaseService 发行与购物车的薄封装
type ReleaseService struct {
	db          *gorm.DB
	releaseRepo *repository.ReleaseRepository
	cartRepo    *repository.CartRepository
}

func NewReleaseService(db *gorm.DB) *ReleaseService {
	return &ReleaseService{
		db:          db,
		releaseRepo: repository.NewReleaseRepository(db),
		cartRepo:    repository.NewCartRepository(db),
	}
}

type CreateReleaseRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Title  string `json:"title" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

func (s *ReleaseService) Create(ctx context.Context, req *CreateReleaseRequest) (*model.Release, error) {
	if req.Type != model.ReleaseTypeSingle && req.Type != model.ReleaseTypeAlbum {
		return nil, ErrInvalidType
	}

	release := &model.Release{
		UserID: req.UserID,
		Title:  req.Title,
		Type:   req.Type,
		Status: model.ReleaseStatusIncomplete,
	}
	if err := s.releaseRepo.Create(ctx, nil, release); err != nil {
		return nil, err
	}
	return release, nil
}

func (s *ReleaseService) Get(ctx context.Context, releaseID int64) (*model.Release, error) {
	return s.releaseRepo.GetByID(ctx, releaseID)
}

func (s *ReleaseService) ListByUser(ctx context.Context, userID int64, page, pageSize int) ([]*model.Release, int64, error) {
	return s.releaseRepo.ListByUserID(ctx, userID, page, pageSize)
}

// MarkComplete 资料填写完成，INCOMPLETE -> UNPAID，进入待支付
func (s *ReleaseService) MarkComplete(ctx context.Context, releaseID int64) error {
	return s.releaseRepo.UpdateStatus(ctx, nil, releaseID, model.ReleaseStatusIncomplete, model.ReleaseStatusUnpaid)
}

// ============================================================
// 购物车
// ============================================================

type AddCartRequest struct {
	UserID    int64 `json:"user_id" binding:"required"`
	ReleaseID int64 `json:"release_id" binding:"required"`
	Price     int64 `json:"price" binding:"required,gt=0"` // 分
}

// AddToCart 发行加入购物车，只有本人的待支付发行可以加入
func (s *ReleaseService) AddToCart(ctx context.Context, req *AddCartRequest) (*model.CartItem, error) {
	release, err := s.releaseRepo.GetByID(ctx, req.ReleaseID)
	if err != nil {
		return nil, err
	}
	if release.UserID != req.UserID {
		return nil, ErrReleaseNotOwner
	}
	if release.Status != model.ReleaseStatusUnpaid {
		return nil, ErrReleaseNotPayable
	}

	item := &model.CartItem{
		UserID:    req.UserID,
		ReleaseID: req.ReleaseID,
		Price:     req.Price,
	}
	if err := s.cartRepo.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ReleaseService) ListCart(ctx context.Context, userID int64) ([]*model.CartItem, error) {
	return s.cartRepo.ListByUserID(ctx, userID)
}

func (s *ReleaseService) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	return s.cartRepo.Remove(ctx, userID, itemID)
}
