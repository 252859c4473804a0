package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"musicdist/internal/config"
	"musicdist/internal/model"
	"musicdist/internal/notify"
	"musicdist/internal/repository"
	"musicdist/pkg/idgen"

	"gorm.io/gorm"
)

var (
	ErrCouponNotOwner  = errors.New("只能核销本人申请的优惠券")
	ErrCouponNotUsable = errors.New("优惠券已失效")
	ErrCartMismatch    = errors.New("购物车内容与申请时不一致")
	ErrInvalidPercent  = errors.New("折扣比例必须在1-100之间")
)

// 撞码重试上限，code 列唯一索引兜底
const couponCodeMaxRetries = 5

type couponStore interface {
	Create(ctx context.Context, coupon *model.CouponApplication) error
	GetByID(ctx context.Context, couponID int64) (*model.CouponApplication, error)
	GetByCode(ctx context.Context, code string) (*model.CouponApplication, error)
	Approve(ctx context.Context, couponID int64, code string, discountPercent int, totalAmount, discountedAmount, payableAmount int64) error
	Reject(ctx context.Context, couponID int64) error
	MarkUsed(ctx context.Context, couponID int64, usedAt time.Time) error
	ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.CouponApplication, int64, error)
}

type couponNotifier interface {
	SendCouponApproved(ctx context.Context, email, name, code string, discountPercent int, totalAmount, discountedAmount, payableAmount int64) error
	SendCouponRejected(ctx context.Context, email, name string, couponID int64) error
}

// CouponService 优惠券服务
// 申请 -> 人工审核（批准/驳回）-> 核销，状态机见 model.ValidCouponTransitions
type CouponService struct {
	cfg        *config.Config
	mailer     couponNotifier
	couponRepo couponStore
	userRepo   userStore
}

func NewCouponService(db *gorm.DB, cfg *config.Config) *CouponService {
	return &CouponService{
		cfg:        cfg,
		mailer:     notify.NewMailer(db, cfg),
		couponRepo: repository.NewCouponRepository(db),
		userRepo:   repository.NewUserRepository(db),
	}
}

// ============================================================
// 申请
// ============================================================

type CouponApplyRequest struct {
	UserID      int64                    `json:"user_id" binding:"required"`
	Items       []model.CartItemSnapshot `json:"items" binding:"required,min=1,dive"`
	SocialLink1 string                   `json:"social_link1" binding:"required,url"`
	SocialLink2 string                   `json:"social_link2" binding:"required,url"`
	SocialLink3 string                   `json:"social_link3" binding:"required,url"`
}

// Apply 提交优惠券申请
// Items 在这里定格成快照，之后购物车的变动不影响审核和核销
func (s *CouponService) Apply(ctx context.Context, req *CouponApplyRequest) (*model.CouponApplication, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	coupon := &model.CouponApplication{
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.FullName(),
		Items:       req.Items,
		SocialLink1: req.SocialLink1,
		SocialLink2: req.SocialLink2,
		SocialLink3: req.SocialLink3,
		Status:      model.CouponStatusPending,
		TotalAmount: model.SnapshotTotal(req.Items),
	}

	if err := s.couponRepo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("创建优惠券申请失败: %w", err)
	}

	return coupon, nil
}

// ============================================================
// 审核
// ============================================================

// computeDiscount 按折扣比例计算减免和应付金额（分）
func computeDiscount(totalAmount int64, discountPercent int) (discountedAmount, payableAmount int64) {
	discountedAmount = totalAmount * int64(discountPercent) / 100
	payableAmount = totalAmount - discountedAmount
	return
}

// Approve 批准申请：计算金额、生成券码、发通知
// 券码撞唯一索引时换码重试，重试耗尽才报错
func (s *CouponService) Approve(ctx context.Context, couponID int64, discountPercent int) (*model.CouponApplication, error) {
	if discountPercent <= 0 || discountPercent > 100 {
		return nil, ErrInvalidPercent
	}

	coupon, err := s.couponRepo.GetByID(ctx, couponID)
	if err != nil {
		return nil, err
	}

	totalAmount := model.SnapshotTotal(coupon.Items)
	discountedAmount, payableAmount := computeDiscount(totalAmount, discountPercent)

	var code string
	for i := 0; i < couponCodeMaxRetries; i++ {
		code = idgen.GenerateCouponCode(s.cfg.Business.CouponCodeLength)
		err = s.couponRepo.Approve(ctx, couponID, code, discountPercent, totalAmount, discountedAmount, payableAmount)
		if errors.Is(err, repository.ErrCouponCodeDup) {
			continue
		}
		break
	}
	if err != nil {
		return nil, err
	}

	// 通知尽力而为，失败不影响审批结果
	if mailErr := s.mailer.SendCouponApproved(ctx, coupon.Email, coupon.Name, code, discountPercent, totalAmount, discountedAmount, payableAmount); mailErr != nil {
		log.Printf("优惠券批准通知写入失败: couponID=%d, err=%v", couponID, mailErr)
	}

	log.Printf("优惠券已批准: couponID=%d, code=%s, percent=%d, payable=%d", couponID, code, discountPercent, payableAmount)

	return s.couponRepo.GetByID(ctx, couponID)
}

// Reject 驳回申请
func (s *CouponService) Reject(ctx context.Context, couponID int64) error {
	coupon, err := s.couponRepo.GetByID(ctx, couponID)
	if err != nil {
		return err
	}

	if err := s.couponRepo.Reject(ctx, couponID); err != nil {
		return err
	}

	if mailErr := s.mailer.SendCouponRejected(ctx, coupon.Email, coupon.Name, couponID); mailErr != nil {
		log.Printf("优惠券驳回通知写入失败: couponID=%d, err=%v", couponID, mailErr)
	}

	return nil
}

// ============================================================
// 核销
// ============================================================

type CouponRedeemRequest struct {
	UserID int64                    `json:"user_id" binding:"required"`
	Code   string                   `json:"code" binding:"required"`
	Items  []model.CartItemSnapshot `json:"items" binding:"required,min=1,dive"`
}

// cartMatches 核销时的购物车匹配规则，两个条件都必须成立：
// 1. 价格总和严格相等（分为单位，不留容差）
// 2. 发行ID集合相等：数量一致且互相包含，顺序无关，重复ID按集合折叠
//
// 注意：单条价格不逐一比对，总和相等且ID集合一致即通过——
// 折扣是按整单批的，单价在条目间挪动不影响整单口径（与线上行为保持一致）
func cartMatches(snapshot, candidate []model.CartItemSnapshot) bool {
	if model.SnapshotTotal(snapshot) != model.SnapshotTotal(candidate) {
		return false
	}

	snapshotIDs := make(map[int64]struct{}, len(snapshot))
	for _, item := range snapshot {
		snapshotIDs[item.ReleaseID] = struct{}{}
	}
	candidateIDs := make(map[int64]struct{}, len(candidate))
	for _, item := range candidate {
		candidateIDs[item.ReleaseID] = struct{}{}
	}

	if len(snapshotIDs) != len(candidateIDs) {
		return false
	}
	for id := range candidateIDs {
		if _, ok := snapshotIDs[id]; !ok {
			return false
		}
	}
	return true
}

// Redeem 核销优惠券
//
// 校验顺序：券码存在 -> 本人申请 -> 状态为 APPROVED -> 购物车匹配，
// 全部通过后用条件更新原子地置为 USED。
// 已核销的券重复提交是错误（返回已失效），不是幂等成功
func (s *CouponService) Redeem(ctx context.Context, req *CouponRedeemRequest) (*model.CouponApplication, error) {
	coupon, err := s.couponRepo.GetByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	if coupon.UserID != req.UserID {
		return nil, ErrCouponNotOwner
	}

	if coupon.Status != model.CouponStatusApproved {
		return nil, ErrCouponNotUsable
	}

	if !cartMatches(coupon.Items, req.Items) {
		return nil, ErrCartMismatch
	}

	// RowsAffected=0 说明并发核销抢先了一步，按冲突处理而不是静默成功
	usedAt := time.Now()
	if err := s.couponRepo.MarkUsed(ctx, coupon.ID, usedAt); err != nil {
		return nil, err
	}

	log.Printf("优惠券已核销: couponID=%d, code=%s, userID=%d", coupon.ID, req.Code, req.UserID)

	coupon.Status = model.CouponStatusUsed
	coupon.UsedAt = &usedAt
	return coupon, nil
}

// ============================================================
// 查询
// ============================================================

func (s *CouponService) GetByID(ctx context.Context, couponID int64) (*model.CouponApplication, error) {
	return s.couponRepo.GetByID(ctx, couponID)
}

func (s *CouponService) ListByStatus(ctx context.Context, status string, page, pageSize int) ([]*model.CouponApplication, int64, error) {
	return s.couponRepo.ListByStatus(ctx, status, page, pageSize)
}
