package handler

import (
	"errors"
	"strconv"

	"musicdist/internal/config"
	"musicdist/internal/infrastructure/cache"
	"musicdist/internal/infrastructure/lock"
	"musicdist/internal/repository"
	"musicdist/internal/service"
	"musicdist/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	walletService  *service.WalletService
	couponService  *service.CouponService
	releaseService *service.ReleaseService
	authService    *service.AuthService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		walletService:  service.NewWalletService(db, rdb, cfg),
		couponService:  service.NewCouponService(db, cfg),
		releaseService: service.NewReleaseService(db),
		authService:    service.NewAuthService(db, rdb, cfg),
	}
}

// writeError 把服务层错误翻译成稳定的业务码
// 客户端靠业务码区分"余额不足""券已失效""系统错误"
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrBalanceNotEnough):
		response.BusinessError(c, response.CodeInsufficientBalance, err.Error())
	case errors.Is(err, repository.ErrUserNotFound):
		response.BusinessError(c, response.CodeUserNotFound, err.Error())
	case errors.Is(err, repository.ErrReleaseNotFound):
		response.BusinessError(c, response.CodeReleaseNotFound, err.Error())
	case errors.Is(err, repository.ErrCouponNotFound):
		response.BusinessError(c, response.CodeCouponNotFound, "券码无效")
	case errors.Is(err, service.ErrCouponNotOwner), errors.Is(err, service.ErrReleaseNotOwner):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrCouponNotUsable):
		response.BusinessError(c, response.CodeCouponNotUsable, err.Error())
	case errors.Is(err, service.ErrCartMismatch):
		response.BusinessError(c, response.CodeCartMismatch, err.Error())
	case errors.Is(err, repository.ErrCouponConflict):
		response.BusinessError(c, response.CodeCouponConflict, err.Error())
	// 锁竞争和乐观锁冲突都是"重试即可"，不能和系统错误混在500里
	case errors.Is(err, lock.ErrLockFailed), errors.Is(err, repository.ErrOptimisticLock):
		response.BusinessError(c, response.CodeSystemBusy, err.Error())
	case errors.Is(err, repository.ErrReleaseStatusInvalid), errors.Is(err, repository.ErrTransactionStatusInvalid):
		response.BusinessError(c, response.CodeStatusInvalid, err.Error())
	case errors.Is(err, cache.ErrResetCodeNotFound), errors.Is(err, cache.ErrResetCodeMismatch):
		response.BusinessError(c, response.CodeResetCodeInvalid, err.Error())
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidPercent), errors.Is(err, service.ErrInvalidType),
		errors.Is(err, service.ErrReleaseNotPayable), errors.Is(err, repository.ErrCartItemNotFound):
		response.ParamError(c, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}

// ============================================================
// 钱包相关接口
// ============================================================

// GetBalance 查询用户余额
// GET /api/v1/wallet/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	user, err := h.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"user_id": user.ID,
		"balance": user.Balance,
	})
}

// Withdraw 提现
// POST /api/v1/wallet/withdraw
//
// 【关键点】提现是资金离开账本的唯一入口：
// 1. 余额校验和扣减必须线性化（分布式锁 + 条件更新）
// 2. 余额变动和提现流水同一事务，要么都成功要么都失败
func (h *Handler) Withdraw(c *gin.Context) {
	var req service.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.walletService.Withdraw(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ListTransactions 查询流水列表
// GET /api/v1/wallet/transactions?user_id=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, pageSize := parsePage(c)

	transactions, total, err := h.walletService.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 支付相关接口
// ============================================================

// ConfirmPayment 支付确认（渠道回调/前端确认后调用）
// POST /api/v1/payment/confirm
func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.walletService.CreditFromPayment(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ============================================================
// 发行与购物车接口
// ============================================================

// CreateRelease 创建发行
// POST /api/v1/release/create
func (h *Handler) CreateRelease(c *gin.Context) {
	var req service.CreateReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	release, err := h.releaseService.Create(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, release)
}

// GetRelease 查询发行详情
// GET /api/v1/release/detail?release_id=xxx
func (h *Handler) GetRelease(c *gin.Context) {
	releaseIDStr := c.Query("release_id")
	releaseID, err := strconv.ParseInt(releaseIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "release_id 参数错误")
		return
	}

	release, err := h.releaseService.Get(c.Request.Context(), releaseID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, release)
}

// ListReleases 查询用户发行列表
// GET /api/v1/release/list?user_id=xxx&page=1&page_size=10
func (h *Handler) ListReleases(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	page, pageSize := parsePage(c)

	releases, total, err := h.releaseService.ListByUser(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      releases,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CompleteRelease 标记发行资料填写完成，进入待支付
// POST /api/v1/release/complete
func (h *Handler) CompleteRelease(c *gin.Context) {
	var req struct {
		ReleaseID int64 `json:"release_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.releaseService.MarkComplete(c.Request.Context(), req.ReleaseID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "发行已就绪，等待支付"})
}

// AddToCart 加入购物车
// POST /api/v1/cart/add
func (h *Handler) AddToCart(c *gin.Context) {
	var req service.AddCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	item, err := h.releaseService.AddToCart(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// ListCart 查询购物车
// GET /api/v1/cart/list?user_id=xxx
func (h *Handler) ListCart(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	items, err := h.releaseService.ListCart(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"list": items})
}

// RemoveFromCart 移出购物车
// POST /api/v1/cart/remove
func (h *Handler) RemoveFromCart(c *gin.Context) {
	var req struct {
		UserID int64 `json:"user_id" binding:"required"`
		ItemID int64 `json:"item_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.releaseService.RemoveFromCart(c.Request.Context(), req.UserID, req.ItemID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "已移出购物车"})
}

// ============================================================
// 优惠券接口
// ============================================================

// ApplyCoupon 提交优惠券申请
// POST /api/v1/coupon/apply
func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req service.CouponApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	coupon, err := h.couponService.Apply(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, coupon)
}

// RedeemCoupon 核销优惠券
// POST /api/v1/coupon/redeem
//
// 【关键点】核销要求：本人申请、状态为已批准、
// 当前购物车与申请时快照完全匹配（总价相等 + 发行ID集合相等）
func (h *Handler) RedeemCoupon(c *gin.Context) {
	var req service.CouponRedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	coupon, err := h.couponService.Redeem(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"code":              coupon.Code,
		"discount_percent":  coupon.DiscountPercent,
		"total_amount":      coupon.TotalAmount,
		"discounted_amount": coupon.DiscountedAmount,
		"payable_amount":    coupon.PayableAmount,
		"used_at":           coupon.UsedAt,
	})
}

// ============================================================
// 密码重置接口
// ============================================================

// RequestResetCode 申请重置验证码
// POST /api/v1/auth/reset/request
func (h *Handler) RequestResetCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.authService.RequestResetCode(c.Request.Context(), req.Email); err != nil {
		writeError(c, err)
		return
	}

	// 无论邮箱是否注册都返回同样的提示
	response.Success(c, gin.H{"message": "验证码已发送"})
}

// VerifyResetCode 校验重置验证码
// POST /api/v1/auth/reset/verify
func (h *Handler) VerifyResetCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.authService.VerifyResetCode(c.Request.Context(), req.Email, req.Code); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "验证通过"})
}
