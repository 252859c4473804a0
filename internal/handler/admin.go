package handler

import (
	"musicdist/pkg/response"

	"github.com/gin-gonic/gin"
)

// ============================================================
// 管理端接口（鉴权由网关层处理，这里只做业务）
// ============================================================

// AdminListCoupons 按状态分页查询优惠券申请
// GET /api/v1/admin/coupon/list?status=PENDING&page=1&page_size=10
func (h *Handler) AdminListCoupons(c *gin.Context) {
	status := c.Query("status")
	page, pageSize := parsePage(c)

	coupons, total, err := h.couponService.ListByStatus(c.Request.Context(), status, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      coupons,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// AdminApproveCoupon 批准优惠券申请
// POST /api/v1/admin/coupon/approve
func (h *Handler) AdminApproveCoupon(c *gin.Context) {
	var req struct {
		CouponID        int64 `json:"coupon_id" binding:"required"`
		DiscountPercent int   `json:"discount_percent" binding:"required,gt=0,lte=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	coupon, err := h.couponService.Approve(c.Request.Context(), req.CouponID, req.DiscountPercent)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, coupon)
}

// AdminRejectCoupon 驳回优惠券申请
// POST /api/v1/admin/coupon/reject
func (h *Handler) AdminRejectCoupon(c *gin.Context) {
	var req struct {
		CouponID int64 `json:"coupon_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.couponService.Reject(c.Request.Context(), req.CouponID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "已驳回"})
}

// AdminAdvanceTransaction 推进提现流水状态（打款进度）
// POST /api/v1/admin/transaction/advance
func (h *Handler) AdminAdvanceTransaction(c *gin.Context) {
	var req struct {
		TransactionNo string `json:"transaction_no" binding:"required"`
		ToStatus      string `json:"to_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.walletService.AdvanceTransactionStatus(c.Request.Context(), req.TransactionNo, req.ToStatus); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "流水状态已更新"})
}
