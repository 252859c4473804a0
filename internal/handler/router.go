package handler

import (
	"musicdist/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg)

	api := r.Group("/api/v1")
	{
		// 钱包
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.POST("/withdraw", h.Withdraw)
			wallet.GET("/transactions", h.ListTransactions)
		}

		// 支付
		payment := api.Group("/payment")
		{
			payment.POST("/confirm", h.ConfirmPayment)
		}

		// 发行
		release := api.Group("/release")
		{
			release.POST("/create", h.CreateRelease)
			release.GET("/detail", h.GetRelease)
			release.GET("/list", h.ListReleases)
			release.POST("/complete", h.CompleteRelease)
		}

		// 购物车
		cart := api.Group("/cart")
		{
			cart.POST("/add", h.AddToCart)
			cart.GET("/list", h.ListCart)
			cart.POST("/remove", h.RemoveFromCart)
		}

		// 优惠券
		coupon := api.Group("/coupon")
		{
			coupon.POST("/apply", h.ApplyCoupon)
			coupon.POST("/redeem", h.RedeemCoupon)
		}

		// 密码重置
		auth := api.Group("/auth")
		{
			auth.POST("/reset/request", h.RequestResetCode)
			auth.POST("/reset/verify", h.VerifyResetCode)
		}

		// 管理端
		admin := api.Group("/admin")
		{
			admin.GET("/coupon/list", h.AdminListCoupons)
			admin.POST("/coupon/approve", h.AdminApproveCoupon)
			admin.POST("/coupon/reject", h.AdminRejectCoupon)
			admin.POST("/transaction/advance", h.AdminAdvanceTransaction)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
